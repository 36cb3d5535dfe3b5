package grpc

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/filedrop/internal/server/sessions"
	"github.com/dmitrijs2005/filedrop/internal/upload"
)

var _ UploadServiceServer = (*GRPCServer)(nil)

// session resolves the session_id of in for the calling user.
func (s *GRPCServer) session(ctx context.Context, in *structpb.Struct) (*sessions.Entry, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id, err := stringField(in, "session_id")
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	e, err := s.sessions.Get(userID, id)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return e, nil
}

func (s *GRPCServer) sessionResponse(e *sessions.Entry, extra map[string]any) (*structpb.Struct, error) {
	m := map[string]any{
		"session_id": e.ID,
		"project_id": e.ProjectID,
		"session":    viewValue(e.Session.Snapshot()),
	}
	for k, v := range extra {
		m[k] = v
	}
	return toStruct(m)
}

func (s *GRPCServer) CreateProject(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.files.CreateProject(ctx, userID, in.GetFields()["name"].GetStringValue())
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Project created", "project", p.ID, "user", userID)
	return toStruct(map[string]any{"project_id": p.ID, "name": p.Name})
}

func (s *GRPCServer) CreateSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	projectID, err := stringField(in, "project_id")
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	if err := s.files.Authorize(ctx, userID, projectID); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	sess := upload.NewSession(s.coordinator.WithPathPrefix(projectID), s.constraints, s.previews)
	e := s.sessions.Add(userID, projectID, sess)

	s.logger.Info(ctx, "Session created", "session", e.ID, "project", projectID, "user", userID)
	return s.sessionResponse(e, nil)
}

func (s *GRPCServer) AddFiles(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	e, err := s.session(ctx, in)
	if err != nil {
		return nil, err
	}
	files, err := rawFiles(in)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	n, err := e.Session.Add(files)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return s.sessionResponse(e, map[string]any{"added": n})
}

func (s *GRPCServer) RemoveFile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	e, err := s.session(ctx, in)
	if err != nil {
		return nil, err
	}
	name, err := stringField(in, "name")
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	if err := e.Session.Remove(name); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return s.sessionResponse(e, nil)
}

func (s *GRPCServer) ResetSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	e, err := s.session(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := e.Session.Reset(); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return s.sessionResponse(e, nil)
}

// Upload runs one cycle and returns its outcomes together with the
// aggregated session state. Per-file failures are part of the response, not
// an error status.
func (s *GRPCServer) Upload(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	e, err := s.session(ctx, in)
	if err != nil {
		return nil, err
	}

	result, err := e.Session.Upload(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Upload cycle finished", "session", e.ID,
		"files", len(result.Outcomes), "failed", len(result.Errors()))
	return s.sessionResponse(e, map[string]any{"outcomes": outcomesValue(result.Outcomes)})
}

func (s *GRPCServer) GetSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	e, err := s.session(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.sessionResponse(e, nil)
}

func (s *GRPCServer) CloseSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	e, err := s.session(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Delete(e.UserID, e.ID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &structpb.Struct{}, nil
}

func (s *GRPCServer) ListFiles(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	projectID, err := stringField(in, "project_id")
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	records, err := s.files.List(ctx, userID, projectID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	files := make([]any, 0, len(records))
	for _, r := range records {
		files = append(files, recordValue(r))
	}
	return toStruct(map[string]any{"files": files})
}

func (s *GRPCServer) DeleteFile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	projectID, err := stringField(in, "project_id")
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	fileID, err := stringField(in, "file_id")
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	if err := s.files.DeleteFile(ctx, userID, projectID, fileID); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "File deleted", "project", projectID, "file", fileID)
	return &structpb.Struct{}, nil
}
