package grpc

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/intake"
	"github.com/dmitrijs2005/filedrop/internal/models"
	"github.com/dmitrijs2005/filedrop/internal/server/services"
	"github.com/dmitrijs2005/filedrop/internal/upload"
)

var errBadRequest = errors.New("bad request")

func stringField(in *structpb.Struct, key string) (string, error) {
	v := in.GetFields()[key].GetStringValue()
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", errBadRequest, key)
	}
	return v, nil
}

// rawFiles decodes the files list of an AddFiles request. Content is
// base64 encoded.
func rawFiles(in *structpb.Struct) ([]intake.RawFile, error) {
	list := in.GetFields()["files"].GetListValue().GetValues()
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: files is required", errBadRequest)
	}

	out := make([]intake.RawFile, 0, len(list))
	for i, v := range list {
		f := v.GetStructValue()
		name, err := stringField(f, "name")
		if err != nil {
			return nil, fmt.Errorf("files[%d]: %w", i, err)
		}
		if strings.ContainsAny(name, `/\`) {
			return nil, fmt.Errorf("%w: files[%d].name must not contain a path separator", errBadRequest, i)
		}
		content, err := base64.StdEncoding.DecodeString(f.GetFields()["content"].GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("%w: files[%d].content: %v", errBadRequest, i, err)
		}
		out = append(out, intake.BytesFile(name, f.GetFields()["mime_type"].GetStringValue(), content))
	}
	return out, nil
}

func outcomesValue(outcomes []upload.Outcome) []any {
	out := make([]any, 0, len(outcomes))
	for _, o := range outcomes {
		m := map[string]any{"name": o.FileName}
		if o.Failed() {
			m["error"] = o.Err
		}
		out = append(out, m)
	}
	return out
}

func stringsValue(ss []string) []any {
	out := make([]any, 0, len(ss))
	for _, s := range ss {
		out = append(out, s)
	}
	return out
}

func viewValue(v upload.View) map[string]any {
	files := make([]any, 0, len(v.Files))
	for _, f := range v.Files {
		violations := make([]any, 0, len(f.Violations))
		for _, vi := range f.Violations {
			violations = append(violations, map[string]any{"code": string(vi.Code), "message": vi.Message})
		}
		m := map[string]any{
			"name":       f.Name,
			"size":       f.Size,
			"mime_type":  f.MimeType,
			"preview":    string(f.Preview),
			"status":     f.Status,
			"violations": violations,
		}
		if f.Err != "" {
			m["error"] = f.Err
		}
		files = append(files, m)
	}

	return map[string]any{
		"files":      files,
		"errors":     outcomesValue(v.Errors),
		"successes":  stringsValue(v.Successes),
		"in_flight":  v.InFlight,
		"is_success": v.IsSuccess,
	}
}

func recordValue(r *models.StorageRecord) map[string]any {
	return map[string]any{
		"id":          r.ID,
		"project_id":  r.ParentID,
		"name":        r.DisplayName,
		"path":        r.StorageKey,
		"size":        r.SizeBytes,
		"mime_type":   r.MimeType,
		"uploaded_at": r.UploadedAt.UTC().Format(time.RFC3339),
	}
}

func toStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return s, nil
}

// toStatus maps service errors onto gRPC status codes. Unknown errors are
// logged and reported as Internal without details.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, services.ErrEmptyProjectName):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorNotFound), errors.Is(err, upload.ErrFileNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrorForbidden):
		return status.Error(codes.PermissionDenied, "permission denied")
	case errors.Is(err, common.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, upload.ErrUploadInProgress),
		errors.Is(err, upload.ErrSessionClosed),
		errors.Is(err, upload.ErrEmptyBatch),
		errors.Is(err, upload.ErrBatchHasViolations):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}
