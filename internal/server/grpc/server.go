// Package grpc exposes upload sessions and project files over gRPC.
package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmitrijs2005/filedrop/internal/intake"
	"github.com/dmitrijs2005/filedrop/internal/logging"
	"github.com/dmitrijs2005/filedrop/internal/models"
	"github.com/dmitrijs2005/filedrop/internal/server/sessions"
	"github.com/dmitrijs2005/filedrop/internal/upload"
)

// DefaultMaxRecvMsgSize bounds AddFiles requests, whose content travels
// base64 encoded inside the message.
const DefaultMaxRecvMsgSize = 64 << 20

// FileService is the project and file API the handlers use.
type FileService interface {
	CreateProject(ctx context.Context, userID, name string) (*models.Project, error)
	Authorize(ctx context.Context, userID, projectID string) error
	List(ctx context.Context, userID, projectID string) ([]*models.StorageRecord, error)
	DeleteFile(ctx context.Context, userID, projectID, fileID string) error
}

// Options configures a GRPCServer.
type Options struct {
	Address   string
	SecretKey string
	// Constraints apply to every session created through the server.
	Constraints    intake.Constraints
	MaxRecvMsgSize int
}

type GRPCServer struct {
	address        string
	maxRecvMsgSize int
	jwtSecret      []byte
	constraints    intake.Constraints

	files       FileService
	coordinator *upload.Coordinator
	sessions    *sessions.Store
	previews    *intake.PreviewRegistry
	health      *health.Server
	logger      logging.Logger
}

func NewGRPCServer(opts Options, l logging.Logger, files FileService, c *upload.Coordinator, st *sessions.Store) *GRPCServer {
	if l == nil {
		l = logging.NewNop()
	}
	if opts.MaxRecvMsgSize <= 0 {
		opts.MaxRecvMsgSize = DefaultMaxRecvMsgSize
	}
	return &GRPCServer{
		address:        opts.Address,
		maxRecvMsgSize: opts.MaxRecvMsgSize,
		jwtSecret:      []byte(opts.SecretKey),
		constraints:    opts.Constraints,
		files:          files,
		coordinator:    c,
		sessions:       st,
		previews:       intake.NewPreviewRegistry(),
		health:         health.NewServer(),
		logger:         l.With("module", "grpc_server"),
	}
}

// Previews returns the registry shared by all sessions of the server.
func (s *GRPCServer) Previews() *intake.PreviewRegistry { return s.previews }

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.accessTokenInterceptor),
		grpc.MaxRecvMsgSize(s.maxRecvMsgSize),
	)
	RegisterUploadServiceServer(srv, s)
	healthpb.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
