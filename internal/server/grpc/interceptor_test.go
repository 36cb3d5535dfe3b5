package grpc

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/server/auth"
)

func newTestServer(secret string) *GRPCServer {
	return NewGRPCServer(Options{SecretKey: secret}, nil, nil, nil, nil)
}

var uploadMethod = &grpc.UnaryServerInfo{FullMethod: FullMethod("Upload")}

func TestInterceptor_OtherService_AllowsWithoutToken(t *testing.T) {
	s := newTestServer("secret")

	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	handlerCalled := false

	h := func(ctx context.Context, req any) (any, error) {
		handlerCalled = true
		return "ok", nil
	}

	resp, err := s.accessTokenInterceptor(context.Background(), nil, info, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled {
		t.Fatal("handler was not called")
	}
	if resp != "ok" {
		t.Fatalf("unexpected handler resp: %v", resp)
	}
}

func TestInterceptor_MissingToken(t *testing.T) {
	s := newTestServer("secret")

	h := func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler should not be called when token missing")
		return nil, nil
	}

	_, err := s.accessTokenInterceptor(context.Background(), nil, uploadMethod, h)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", status.Code(err))
	}
	if status.Convert(err).Message() != "missing token" {
		t.Fatalf("expected 'missing token', got %q", status.Convert(err).Message())
	}
}

func TestInterceptor_BadTokens(t *testing.T) {
	expired, err := auth.GenerateToken("u1", []byte("secret"), -time.Second)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	tests := []struct {
		name    string
		token   string
		wantMsg string
	}{
		{name: "malformed", token: "not-a-valid-jwt", wantMsg: "invalid token"},
		{name: "expired", token: expired, wantMsg: "token expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer("secret")
			md := metadata.New(map[string]string{common.AccessTokenHeaderName: tt.token})
			ctx := metadata.NewIncomingContext(context.Background(), md)

			h := func(ctx context.Context, req any) (any, error) {
				t.Fatal("handler should not be called for a bad token")
				return nil, nil
			}

			_, err := s.accessTokenInterceptor(ctx, nil, uploadMethod, h)
			if status.Code(err) != codes.Unauthenticated {
				t.Fatalf("expected Unauthenticated, got %v", status.Code(err))
			}
			if status.Convert(err).Message() != tt.wantMsg {
				t.Fatalf("expected %q, got %q", tt.wantMsg, status.Convert(err).Message())
			}
		})
	}
}

func TestInterceptor_ValidToken_SetsUserID(t *testing.T) {
	secret := "super-secret"
	s := newTestServer(secret)

	userID := "user-123"
	token, err := auth.GenerateToken(userID, []byte(secret), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	md := metadata.New(map[string]string{common.AccessTokenHeaderName: token})
	ctx := metadata.NewIncomingContext(context.Background(), md)

	var gotFromCtx string
	h := func(ctx context.Context, req any) (any, error) {
		id, err := userIDFromContext(ctx)
		gotFromCtx = id
		return "ok", err
	}

	resp, err := s.accessTokenInterceptor(ctx, nil, uploadMethod, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != "ok" {
		t.Fatalf("unexpected handler resp: %v", resp)
	}
	if gotFromCtx != userID {
		t.Fatalf("user id not propagated in context: got %v want %v", gotFromCtx, userID)
	}
}

func TestUserIDFromContext_Missing(t *testing.T) {
	if _, err := userIDFromContext(context.Background()); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
}
