package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the upload service.
const ServiceName = "filedrop.v1.UploadService"

// UploadServiceServer is the server API of the upload service. Requests and
// responses are google.protobuf.Struct documents.
type UploadServiceServer interface {
	CreateProject(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddFiles(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemoveFile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResetSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Upload(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CloseSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListFiles(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteFile(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(UploadServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(UploadServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(UploadServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// FullMethod returns the gRPC method path of name.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// ServiceDesc describes the upload service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*UploadServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateProject", UploadServiceServer.CreateProject),
		unary("CreateSession", UploadServiceServer.CreateSession),
		unary("AddFiles", UploadServiceServer.AddFiles),
		unary("RemoveFile", UploadServiceServer.RemoveFile),
		unary("ResetSession", UploadServiceServer.ResetSession),
		unary("Upload", UploadServiceServer.Upload),
		unary("GetSession", UploadServiceServer.GetSession),
		unary("CloseSession", UploadServiceServer.CloseSession),
		unary("ListFiles", UploadServiceServer.ListFiles),
		unary("DeleteFile", UploadServiceServer.DeleteFile),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "filedrop/v1/upload_service",
}

// RegisterUploadServiceServer registers srv on s.
func RegisterUploadServiceServer(s grpc.ServiceRegistrar, srv UploadServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// UploadServiceClient calls the upload service over conn.
type UploadServiceClient struct {
	conn grpc.ClientConnInterface
}

func NewUploadServiceClient(conn grpc.ClientConnInterface) *UploadServiceClient {
	return &UploadServiceClient{conn: conn}
}

// Call invokes method with req and returns the response document.
func (c *UploadServiceClient) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, FullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
