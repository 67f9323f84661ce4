package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name of the portal API.
const ServiceName = "portaljuridico.v1.Portal"

// FullMethod returns the "/service/method" path of a portal method.
func FullMethod(method string) string { return "/" + ServiceName + "/" + method }

// PortalServer is the server API. Requests and responses are structpb objects.
type PortalServer interface {
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ConfirmPassword(context.Context, *structpb.Struct) (*structpb.Struct, error)

	ListDocuments(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RevokeDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchDocuments(*structpb.Struct, grpc.ServerStream) error

	ListHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)

	ListGroups(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateGroup(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RenameGroup(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddGroupMember(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemoveGroupMember(context.Context, *structpb.Struct) (*structpb.Struct, error)

	ListUsers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateUser(context.Context, *structpb.Struct) (*structpb.Struct, error)

	ListTerms(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateTerm(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RenameTerm(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var _ PortalServer = (*Server)(nil)

// UnimplementedPortalServer answers every method with codes.Unimplemented.
// Embed it to serve part of the API.
type UnimplementedPortalServer struct{}

var _ PortalServer = UnimplementedPortalServer{}

func (UnimplementedPortalServer) Login(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Login not implemented")
}

func (UnimplementedPortalServer) ConfirmPassword(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ConfirmPassword not implemented")
}

func (UnimplementedPortalServer) ListDocuments(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListDocuments not implemented")
}

func (UnimplementedPortalServer) GetDocument(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetDocument not implemented")
}

func (UnimplementedPortalServer) CreateDocument(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateDocument not implemented")
}

func (UnimplementedPortalServer) UpdateDocument(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateDocument not implemented")
}

func (UnimplementedPortalServer) RevokeDocument(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method RevokeDocument not implemented")
}

func (UnimplementedPortalServer) ListHistory(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListHistory not implemented")
}

func (UnimplementedPortalServer) ListGroups(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListGroups not implemented")
}

func (UnimplementedPortalServer) CreateGroup(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateGroup not implemented")
}

func (UnimplementedPortalServer) RenameGroup(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method RenameGroup not implemented")
}

func (UnimplementedPortalServer) AddGroupMember(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method AddGroupMember not implemented")
}

func (UnimplementedPortalServer) RemoveGroupMember(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method RemoveGroupMember not implemented")
}

func (UnimplementedPortalServer) ListUsers(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListUsers not implemented")
}

func (UnimplementedPortalServer) CreateUser(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateUser not implemented")
}

func (UnimplementedPortalServer) ListTerms(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListTerms not implemented")
}

func (UnimplementedPortalServer) CreateTerm(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateTerm not implemented")
}

func (UnimplementedPortalServer) RenameTerm(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method RenameTerm not implemented")
}

func (UnimplementedPortalServer) WatchDocuments(*structpb.Struct, grpc.ServerStream) error {
	return status.Error(codes.Unimplemented, "method WatchDocuments not implemented")
}

type unaryFunc func(PortalServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryFunc) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if ic == nil {
				return call(srv.(PortalServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(PortalServer), ctx, req.(*structpb.Struct))
			}
			return ic(ctx, in, info, handler)
		},
	}
}

func watchDocumentsHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(PortalServer).WatchDocuments(in, stream)
}

// ServiceDesc describes the portal service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PortalServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Login", PortalServer.Login),
		unary("ConfirmPassword", PortalServer.ConfirmPassword),
		unary("ListDocuments", PortalServer.ListDocuments),
		unary("GetDocument", PortalServer.GetDocument),
		unary("CreateDocument", PortalServer.CreateDocument),
		unary("UpdateDocument", PortalServer.UpdateDocument),
		unary("RevokeDocument", PortalServer.RevokeDocument),
		unary("ListHistory", PortalServer.ListHistory),
		unary("ListGroups", PortalServer.ListGroups),
		unary("CreateGroup", PortalServer.CreateGroup),
		unary("RenameGroup", PortalServer.RenameGroup),
		unary("AddGroupMember", PortalServer.AddGroupMember),
		unary("RemoveGroupMember", PortalServer.RemoveGroupMember),
		unary("ListUsers", PortalServer.ListUsers),
		unary("CreateUser", PortalServer.CreateUser),
		unary("ListTerms", PortalServer.ListTerms),
		unary("CreateTerm", PortalServer.CreateTerm),
		unary("RenameTerm", PortalServer.RenameTerm),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchDocuments",
			Handler:       watchDocumentsHandler,
			ServerStreams: true,
		},
	},
}

// Register attaches srv to gs.
func Register(gs grpc.ServiceRegistrar, srv PortalServer) {
	gs.RegisterService(&ServiceDesc, srv)
}
