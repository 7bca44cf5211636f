package grpcsubstrate

import (
	"context"

	"google.golang.org/grpc"
)

// messengerServer is the interface a rank's in-process handler implements;
// modeled on the original DataTransferKit coupler::Messenger, which posts
// receives and fills a map keyed by a communication tag
// (original_source/src/coupler/Messenger.hh).
type messengerServer interface {
	Send(ctx context.Context, req *SendRequest) (*SendResponse, error)
	Barrier(ctx context.Context, req *BarrierRequest) (*BarrierResponse, error)
}

func _Messenger_Send_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SendRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(messengerServer).Send(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/dtk.Messenger/Send"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(messengerServer).Send(ctx, req.(*SendRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Messenger_Barrier_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(BarrierRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(messengerServer).Barrier(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/dtk.Messenger/Barrier"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(messengerServer).Barrier(ctx, req.(*BarrierRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// messengerServiceDesc is hand-authored in place of protoc-generated
// code — grpc-go's RegisterService/Invoke machinery only needs a
// ServiceDesc/MethodDesc pair, not a .proto-derived stub.
var messengerServiceDesc = grpc.ServiceDesc{
	ServiceName: "dtk.Messenger",
	HandlerType: (*messengerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Send", Handler: _Messenger_Send_Handler},
		{MethodName: "Barrier", Handler: _Messenger_Barrier_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dtk/messenger.proto",
}

// registerMessengerServer wires an implementation into a *grpc.Server.
func registerMessengerServer(s *grpc.Server, impl messengerServer) {
	s.RegisterService(&messengerServiceDesc, impl)
}

// messengerClient invokes the Messenger RPCs against a single peer.
type messengerClient struct {
	cc *grpc.ClientConn
}

func newMessengerClient(cc *grpc.ClientConn) *messengerClient {
	return &messengerClient{cc: cc}
}

func (c *messengerClient) Send(ctx context.Context, req *SendRequest) (*SendResponse, error) {
	out := new(SendResponse)
	err := c.cc.Invoke(ctx, "/dtk.Messenger/Send", req, out, grpc.CallContentSubtype(codecName))
	return out, err
}

func (c *messengerClient) Barrier(ctx context.Context, req *BarrierRequest) (*BarrierResponse, error) {
	out := new(BarrierResponse)
	err := c.cc.Invoke(ctx, "/dtk.Messenger/Barrier", req, out, grpc.CallContentSubtype(codecName))
	return out, err
}
