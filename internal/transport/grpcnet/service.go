package grpcnet

import (
	"context"

	"google.golang.org/grpc"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/wire"
)

const (
	serviceName   = "evacsim.transport.v1.Mailbox"
	deliverMethod = "/" + serviceName + "/Deliver"
)

type mailboxServer interface {
	Deliver(ctx context.Context, env *wire.Envelope) (*ack, error)
}

// mailboxServiceDesc is registered by hand; the codec is raw protowire so
// there is no generated stub.
var mailboxServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*mailboxServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Deliver", Handler: deliverHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "evacsim/transport/v1/mailbox",
}

func deliverHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wire.Envelope)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(mailboxServer).Deliver(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: deliverMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(mailboxServer).Deliver(ctx, req.(*wire.Envelope))
	}
	return interceptor(ctx, in, info, handler)
}
