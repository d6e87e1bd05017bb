package ptsl

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
)

// Request is one decoded PTSL call as seen by a server.
type Request struct {
	Command   Command
	SessionID string
	Body      string
}

// Reply is a server's answer to one Request.
type Reply struct {
	Status TaskStatus
	Body   string
	Error  string
}

// HandlerFunc answers PTSL requests.
type HandlerFunc func(ctx context.Context, req Request) Reply

// NewServer returns a gRPC server that answers SendGrpcRequest with h.
// It stands in for Pro Tools in tests and local simulations.
func NewServer(h HandlerFunc, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts,
		grpc.ForceServerCodec(rawCodec{}),
		grpc.UnknownServiceHandler(func(_ any, stream grpc.ServerStream) error {
			name, _ := grpc.MethodFromServerStream(stream)
			if name != method {
				return fmt.Errorf("unknown method %q", name)
			}
			in := &frame{}
			if err := stream.RecvMsg(in); err != nil {
				return err
			}
			hdr, body, err := decodeRequest(in.data)
			if err != nil {
				return err
			}
			reply := h(stream.Context(), Request{Command: hdr.Command, SessionID: hdr.SessionID, Body: body})
			return stream.SendMsg(&frame{data: encodeResponse(response{
				TaskID:    hdr.TaskID,
				Command:   hdr.Command,
				Status:    reply.Status,
				BodyJSON:  reply.Body,
				ErrorJSON: reply.Error,
			})})
		}),
	)
	return grpc.NewServer(opts...)
}
