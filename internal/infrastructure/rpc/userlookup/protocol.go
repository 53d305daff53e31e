// Package userlookup is the existence-check RPC between the posts service and
// the users service. Messages travel as JSON over gRPC.
package userlookup

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	ServiceName = "userlookup.UserService"

	getUserByIDMethod     = "GetUserById"
	getUserByIDFullMethod = "/" + ServiceName + "/" + getUserByIDMethod

	codecName = "json"
)

type UserRequest struct {
	UserID int64 `json:"user_id"`
}

// UserResponse carries the resolved user. UserID is -1 and Name empty when the
// user does not exist.
type UserResponse struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

type userServiceServer interface {
	GetUserByID(ctx context.Context, req *UserRequest) (*UserResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*userServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: getUserByIDMethod, Handler: getUserByIDHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "userlookup",
}

func getUserByIDHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(UserRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(userServiceServer).GetUserByID(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getUserByIDFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(userServiceServer).GetUserByID(ctx, req.(*UserRequest))
	}
	return interceptor(ctx, in, info, handler)
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
