package userlookup

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/msblog/userpost-system/internal/api/metrics"
	"github.com/msblog/userpost-system/internal/core/domain"
	"github.com/msblog/userpost-system/internal/core/ports"
)

// Server answers GetUserById from the injected lookup service.
type Server struct {
	lookup   ports.UserLookupService
	collapse bool
	log      zerolog.Logger
}

type ServerOption func(*Server)

// WithCollapsedErrors makes lookup faults answer with the not-found sentinel
// instead of an Internal status, for callers that cannot tell them apart.
func WithCollapsedErrors(collapse bool) ServerOption {
	return func(s *Server) { s.collapse = collapse }
}

func NewServer(lookup ports.UserLookupService, log zerolog.Logger, opts ...ServerOption) *Server {
	s := &Server{lookup: lookup, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches the service to a gRPC server.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	r.RegisterService(&serviceDesc, s)
}

func (s *Server) GetUserByID(ctx context.Context, req *UserRequest) (*UserResponse, error) {
	res := s.lookup.LookupUser(ctx, req.UserID)
	metrics.UserLookupsTotal.WithLabelValues(res.Status.String()).Inc()

	switch res.Status {
	case domain.LookupFound:
		return &UserResponse{UserID: res.User.ID, Name: res.User.Name}, nil
	case domain.LookupNotFound:
		return notFoundResponse(), nil
	default:
		s.log.Error().Err(res.Err).Int64("user_id", req.UserID).Msg("user lookup failed")
		if s.collapse {
			return notFoundResponse(), nil
		}
		return nil, status.Error(codes.Internal, "user lookup failed")
	}
}

func notFoundResponse() *UserResponse {
	return &UserResponse{UserID: domain.NotFoundUserID}
}

// NewGRPCServer returns a gRPC server with panic recovery, request logging and
// latency metrics installed.
func NewGRPCServer(log zerolog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	base := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(recoveryInterceptor(log), loggingInterceptor(log)),
	}
	return grpc.NewServer(append(base, opts...)...)
}

func loggingInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		elapsed := time.Since(start)

		metrics.RPCDuration.WithLabelValues(info.FullMethod, code.String()).Observe(elapsed.Seconds())
		log.Debug().
			Str("method", info.FullMethod).
			Str("code", code.String()).
			Dur("latency", elapsed).
			Msg("rpc handled")
		return resp, err
	}
}

func recoveryInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("method", info.FullMethod).Msg("rpc handler panicked")
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
