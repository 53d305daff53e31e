package userlookup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/msblog/userpost-system/internal/api/metrics"
	"github.com/msblog/userpost-system/internal/core/domain"
)

const defaultCallTimeout = 2 * time.Second

// Client checks user existence against the users service over one shared
// connection. It is safe for concurrent use.
type Client struct {
	conn    *grpc.ClientConn
	timeout time.Duration
	log     zerolog.Logger
}

// Dial creates the long-lived connection. The connection is established lazily
// and re-established by gRPC after failures; Dial itself does not block.
func Dial(target string, timeout time.Duration, log zerolog.Logger, opts ...grpc.DialOption) (*Client, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}
	conn, err := grpc.NewClient(target, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("dial users service %s: %w", target, err)
	}
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Client{conn: conn, timeout: timeout, log: log}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// UserExists reports whether the user exists. (false, nil) always means the
// users service answered "no such user"; failures to get an answer return
// domain.ErrTransportFailure or domain.ErrLookupFailed.
func (c *Client) UserExists(ctx context.Context, id int64) (bool, error) {
	res, err := c.Lookup(ctx, id)
	if err != nil {
		return false, err
	}
	return res.Status == domain.LookupFound, nil
}

// Lookup resolves id to the tagged lookup result.
func (c *Client) Lookup(ctx context.Context, id int64) (domain.UserLookup, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp := new(UserResponse)
	err := c.conn.Invoke(ctx, getUserByIDFullMethod, &UserRequest{UserID: id}, resp)
	metrics.ExistenceCheckDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		mapped := classify(err)
		result := "transport_error"
		if errors.Is(mapped, domain.ErrLookupFailed) {
			result = "lookup_error"
		}
		metrics.ExistenceChecksTotal.WithLabelValues(result).Inc()
		c.log.Warn().Err(err).Int64("user_id", id).Msg("existence check failed")
		return domain.LookupFailed(mapped), mapped
	}

	if resp.UserID == domain.NotFoundUserID {
		metrics.ExistenceChecksTotal.WithLabelValues("missing").Inc()
		return domain.NotFound(), nil
	}
	metrics.ExistenceChecksTotal.WithLabelValues("exists").Inc()
	return domain.Found(domain.User{ID: resp.UserID, Name: resp.Name}), nil
}

// classify separates "the users service failed to look the user up" from
// "the users service could not be asked".
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrTransportFailure, err)
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %w", domain.ErrTransportFailure, err)
	}
	switch st.Code() {
	case codes.Internal, codes.Unknown:
		return fmt.Errorf("%w: %s", domain.ErrLookupFailed, st.Message())
	default:
		return fmt.Errorf("%w: %s: %s", domain.ErrTransportFailure, st.Code(), st.Message())
	}
}
