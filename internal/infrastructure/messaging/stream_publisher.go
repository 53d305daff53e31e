// Package messaging carries user-deleted notifications from the users service
// to the posts service over a Redis Stream.
package messaging

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/msblog/userpost-system/internal/api/metrics"
	"github.com/msblog/userpost-system/internal/core/domain"
)

// PayloadField is the stream entry field holding the decimal user id.
const PayloadField = "payload"

// StreamPublisher appends user-deleted notifications to a Redis Stream.
type StreamPublisher struct {
	client redis.UniversalClient
	stream string
	maxLen int64
	log    zerolog.Logger
}

// NewStreamPublisher returns a publisher for stream. A positive maxLen trims
// the stream approximately on every append.
func NewStreamPublisher(client redis.UniversalClient, stream string, maxLen int64, log zerolog.Logger) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen, log: log}
}

// PublishUserDeleted returns once Redis has accepted the entry. It does not
// wait for any consumer.
func (p *StreamPublisher) PublishUserDeleted(ctx context.Context, userID int64) error {
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{PayloadField: domain.UserDeleted{UserID: userID}.Payload()},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		metrics.CascadePublishFailuresTotal.Inc()
		return fmt.Errorf("%w: %w", domain.ErrPublishFailure, err)
	}

	metrics.CascadePublishedTotal.Inc()
	p.log.Debug().Int64("user_id", userID).Str("message_id", id).Msg("user-deleted notification appended")
	return nil
}
