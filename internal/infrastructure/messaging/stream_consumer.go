package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/msblog/userpost-system/internal/api/metrics"
	"github.com/msblog/userpost-system/internal/core/domain"
	"github.com/msblog/userpost-system/internal/infrastructure/queue"
)

const (
	readErrorBackoff = time.Second
	ackTimeout       = 5 * time.Second
)

// Dispatcher hands a parsed notification to a worker.
type Dispatcher interface {
	Enqueue(ctx context.Context, job queue.Job) error
}

// Deduper remembers applied deliveries.
type Deduper interface {
	IsProcessed(ctx context.Context, messageID string) (bool, error)
	MarkProcessed(ctx context.Context, messageID string) error
}

type ConsumerConfig struct {
	Stream string
	Group  string
	// Consumer names this instance inside the group. Empty means a random name.
	Consumer string
	Batch    int64
	Block    time.Duration
	// ClaimIdle is how long a delivery may stay unacknowledged before another
	// pass picks it up again. Zero disables reclaiming.
	ClaimIdle time.Duration
}

// StreamConsumer reads user-deleted notifications from a consumer group and
// acknowledges each one after its posts were removed. Entries whose payload is
// not a user id are acknowledged and dropped.
type StreamConsumer struct {
	client     redis.UniversalClient
	cfg        ConsumerConfig
	dispatcher Dispatcher
	dedup      Deduper
	log        zerolog.Logger
}

// NewStreamConsumer builds a consumer. dedup may be nil.
func NewStreamConsumer(
	client redis.UniversalClient,
	cfg ConsumerConfig,
	dispatcher Dispatcher,
	dedup Deduper,
	log zerolog.Logger,
) *StreamConsumer {
	if cfg.Consumer == "" {
		cfg.Consumer = "posts-" + uuid.NewString()
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 32
	}
	return &StreamConsumer{
		client:     client,
		cfg:        cfg,
		dispatcher: dispatcher,
		dedup:      dedup,
		log:        log.With().Str("stream", cfg.Stream).Str("consumer", cfg.Consumer).Logger(),
	}
}

// EnsureGroup creates the consumer group, and the stream if needed. Entries
// appended before the group existed are delivered too.
func (c *StreamConsumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s: %w", c.cfg.Group, err)
	}
	return nil
}

// Run consumes until ctx is cancelled. Read errors are logged and retried;
// only a failure to create the group ends Run early.
func (c *StreamConsumer) Run(ctx context.Context) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}
	c.log.Info().Str("group", c.cfg.Group).Msg("cascade consumer started")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.readLoop(ctx) })
	if c.cfg.ClaimIdle > 0 {
		g.Go(func() error { return c.claimLoop(ctx) })
	}
	err := g.Wait()

	c.log.Info().Msg("cascade consumer stopped")
	return err
}

func (c *StreamConsumer) readLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.cfg.Consumer,
			Streams:  []string{c.cfg.Stream, ">"},
			Count:    c.cfg.Batch,
			Block:    c.cfg.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			c.log.Warn().Err(err).Msg("stream read failed")
			if !sleep(ctx, readErrorBackoff) {
				return nil
			}
			continue
		}

		for _, s := range streams {
			for _, m := range s.Messages {
				c.handle(ctx, m)
			}
		}
	}
}

// claimLoop takes over deliveries left unacknowledged for longer than
// ClaimIdle, by this or any other consumer of the group.
func (c *StreamConsumer) claimLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.claimInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.ReclaimStale(ctx)
		}
	}
}

func (c *StreamConsumer) claimInterval() time.Duration {
	if d := c.cfg.ClaimIdle / 2; d > 0 {
		return d
	}
	return c.cfg.ClaimIdle
}

// ReclaimStale runs one XAUTOCLAIM sweep and handles every entry it claims.
func (c *StreamConsumer) ReclaimStale(ctx context.Context) int {
	start := "0-0"
	claimed := 0
	for ctx.Err() == nil {
		msgs, next, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.cfg.Stream,
			Group:    c.cfg.Group,
			Consumer: c.cfg.Consumer,
			MinIdle:  c.cfg.ClaimIdle,
			Start:    start,
			Count:    c.cfg.Batch,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				c.log.Warn().Err(err).Msg("reclaim of stale deliveries failed")
			}
			return claimed
		}

		for _, m := range msgs {
			c.log.Info().Str("message_id", m.ID).Msg("redelivering stale cascade notification")
			c.handle(ctx, m)
		}
		claimed += len(msgs)

		if next == "0-0" || next == "" || len(msgs) == 0 {
			return claimed
		}
		start = next
	}
	return claimed
}

// handle processes one stream entry. It never panics and never stops the loop.
func (c *StreamConsumer) handle(ctx context.Context, m redis.XMessage) {
	defer func() {
		if r := recover(); r != nil {
			metrics.CascadeFailuresTotal.WithLabelValues("panic").Inc()
			c.log.Error().Interface("panic", r).Str("message_id", m.ID).Msg("cascade message handling panicked")
		}
	}()

	n, err := decode(m)
	if err != nil {
		metrics.CascadeMalformedTotal.Inc()
		c.log.Warn().Err(err).Str("message_id", m.ID).Interface("values", m.Values).Msg("dropping malformed cascade notification")
		c.ack(ctx, m.ID)
		return
	}

	if c.alreadyApplied(ctx, m.ID) {
		c.log.Debug().Str("message_id", m.ID).Int64("user_id", n.UserID).Msg("cascade notification already applied")
		c.ack(ctx, m.ID)
		return
	}

	job := queue.Job{
		MessageID:    m.ID,
		Notification: n,
		Done: func(ctx context.Context, err error) {
			c.complete(ctx, m.ID, n, err)
		},
	}
	if err := c.dispatcher.Enqueue(ctx, job); err != nil {
		c.log.Debug().Err(err).Str("message_id", m.ID).Msg("cascade notification left pending")
	}
}

func (c *StreamConsumer) complete(ctx context.Context, messageID string, n domain.UserDeleted, err error) {
	if err != nil {
		metrics.CascadeFailuresTotal.WithLabelValues("store_error").Inc()
		c.log.Warn().Err(err).Str("message_id", messageID).Int64("user_id", n.UserID).
			Msg("cascade notification not acknowledged, will be redelivered")
		return
	}

	metrics.CascadeProcessedTotal.Inc()
	if c.dedup != nil {
		markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ackTimeout)
		if err := c.dedup.MarkProcessed(markCtx, messageID); err != nil {
			c.log.Warn().Err(err).Str("message_id", messageID).Msg("dedup mark failed")
		}
		cancel()
	}
	c.ack(ctx, messageID)
}

func (c *StreamConsumer) alreadyApplied(ctx context.Context, messageID string) bool {
	if c.dedup == nil {
		return false
	}
	seen, err := c.dedup.IsProcessed(ctx, messageID)
	if err != nil {
		c.log.Warn().Err(err).Str("message_id", messageID).Msg("dedup check failed, processing anyway")
		return false
	}
	if seen {
		metrics.CascadeDedupTotal.WithLabelValues("hit").Inc()
	} else {
		metrics.CascadeDedupTotal.WithLabelValues("miss").Inc()
	}
	return seen
}

// ack survives shutdown of the consumer context so finished work is not redelivered.
func (c *StreamConsumer) ack(ctx context.Context, messageID string) {
	ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ackTimeout)
	defer cancel()

	if err := c.client.XAck(ackCtx, c.cfg.Stream, c.cfg.Group, messageID).Err(); err != nil {
		c.log.Warn().Err(err).Str("message_id", messageID).Msg("ack failed")
	}
}

func decode(m redis.XMessage) (domain.UserDeleted, error) {
	raw, ok := m.Values[PayloadField].(string)
	if !ok {
		return domain.UserDeleted{}, fmt.Errorf("%w: missing %q field", domain.ErrMalformedNotification, PayloadField)
	}
	return domain.ParseUserDeleted(raw)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
