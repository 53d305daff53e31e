package messaging

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/msblog/userpost-system/internal/api/metrics"
	"github.com/msblog/userpost-system/internal/core/ports"
)

const (
	defaultRelayInterval = 15 * time.Second
	defaultRelayBatch    = 100
)

// Relay republishes notifications parked in the retry queue after their
// in-line publish failed.
type Relay struct {
	store     ports.PendingNotificationStore
	publisher ports.UserDeletedPublisher
	interval  time.Duration
	batch     int
	log       zerolog.Logger
}

func NewRelay(
	store ports.PendingNotificationStore,
	publisher ports.UserDeletedPublisher,
	interval time.Duration,
	batch int,
	log zerolog.Logger,
) *Relay {
	if interval <= 0 {
		interval = defaultRelayInterval
	}
	if batch <= 0 {
		batch = defaultRelayBatch
	}
	return &Relay{store: store, publisher: publisher, interval: interval, batch: batch, log: log}
}

// Run flushes the queue every interval until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Flush(ctx)
		}
	}
}

// Flush makes one pass over the queue and returns how many notifications
// were published.
func (r *Relay) Flush(ctx context.Context) int {
	pending, err := r.store.Poll(ctx, r.batch)
	if err != nil {
		r.log.Error().Err(err).Msg("poll retry queue")
		return 0
	}
	metrics.CascadeRetryPending.Set(float64(len(pending)))

	published := 0
	for _, n := range pending {
		if ctx.Err() != nil {
			break
		}

		if err := r.publisher.PublishUserDeleted(ctx, n.UserID); err != nil {
			metrics.CascadeRetriesTotal.WithLabelValues("failed").Inc()
			r.log.Warn().Err(err).
				Int64("user_id", n.UserID).
				Int("attempts", n.Attempts+1).
				Msg("republish failed")
			if err := r.store.MarkFailed(ctx, n.ID, err); err != nil {
				r.log.Error().Err(err).Str("entry_id", n.ID).Msg("record republish failure")
			}
			continue
		}

		metrics.CascadeRetriesTotal.WithLabelValues("published").Inc()
		if err := r.store.MarkPublished(ctx, n.ID); err != nil {
			// The entry will be published again; the consumer side is idempotent.
			r.log.Error().Err(err).Str("entry_id", n.ID).Msg("mark retry entry published")
			continue
		}
		published++
		r.log.Info().Int64("user_id", n.UserID).Int("attempts", n.Attempts+1).Msg("cascade notification republished")
	}
	return published
}
