package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultDedupTTL = time.Hour

// DedupChecker remembers which cascade deliveries were already applied so a
// redelivered stream entry can be acked without touching the post store.
// Key format: dedup:<stream>:<message_id>
type DedupChecker struct {
	client redis.UniversalClient
	stream string
	ttl    time.Duration
}

// NewDedupChecker creates a DedupChecker for one stream. A non-positive ttl
// falls back to one hour.
func NewDedupChecker(client redis.UniversalClient, stream string, ttl time.Duration) *DedupChecker {
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	return &DedupChecker{client: client, stream: stream, ttl: ttl}
}

// IsProcessed reports whether the delivery with this message id was applied.
func (d *DedupChecker) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(messageID)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return n > 0, nil
}

// MarkProcessed records that the delivery was applied (expires after ttl).
func (d *DedupChecker) MarkProcessed(ctx context.Context, messageID string) error {
	if err := d.client.Set(ctx, d.key(messageID), "1", d.ttl).Err(); err != nil {
		return fmt.Errorf("dedup mark: %w", err)
	}
	return nil
}

func (d *DedupChecker) key(messageID string) string {
	return fmt.Sprintf("dedup:%s:%s", d.stream, messageID)
}
