package ports

import (
	"context"
	"time"

	"github.com/msblog/userpost-system/internal/core/domain"
)

// UserDeletedPublisher emits the cascade notification for a deleted user.
// It returns once the bus has accepted the message, not once it is consumed.
type UserDeletedPublisher interface {
	PublishUserDeleted(ctx context.Context, userID int64) error
}

// CascadeHandler applies a cascade notification to the dependent store.
type CascadeHandler interface {
	HandleUserDeleted(ctx context.Context, n domain.UserDeleted) error
}

// PendingNotification is a cascade notification whose publish failed and is
// waiting to be retried.
type PendingNotification struct {
	ID        string
	UserID    int64
	Attempts  int
	LastError string
	CreatedAt time.Time
}

// PendingNotificationStore is the retry queue for notifications that could
// not be published in-line.
type PendingNotificationStore interface {
	Add(ctx context.Context, userID int64, cause error) error
	Poll(ctx context.Context, limit int) ([]PendingNotification, error)
	MarkPublished(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, cause error) error
}
