package ports

import (
	"context"

	"github.com/msblog/userpost-system/internal/core/domain"
)

// UserRepository is the authoritative user store.
type UserRepository interface {
	// Save inserts u, assigning a new ID when u.ID is zero, and returns the stored user.
	Save(ctx context.Context, u *domain.User) (*domain.User, error)
	// FindByID returns domain.ErrUserNotFound when no user has the id.
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindAll(ctx context.Context) ([]*domain.User, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	// DeleteByID reports whether a user was removed.
	DeleteByID(ctx context.Context, id int64) (bool, error)
}
