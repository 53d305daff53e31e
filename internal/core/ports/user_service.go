package ports

import (
	"context"

	"github.com/msblog/userpost-system/internal/core/domain"
)

// UserService defines use-case operations of the User authority.
type UserService interface {
	CreateUser(ctx context.Context, name string) (*domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	// DeleteUser removes the user and announces the deletion so dependent
	// posts are eventually removed.
	DeleteUser(ctx context.Context, id int64) error
}

// UserLookupService answers existence queries for the RPC server. It never
// returns an error; failures are carried in the tagged result.
type UserLookupService interface {
	LookupUser(ctx context.Context, id int64) domain.UserLookup
}
