package ports

import (
	"context"

	"github.com/msblog/userpost-system/internal/core/domain"
)

// PostRepository is the posts service store.
type PostRepository interface {
	Save(ctx context.Context, p *domain.Post) (*domain.Post, error)
	// FindByID returns domain.ErrPostNotFound when no post has the id.
	FindByID(ctx context.Context, id int64) (*domain.Post, error)
	FindAll(ctx context.Context) ([]*domain.Post, error)
	FindByOwner(ctx context.Context, ownerID int64) ([]*domain.Post, error)
	// FindByOwnerAndID returns domain.ErrPostNotFound unless the post exists
	// and belongs to ownerID.
	FindByOwnerAndID(ctx context.Context, ownerID, id int64) (*domain.Post, error)
	DeleteByID(ctx context.Context, id int64) (bool, error)
	// DeleteByOwner removes every post owned by ownerID and returns how many
	// were removed. Zero is not an error.
	DeleteByOwner(ctx context.Context, ownerID int64) (int64, error)
}
