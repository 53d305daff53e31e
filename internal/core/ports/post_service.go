package ports

import (
	"context"

	"github.com/msblog/userpost-system/internal/core/domain"
)

// CreatePostInput is the DTO passed from the transport layer to PostService.
type CreatePostInput struct {
	UserID int64
	Body   string
}

// PostService defines use-case operations of the Post authority.
type PostService interface {
	CreatePost(ctx context.Context, in CreatePostInput) (*domain.Post, error)
	GetPost(ctx context.Context, id int64) (*domain.Post, error)
	ListPosts(ctx context.Context) ([]*domain.Post, error)
	ListPostsByOwner(ctx context.Context, ownerID int64) ([]*domain.Post, error)
	GetPostByOwnerAndID(ctx context.Context, ownerID, postID int64) (*domain.Post, error)
	DeletePost(ctx context.Context, id int64) error
}

// AdmissionValidator decides whether a post may be created. A nil error
// admits the post.
type AdmissionValidator interface {
	ValidatePostCreation(ctx context.Context, ownerID int64, body string) error
}
