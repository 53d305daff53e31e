package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/msblog/userpost-system/internal/core/domain"
	"github.com/msblog/userpost-system/internal/core/ports"
)

type PostService struct {
	repo      ports.PostRepository
	admission ports.AdmissionValidator
	log       zerolog.Logger
}

func NewPostService(repo ports.PostRepository, admission ports.AdmissionValidator, log zerolog.Logger) *PostService {
	return &PostService{repo: repo, admission: admission, log: log}
}

// CreatePost admits and stores a new post. The owner is only guaranteed to
// have existed when the admission check ran.
func (s *PostService) CreatePost(ctx context.Context, in ports.CreatePostInput) (*domain.Post, error) {
	if err := s.admission.ValidatePostCreation(ctx, in.UserID, in.Body); err != nil {
		return nil, err
	}

	created, err := s.repo.Save(ctx, &domain.Post{UserID: in.UserID, Body: in.Body})
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", in.UserID).Msg("failed to store post")
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.log.Info().Int64("post_id", created.ID).Int64("user_id", in.UserID).Msg("post created")
	return created, nil
}

func (s *PostService) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *PostService) ListPosts(ctx context.Context) ([]*domain.Post, error) {
	return s.repo.FindAll(ctx)
}

func (s *PostService) ListPostsByOwner(ctx context.Context, ownerID int64) ([]*domain.Post, error) {
	return s.repo.FindByOwner(ctx, ownerID)
}

func (s *PostService) GetPostByOwnerAndID(ctx context.Context, ownerID, postID int64) (*domain.Post, error) {
	return s.repo.FindByOwnerAndID(ctx, ownerID, postID)
}

func (s *PostService) DeletePost(ctx context.Context, id int64) error {
	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	if !deleted {
		return domain.ErrPostNotFound
	}
	s.log.Info().Int64("post_id", id).Msg("post deleted")
	return nil
}

// CascadeService removes the posts of users deleted in the users service.
type CascadeService struct {
	repo ports.PostRepository
	log  zerolog.Logger
}

func NewCascadeService(repo ports.PostRepository, log zerolog.Logger) *CascadeService {
	return &CascadeService{repo: repo, log: log}
}

// HandleUserDeleted bulk-deletes the user's posts. Applying the same
// notification again, or for a user without posts, is a no-op.
func (s *CascadeService) HandleUserDeleted(ctx context.Context, n domain.UserDeleted) error {
	removed, err := s.repo.DeleteByOwner(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("cascade delete posts of user %d: %w", n.UserID, err)
	}

	s.log.Info().Int64("user_id", n.UserID).Int64("removed", removed).Msg("posts of deleted user removed")
	return nil
}
