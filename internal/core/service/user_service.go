package service

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/msblog/userpost-system/internal/core/domain"
	"github.com/msblog/userpost-system/internal/core/ports"
)

type UserService struct {
	repo      ports.UserRepository
	publisher ports.UserDeletedPublisher
	retry     ports.PendingNotificationStore
	log       zerolog.Logger
}

// NewUserService wires the User authority use cases. retry may be nil, in
// which case a failed cascade publish is only logged.
func NewUserService(
	repo ports.UserRepository,
	publisher ports.UserDeletedPublisher,
	retry ports.PendingNotificationStore,
	log zerolog.Logger,
) *UserService {
	return &UserService{repo: repo, publisher: publisher, retry: retry, log: log}
}

func (s *UserService) CreateUser(ctx context.Context, name string) (*domain.User, error) {
	if err := domain.ValidateName(name); err != nil {
		s.log.Warn().Int("name_length", utf8.RuneCountInString(name)).Msg("user rejected: name too short")
		return nil, err
	}

	created, err := s.repo.Save(ctx, &domain.User{Name: name})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Int64("user_id", created.ID).Msg("user created")
	return created, nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.repo.FindAll(ctx)
}

// DeleteUser removes the user from the authoritative store and then publishes
// the cascade notification in-line. The deletion is never rolled back: if the
// publish fails the notification is handed to the retry queue and the delete
// still succeeds, leaving the user's posts orphaned until a retry lands.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if !deleted {
		return domain.ErrUserNotFound
	}
	s.log.Info().Int64("user_id", id).Msg("user deleted")

	// The store delete is committed; a client disconnect must not cancel the announcement.
	pubCtx := context.WithoutCancel(ctx)

	if err := s.publisher.PublishUserDeleted(pubCtx, id); err != nil {
		s.log.Error().Err(err).Int64("user_id", id).Msg("cascade notification not published")
		s.enqueueRetry(pubCtx, id, err)
		return nil
	}

	s.log.Debug().Int64("user_id", id).Msg("cascade notification published")
	return nil
}

func (s *UserService) enqueueRetry(ctx context.Context, id int64, cause error) {
	if s.retry == nil {
		s.log.Error().Int64("user_id", id).Msg("no retry queue configured, posts of deleted user may stay orphaned")
		return
	}
	if err := s.retry.Add(ctx, id, cause); err != nil {
		s.log.Error().Err(err).Int64("user_id", id).Msg("retry queue write failed, posts of deleted user may stay orphaned")
		return
	}
	s.log.Warn().Int64("user_id", id).Msg("cascade notification queued for retry")
}
