package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/msblog/userpost-system/internal/core/domain"
	"github.com/msblog/userpost-system/internal/core/ports"
)

// LookupService resolves user ids for the existence-check server. It is
// read-only and safe for concurrent use.
type LookupService struct {
	repo ports.UserRepository
	log  zerolog.Logger
}

func NewLookupService(repo ports.UserRepository, log zerolog.Logger) *LookupService {
	return &LookupService{repo: repo, log: log}
}

func (s *LookupService) LookupUser(ctx context.Context, id int64) domain.UserLookup {
	u, err := s.repo.FindByID(ctx, id)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		s.log.Debug().Int64("user_id", id).Msg("lookup: user does not exist")
		return domain.NotFound()
	case err != nil:
		s.log.Error().Err(err).Int64("user_id", id).Msg("lookup: store failure")
		return domain.LookupFailed(err)
	}
	return domain.Found(*u)
}
