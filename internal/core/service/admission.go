package service

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/msblog/userpost-system/internal/core/domain"
	"github.com/msblog/userpost-system/internal/core/ports"
)

// Admission composes the body shape check with the remote owner existence check.
type Admission struct {
	users ports.UserExistenceChecker
	log   zerolog.Logger
}

func NewAdmission(users ports.UserExistenceChecker, log zerolog.Logger) *Admission {
	return &Admission{users: users, log: log}
}

// ValidatePostCreation returns nil to admit the post, a *domain.RejectionError
// when a check fails, or a wrapped transport/lookup error when the owner
// could not be verified. The shape check runs first and short-circuits.
func (a *Admission) ValidatePostCreation(ctx context.Context, ownerID int64, body string) error {
	if !domain.BodyLengthValid(body) {
		a.log.Warn().
			Int64("user_id", ownerID).
			Int("body_length", utf8.RuneCountInString(body)).
			Msg("post rejected: body length out of range")
		return &domain.RejectionError{Reason: domain.RejectInvalidBody, OwnerID: ownerID}
	}

	exists, err := a.users.UserExists(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("verify owner %d: %w", ownerID, err)
	}
	if !exists {
		a.log.Warn().Int64("user_id", ownerID).Msg("post rejected: owner does not exist")
		return &domain.RejectionError{Reason: domain.RejectUnknownOwner, OwnerID: ownerID}
	}
	return nil
}
