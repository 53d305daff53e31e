package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidBody  = errors.New("post body must be between 10 and 1000 characters")
	ErrUnknownOwner = errors.New("post owner does not exist")
)

// RejectionReason names why a post was not admitted.
type RejectionReason string

const (
	RejectInvalidBody  RejectionReason = "invalid_body"
	RejectUnknownOwner RejectionReason = "unknown_owner"
)

// RejectionError is returned when post admission fails a check. It matches
// ErrInvalidBody or ErrUnknownOwner under errors.Is.
type RejectionError struct {
	Reason  RejectionReason
	OwnerID int64
}

func (e *RejectionError) Error() string {
	switch e.Reason {
	case RejectInvalidBody:
		return ErrInvalidBody.Error()
	case RejectUnknownOwner:
		return fmt.Sprintf("%s: user %d", ErrUnknownOwner, e.OwnerID)
	default:
		return "post rejected: " + string(e.Reason)
	}
}

func (e *RejectionError) Is(target error) bool {
	switch e.Reason {
	case RejectInvalidBody:
		return target == ErrInvalidBody
	case RejectUnknownOwner:
		return target == ErrUnknownOwner
	}
	return false
}

// AsRejection extracts the rejection from err. It reports false for failures
// to decide, such as an unreachable users service.
func AsRejection(err error) (*RejectionError, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
