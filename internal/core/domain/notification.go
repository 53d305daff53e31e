package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMalformedNotification = errors.New("malformed user deleted notification")
	ErrPublishFailure        = errors.New("user deleted notification not published")
)

// UserDeleted tells the posts service that every post owned by UserID should
// be removed. It has no identity of its own and may be delivered more than once.
type UserDeleted struct {
	UserID int64
}

// Payload renders the notification as its wire form, the decimal user id.
func (n UserDeleted) Payload() string {
	return strconv.FormatInt(n.UserID, 10)
}

// ParseUserDeleted decodes a wire payload. Any payload that is not a decimal
// integer yields ErrMalformedNotification.
func ParseUserDeleted(payload string) (UserDeleted, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(payload), 10, 64)
	if err != nil {
		return UserDeleted{}, fmt.Errorf("%w: %q", ErrMalformedNotification, payload)
	}
	return UserDeleted{UserID: id}, nil
}
