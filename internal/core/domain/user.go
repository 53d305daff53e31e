package domain

import (
	"errors"
	"unicode/utf8"
)

// MinUserNameLength is the shortest display name the User authority accepts.
const MinUserNameLength = 4

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidUserName = errors.New("user name must be at least 4 characters")
)

// User is owned exclusively by the users service. ID is assigned by the store on creation.
type User struct {
	ID   int64  `json:"id" bson:"_id"`
	Name string `json:"name" bson:"name"`
}

// ValidateName reports whether name can be used for a new user.
func ValidateName(name string) error {
	if utf8.RuneCountInString(name) < MinUserNameLength {
		return ErrInvalidUserName
	}
	return nil
}
