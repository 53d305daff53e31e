package domain

import (
	"errors"
	"unicode/utf8"
)

// Body length bounds, inclusive.
const (
	MinPostBodyLength = 10
	MaxPostBodyLength = 1000
)

var ErrPostNotFound = errors.New("post not found")

// Post belongs to the posts service. UserID is a logical reference to a User
// held by another service; nothing at the storage layer enforces it.
type Post struct {
	ID     int64  `json:"id" bson:"_id"`
	UserID int64  `json:"user_id" bson:"user_id"`
	Body   string `json:"body" bson:"body"`
}

// BodyLengthValid reports whether body has between MinPostBodyLength and
// MaxPostBodyLength characters.
func BodyLengthValid(body string) bool {
	n := utf8.RuneCountInString(body)
	return n >= MinPostBodyLength && n <= MaxPostBodyLength
}
