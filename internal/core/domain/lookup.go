package domain

import "errors"

// NotFoundUserID is the wire sentinel meaning "no such user".
const NotFoundUserID int64 = -1

var (
	// ErrTransportFailure means the existence check could not reach the users
	// service (connect failure, timeout, cancellation). The owner may exist.
	ErrTransportFailure = errors.New("users service unreachable")
	// ErrLookupFailed means the users service was reached but its own store
	// lookup failed.
	ErrLookupFailed = errors.New("user lookup failed")
)

// LookupStatus tags the outcome of a user existence lookup.
type LookupStatus int

const (
	LookupFound LookupStatus = iota
	LookupNotFound
	LookupError
)

func (s LookupStatus) String() string {
	switch s {
	case LookupFound:
		return "found"
	case LookupNotFound:
		return "not_found"
	case LookupError:
		return "lookup_error"
	default:
		return "unknown"
	}
}

// UserLookup is the tagged result of resolving a user id.
// User is set only for LookupFound; Err only for LookupError.
type UserLookup struct {
	Status LookupStatus
	User   User
	Err    error
}

func Found(u User) UserLookup           { return UserLookup{Status: LookupFound, User: u} }
func NotFound() UserLookup              { return UserLookup{Status: LookupNotFound} }
func LookupFailed(err error) UserLookup { return UserLookup{Status: LookupError, Err: err} }
