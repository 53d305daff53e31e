package ports

import "context"

// UserExistenceChecker asks the users service whether a user exists.
// Implementations return domain.ErrTransportFailure when the service cannot
// be reached and domain.ErrLookupFailed when it reports an internal fault;
// (false, nil) always means the user does not exist.
type UserExistenceChecker interface {
	UserExists(ctx context.Context, id int64) (bool, error)
}
