// internal/domain/identity/errors.go
package identity

import "errors"

var (
	// ErrDisposed is returned by every store operation after Close.
	ErrDisposed = errors.New("identity: store has been disposed")

	// ErrInvalidArgument is wrapped by errors for nil or empty required
	// parameters, e.g. fmt.Errorf("%w: user", ErrInvalidArgument).
	ErrInvalidArgument = errors.New("identity: invalid argument")

	// ErrRoleNotFound is returned when adding a user to a role that does
	// not exist. Removing from an unknown role is not an error.
	ErrRoleNotFound = errors.New("identity: role not found")

	// ErrUserNotFound is returned when a token operation names a user id
	// that does not resolve to a user.
	ErrUserNotFound = errors.New("identity: user not found")

	// ErrMultipleMatches is returned by lookups that require a single
	// result (email, role name) when more than one document matches.
	ErrMultipleMatches = errors.New("identity: more than one document matches")
)
