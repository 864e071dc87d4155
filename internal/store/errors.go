package store

import (
	"errors"
	"fmt"

	"github.com/phrazzld/usergate/internal/failure"
)

// Sentinels returned by UserStore implementations. Each wraps a failure kind.
var (
	ErrNotFound      = fmt.Errorf("entity %w", failure.ErrNotFound)
	ErrDuplicate     = fmt.Errorf("entity already exists: %w", failure.ErrConflict)
	ErrInvalidEntity = fmt.Errorf("invalid entity: %w", failure.ErrInvalidArgument)

	ErrUserNotFound   = fmt.Errorf("%w: user", ErrNotFound)
	ErrEmailExists    = fmt.Errorf("%w: email", ErrDuplicate)
	ErrUsernameExists = fmt.Errorf("%w: username", ErrDuplicate)
)

// IsNotFoundError reports whether err is any not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError reports whether err is a uniqueness violation.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
