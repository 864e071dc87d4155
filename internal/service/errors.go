package service

import (
	"fmt"

	"github.com/phrazzld/usergate/internal/failure"
)

// Service errors. Both classify as Unauthorized so that the API answers 401
// without revealing which check failed.
var (
	// ErrInvalidCredentials is returned for any failed login: unknown user,
	// wrong password or a locked account.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", failure.ErrUnauthorized)

	// ErrNotOwned indicates the caller tried to modify another user's account.
	ErrNotOwned = fmt.Errorf("resource is owned by another user: %w", failure.ErrUnauthorized)
)
