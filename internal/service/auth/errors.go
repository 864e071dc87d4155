package auth

import (
	"errors"
	"fmt"

	"github.com/phrazzld/usergate/internal/failure"
)

// Common authentication service errors. All of them classify as Unauthorized.
var (
	// ErrInvalidToken indicates the token format is invalid or signature doesn't match
	ErrInvalidToken = fmt.Errorf("invalid authentication token: %w", failure.ErrUnauthorized)

	// ErrExpiredToken indicates the token has expired
	ErrExpiredToken = fmt.Errorf("authentication token has expired: %w", failure.ErrUnauthorized)

	// ErrTokenNotYetValid indicates the token is not yet valid (nbf claim in the future)
	ErrTokenNotYetValid = fmt.Errorf("authentication token not yet valid: %w", failure.ErrUnauthorized)

	// ErrMissingToken indicates a token was expected but not provided
	ErrMissingToken = fmt.Errorf("authentication token is missing: %w", failure.ErrUnauthorized)

	// ErrPasswordMismatch is returned by PasswordHasher.Compare on a wrong password.
	ErrPasswordMismatch = errors.New("password does not match")
)
