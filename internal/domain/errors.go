package domain

import (
	"errors"
	"fmt"

	"github.com/phrazzld/usergate/internal/failure"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// It classifies as an invalid argument.
	ErrValidation = fmt.Errorf("validation failed: %w", failure.ErrInvalidArgument)

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = fmt.Errorf("%w: invalid ID", ErrValidation)

	// ErrAccountLocked is returned when a login is attempted during lockout.
	ErrAccountLocked = errors.New("account is locked")
)
