package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Identity is the authenticated principal a token asserts. It is attached to
// a request once by the authenticator and read-only afterward.
type Identity struct {
	UserID uuid.UUID
	Name   string
	Email  string
}

// JWTService defines operations for managing JWT authentication tokens.
type JWTService interface {
	// GenerateToken creates a signed JWT access token for the identity.
	// A ttl of zero or less selects the configured token lifetime.
	// Returns the token string and its expiry.
	GenerateToken(ctx context.Context, identity Identity, ttl time.Duration) (string, time.Time, error)

	// ValidateToken validates the provided access token string and extracts the claims.
	// Every failure is reported as ErrInvalidToken or ErrExpiredToken; the
	// underlying parse error is only logged.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the verified content of an access token.
type Claims struct {
	UserID uuid.UUID
	Name   string
	Email  string

	// Standard registered JWT claims
	Subject   string
	Issuer    string
	Audience  []string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}

// Identity projects the claims onto the principal they assert.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Name: c.Name, Email: c.Email}
}
