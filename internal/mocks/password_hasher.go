package mocks

import "github.com/phrazzld/usergate/internal/service/auth"

// PlainHasher is an auth.PasswordHasher that stores passwords with a fixed
// prefix instead of hashing them, keeping service tests fast.
type PlainHasher struct {
	// HashErr, when set, is returned by Hash.
	HashErr error
}

var _ auth.PasswordHasher = (*PlainHasher)(nil)

const plainPrefix = "plain:"

// Hash implements auth.PasswordHasher.
func (h *PlainHasher) Hash(password string) (string, error) {
	if h.HashErr != nil {
		return "", h.HashErr
	}
	return plainPrefix + password, nil
}

// Compare implements auth.PasswordHasher.
func (h *PlainHasher) Compare(hashedPassword, password string) error {
	if hashedPassword != plainPrefix+password {
		return auth.ErrPasswordMismatch
	}
	return nil
}
