package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Field validation errors. All of them wrap ErrValidation.
var (
	ErrEmptyUserID         = fmt.Errorf("%w: user ID cannot be empty", ErrValidation)
	ErrEmptyUsername       = fmt.Errorf("%w: username cannot be empty", ErrValidation)
	ErrInvalidUsername     = fmt.Errorf("%w: username must be 3-50 letters, digits, '.', '_' or '-'", ErrValidation)
	ErrInvalidEmail        = fmt.Errorf("%w: invalid email format", ErrValidation)
	ErrEmptyEmail          = fmt.Errorf("%w: email cannot be empty", ErrValidation)
	ErrNameTooLong         = fmt.Errorf("%w: name must be at most 100 characters long", ErrValidation)
	ErrPasswordTooShort    = fmt.Errorf("%w: password must be at least 12 characters long", ErrValidation)
	ErrPasswordTooLong     = fmt.Errorf("%w: password must be at most 72 characters long", ErrValidation)
	ErrEmptyPassword       = fmt.Errorf("%w: password cannot be empty", ErrValidation)
	ErrEmptyHashedPassword = fmt.Errorf("%w: hashed password cannot be empty", ErrValidation)
)

const (
	minUsernameLength = 3
	maxUsernameLength = 50
	maxNameLength     = 100
	minPasswordLength = 12
	maxPasswordLength = 72
)

// User represents a registered account.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`

	Password       string `json:"-"` // Plaintext password, used temporarily during registration/updates
	HashedPassword string `json:"-"` // Never expose password hash in JSON

	FailedLoginAttempts int        `json:"-"`
	LockoutEnd          *time.Time `json:"-"`
	LastLoginAt         *time.Time `json:"lastLoginAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewUser creates a new User with a fresh ID and timestamps set to now.
// Returns an error if validation fails.
//
// NOTE: This function only sets up the user structure with the plaintext password.
// The caller is responsible for hashing the password before storing the user.
func NewUser(username, email, password, firstName, lastName string, now time.Time) (*User, error) {
	now = now.UTC()
	user := &User{
		ID:        uuid.New(),
		Username:  strings.TrimSpace(username),
		Email:     NormalizeEmail(email),
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Password:  password,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
// Returns an error if any field fails validation.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}

	if u.Username == "" {
		return ErrEmptyUsername
	}
	if !validateUsername(u.Username) {
		return ErrInvalidUsername
	}

	if u.Email == "" {
		return ErrEmptyEmail
	}
	if !validateEmailFormat(u.Email) {
		return ErrInvalidEmail
	}

	if len(u.FirstName) > maxNameLength || len(u.LastName) > maxNameLength {
		return ErrNameTooLong
	}

	// A plaintext password is only present during creation/update; stored
	// users must carry a hash instead.
	if u.Password != "" {
		return ValidatePassword(u.Password)
	}
	if u.HashedPassword == "" {
		return ErrEmptyPassword
	}

	return nil
}

// DisplayName returns "First Last", falling back to the username.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// IsLockedOut reports whether the account is locked at now.
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockoutEnd != nil && now.Before(*u.LockoutEnd)
}

// RecordFailedLogin counts a failed login attempt. When the count reaches
// maxAttempts the account is locked until now+lockout and the counter
// restarts. Reports whether this attempt triggered a lockout.
func (u *User) RecordFailedLogin(now time.Time, maxAttempts int, lockout time.Duration) bool {
	u.FailedLoginAttempts++
	u.UpdatedAt = now.UTC()
	if maxAttempts > 0 && u.FailedLoginAttempts >= maxAttempts {
		end := now.UTC().Add(lockout)
		u.LockoutEnd = &end
		u.FailedLoginAttempts = 0
		return true
	}
	return false
}

// RecordSuccessfulLogin clears the failure counter and any expired lockout.
func (u *User) RecordSuccessfulLogin(now time.Time) {
	now = now.UTC()
	u.FailedLoginAttempts = 0
	u.LockoutEnd = nil
	u.LastLoginAt = &now
	u.UpdatedAt = now
}

// NormalizeEmail lowercases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePassword checks the plaintext password length rules:
// at least 12 characters and at most 72 (bcrypt's input limit).
func ValidatePassword(password string) error {
	switch {
	case password == "":
		return ErrEmptyPassword
	case len(password) < minPasswordLength:
		return ErrPasswordTooShort
	case len(password) > maxPasswordLength:
		return ErrPasswordTooLong
	}
	return nil
}

func validateUsername(username string) bool {
	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		return false
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// validateEmailFormat performs basic validation of email format: a non-empty
// local part, a single '@', and a domain with a dot that is neither leading
// nor trailing. Request DTOs get full RFC checks from the validator.
func validateEmailFormat(email string) bool {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 || strings.Count(email, "@") != 1 {
		return false
	}

	domainPart := email[at+1:]
	dot := strings.Index(domainPart, ".")
	return dot > 0 && dot < len(domainPart)-1
}
