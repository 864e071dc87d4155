package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/usergate/internal/domain"
	"github.com/phrazzld/usergate/internal/platform/clock"
	"github.com/phrazzld/usergate/internal/platform/logger"
	"github.com/phrazzld/usergate/internal/redact"
	"github.com/phrazzld/usergate/internal/service/auth"
	"github.com/phrazzld/usergate/internal/store"
)

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// UpdateInput carries the mutable account fields. An empty Password leaves
// the current password unchanged.
type UpdateInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// LockoutPolicy bounds consecutive failed logins.
type LockoutPolicy struct {
	MaxFailedLogins int
	Duration        time.Duration
}

// UserService provides account operations.
type UserService interface {
	// Register creates a new account with a hashed password.
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)

	// Authenticate verifies credentials, applying the lockout policy.
	// Any failure is reported as ErrInvalidCredentials.
	Authenticate(ctx context.Context, usernameOrEmail, password string) (*domain.User, error)

	// GetUser retrieves a user by their ID
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// ListUsers returns one page of users and the total match count.
	ListUsers(ctx context.Context, opts store.ListOptions) ([]*domain.User, int, error)

	// UpdateUser changes the account of userID on behalf of actorID.
	UpdateUser(ctx context.Context, actorID, userID uuid.UUID, in UpdateInput) (*domain.User, error)

	// DeleteUser deletes the account of userID on behalf of actorID.
	DeleteUser(ctx context.Context, actorID, userID uuid.UUID) error
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	userStore store.UserStore
	hasher    auth.PasswordHasher
	lockout   LockoutPolicy
	clock     clock.Clock
	logger    *slog.Logger
}

var _ UserService = (*UserServiceImpl)(nil)

// NewUserService creates a new UserService. A nil clk uses the system clock
// and a nil logger the default logger.
func NewUserService(
	userStore store.UserStore,
	hasher auth.PasswordHasher,
	lockout LockoutPolicy,
	clk clock.Clock,
	log *slog.Logger,
) *UserServiceImpl {
	if clk == nil {
		clk = clock.System()
	}
	if log == nil {
		log = slog.Default()
	}
	return &UserServiceImpl{
		userStore: userStore,
		hasher:    hasher,
		lockout:   lockout,
		clock:     clk,
		logger:    log.With(slog.String("component", "user_service")),
	}
}

// Register implements UserService.
func (s *UserServiceImpl) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(in.Username, in.Email, in.Password, in.FirstName, in.LastName, s.clock.Now())
	if err != nil {
		log.Debug("rejected registration", slog.String("error", err.Error()))
		return nil, err
	}

	if err := s.setPassword(user, in.Password); err != nil {
		return nil, err
	}

	if err := s.userStore.Create(ctx, user); err != nil {
		if store.IsDuplicateError(err) {
			log.Debug("attempted to register an existing account", slog.String("username", user.Username))
		} else {
			log.Error("failed to save user", slog.String("error", redact.Error(err)))
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info("user registered", slog.String("user_id", user.ID.String()))
	return user, nil
}

// Authenticate implements UserService.
func (s *UserServiceImpl) Authenticate(
	ctx context.Context,
	usernameOrEmail, password string,
) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.lookup(ctx, usernameOrEmail)
	if err != nil {
		if store.IsNotFoundError(err) {
			log.Debug("login for unknown account")
			return nil, ErrInvalidCredentials
		}
		log.Error("failed to load user for login", slog.String("error", redact.Error(err)))
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	now := s.clock.Now()
	if user.IsLockedOut(now) {
		log.Warn("login attempt on locked account", slog.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, domain.ErrAccountLocked)
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			log.Error("password comparison failed", slog.String("error", err.Error()))
		}
		locked := user.RecordFailedLogin(now, s.lockout.MaxFailedLogins, s.lockout.Duration)
		if uerr := s.userStore.Update(ctx, user); uerr != nil {
			log.Error("failed to record failed login", slog.String("error", redact.Error(uerr)))
		}
		if locked {
			log.Warn("account locked after repeated failed logins",
				slog.String("user_id", user.ID.String()),
				slog.Time("lockout_end", *user.LockoutEnd))
		}
		return nil, ErrInvalidCredentials
	}

	user.RecordSuccessfulLogin(now)
	if err := s.userStore.Update(ctx, user); err != nil {
		log.Error("failed to record successful login", slog.String("error", redact.Error(err)))
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	log.Info("user logged in", slog.String("user_id", user.ID.String()))
	return user, nil
}

// GetUser implements UserService.
func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return user, nil
}

// ListUsers implements UserService.
func (s *UserServiceImpl) ListUsers(ctx context.Context, opts store.ListOptions) ([]*domain.User, int, error) {
	users, total, err := s.userStore.List(ctx, opts.Normalize())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// UpdateUser implements UserService.
func (s *UserServiceImpl) UpdateUser(
	ctx context.Context,
	actorID, userID uuid.UUID,
	in UpdateInput,
) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if actorID != userID {
		log.Warn("rejected update of another user's account",
			slog.String("actor_id", actorID.String()),
			slog.String("user_id", userID.String()))
		return nil, ErrNotOwned
	}

	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve user for update: %w", err)
	}

	user.Email = domain.NormalizeEmail(in.Email)
	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	user.Password = in.Password
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if in.Password != "" {
		if err := s.setPassword(user, in.Password); err != nil {
			return nil, err
		}
	}
	user.UpdatedAt = s.clock.Now().UTC()

	if err := s.userStore.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	log.Info("user updated", slog.String("user_id", userID.String()))
	return user, nil
}

// DeleteUser implements UserService.
func (s *UserServiceImpl) DeleteUser(ctx context.Context, actorID, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if actorID != userID {
		log.Warn("rejected deletion of another user's account",
			slog.String("actor_id", actorID.String()),
			slog.String("user_id", userID.String()))
		return ErrNotOwned
	}

	if err := s.userStore.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	log.Info("user deleted", slog.String("user_id", userID.String()))
	return nil
}

func (s *UserServiceImpl) lookup(ctx context.Context, usernameOrEmail string) (*domain.User, error) {
	identifier := strings.TrimSpace(usernameOrEmail)
	if identifier == "" {
		return nil, store.ErrUserNotFound
	}
	if strings.Contains(identifier, "@") {
		return s.userStore.GetByEmail(ctx, domain.NormalizeEmail(identifier))
	}
	return s.userStore.GetByUsername(ctx, identifier)
}

// setPassword hashes the plaintext and clears it from the user.
func (s *UserServiceImpl) setPassword(user *domain.User, password string) error {
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.HashedPassword = hashed
	user.Password = ""
	return nil
}
