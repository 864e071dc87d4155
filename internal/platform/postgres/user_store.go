package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/usergate/internal/domain"
	"github.com/phrazzld/usergate/internal/platform/logger"
	"github.com/phrazzld/usergate/internal/redact"
	"github.com/phrazzld/usergate/internal/store"
)

const userColumns = `id, username, email, first_name, last_name, hashed_password,
	failed_login_attempts, lockout_end, last_login_at, created_at, updated_at`

// sortColumns maps the store sort keys to SQL expressions.
var sortColumns = map[string]string{
	store.SortByUsername:  "LOWER(username)",
	store.SortByEmail:     "email",
	store.SortByCreatedAt: "created_at",
}

// PostgresUserStore implements the store.UserStore interface
// using a PostgreSQL database as the storage backend.
type PostgresUserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUserStore creates a new PostgreSQL implementation of the UserStore interface.
// It accepts a database connection or transaction that is managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresUserStore(db store.DBTX, logger *slog.Logger) *PostgresUserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserStore{
		db:     db,
		logger: logger.With(slog.String("component", "user_store")),
	}
}

// Ensure PostgresUserStore implements store.UserStore interface
var _ store.UserStore = (*PostgresUserStore)(nil)

// Create implements store.UserStore.Create
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if user.HashedPassword == "" {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrEmptyHashedPassword)
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.HashedPassword,
		user.FailedLoginAttempts,
		user.LockoutEnd,
		user.LastLoginAt,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		mapped := MapError(err)
		if store.IsDuplicateError(mapped) {
			log.Debug("duplicate user on create", slog.String("user_id", user.ID.String()))
			return mapped
		}
		log.Error("failed to create user",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", user.ID.String()))
		return fmt.Errorf("create user: %w", mapped)
	}

	log.Info("user created", slog.String("user_id", user.ID.String()))
	return nil
}

// GetByID implements store.UserStore.GetByID
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.getOne(ctx, "id = $1", id)
}

// GetByEmail implements store.UserStore.GetByEmail
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx, "LOWER(email) = LOWER($1)", strings.TrimSpace(email))
}

// GetByUsername implements store.UserStore.GetByUsername
func (s *PostgresUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.getOne(ctx, "LOWER(username) = LOWER($1)", strings.TrimSpace(username))
}

func (s *PostgresUserStore) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	user, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		log.Error("failed to get user", slog.String("error", redact.Error(err)))
		return nil, fmt.Errorf("get user: %w", MapError(err))
	}
	return user, nil
}

// Update implements store.UserStore.Update
func (s *PostgresUserStore) Update(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE users
		SET username = $2, email = $3, first_name = $4, last_name = $5,
			hashed_password = $6, failed_login_attempts = $7, lockout_end = $8,
			last_login_at = $9, updated_at = $10
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.HashedPassword,
		user.FailedLoginAttempts,
		user.LockoutEnd,
		user.LastLoginAt,
		user.UpdatedAt,
	)
	if err != nil {
		mapped := MapError(err)
		if store.IsDuplicateError(mapped) {
			return mapped
		}
		log.Error("failed to update user",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", user.ID.String()))
		return fmt.Errorf("update user: %w", mapped)
	}

	return CheckRowsAffected(result, store.ErrUserNotFound)
}

// Delete implements store.UserStore.Delete
func (s *PostgresUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete user",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", id.String()))
		return fmt.Errorf("delete user: %w", MapError(err))
	}

	if err := CheckRowsAffected(result, store.ErrUserNotFound); err != nil {
		return err
	}

	log.Info("user deleted", slog.String("user_id", id.String()))
	return nil
}

// List implements store.UserStore.List
func (s *PostgresUserStore) List(ctx context.Context, opts store.ListOptions) ([]*domain.User, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where := ""
	var args []any
	if opts.Search != "" {
		where = ` WHERE username ILIKE $1 OR email ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1`
		args = append(args, "%"+escapeLike(opts.Search)+"%")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		log.Error("failed to count users", slog.String("error", redact.Error(err)))
		return nil, 0, fmt.Errorf("count users: %w", MapError(err))
	}

	column, ok := sortColumns[opts.SortBy]
	if !ok {
		column = sortColumns[store.SortByCreatedAt]
	}
	direction := "ASC"
	if opts.SortDesc {
		direction = "DESC"
	}

	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		userColumns, where, column, direction, direction, len(args)+1, len(args)+2)
	args = append(args, opts.PageSize, opts.Offset())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list users", slog.String("error", redact.Error(err)))
		return nil, 0, fmt.Errorf("list users: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	users := make([]*domain.User, 0, opts.PageSize)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate users: %w", MapError(err))
	}

	return users, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u           domain.User
		lockoutEnd  sql.NullTime
		lastLoginAt sql.NullTime
	)
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.HashedPassword,
		&u.FailedLoginAttempts,
		&lockoutEnd,
		&lastLoginAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lockoutEnd.Valid {
		t := lockoutEnd.Time.UTC()
		u.LockoutEnd = &t
	}
	if lastLoginAt.Valid {
		t := lastLoginAt.Time.UTC()
		u.LastLoginAt = &t
	}
	return &u, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
