// Package memory provides an in-memory implementation of store.UserStore for
// development and tests. Data does not survive a restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/usergate/internal/domain"
	"github.com/phrazzld/usergate/internal/store"
)

// UserStore keeps users in maps guarded by a RWMutex. Lookups by email and
// username are case-insensitive.
type UserStore struct {
	mu            sync.RWMutex
	users         map[uuid.UUID]domain.User
	emailIndex    map[string]uuid.UUID
	usernameIndex map[string]uuid.UUID
}

var _ store.UserStore = (*UserStore)(nil)

// NewUserStore constructs an empty store.
func NewUserStore() *UserStore {
	return &UserStore{
		users:         make(map[uuid.UUID]domain.User),
		emailIndex:    make(map[string]uuid.UUID),
		usernameIndex: make(map[string]uuid.UUID),
	}
}

// Create stores the user record.
func (s *UserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.emailIndex[key(user.Email)]; exists {
		return store.ErrEmailExists
	}
	if _, exists := s.usernameIndex[key(user.Username)]; exists {
		return store.ErrUsernameExists
	}
	if _, exists := s.users[user.ID]; exists {
		return store.ErrDuplicate
	}

	s.put(*user)
	return nil
}

// GetByID fetches by ID.
func (s *UserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return clone(user), nil
}

// GetByEmail returns a user by email.
func (s *UserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byIndex(s.emailIndex, email)
}

// GetByUsername returns a user by username.
func (s *UserStore) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byIndex(s.usernameIndex, username)
}

// Update replaces the stored record, keeping the secondary indexes in step.
func (s *UserStore) Update(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return store.ErrUserNotFound
	}
	if id, taken := s.emailIndex[key(user.Email)]; taken && id != user.ID {
		return store.ErrEmailExists
	}
	if id, taken := s.usernameIndex[key(user.Username)]; taken && id != user.ID {
		return store.ErrUsernameExists
	}

	delete(s.emailIndex, key(existing.Email))
	delete(s.usernameIndex, key(existing.Username))
	updated := *user
	updated.CreatedAt = existing.CreatedAt
	s.put(updated)
	return nil
}

// Delete removes the user.
func (s *UserStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	delete(s.users, id)
	delete(s.emailIndex, key(existing.Email))
	delete(s.usernameIndex, key(existing.Username))
	return nil
}

// List filters, sorts and pages the users. Ties on the sort key are broken
// by ID so pages are stable.
func (s *UserStore) List(_ context.Context, opts store.ListOptions) ([]*domain.User, int, error) {
	s.mu.RLock()
	matched := make([]domain.User, 0, len(s.users))
	search := strings.ToLower(opts.Search)
	for _, u := range s.users {
		if search == "" || matches(u, search) {
			matched = append(matched, u)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var cmp int
		switch opts.SortBy {
		case store.SortByUsername:
			cmp = strings.Compare(key(a.Username), key(b.Username))
		case store.SortByEmail:
			cmp = strings.Compare(a.Email, b.Email)
		default:
			cmp = a.CreatedAt.Compare(b.CreatedAt)
		}
		if cmp == 0 {
			cmp = strings.Compare(a.ID.String(), b.ID.String())
		}
		if opts.SortDesc {
			return cmp > 0
		}
		return cmp < 0
	})

	total := len(matched)
	start := opts.Offset()
	if start > total {
		start = total
	}
	end := start + opts.PageSize
	if end > total {
		end = total
	}

	page := make([]*domain.User, 0, end-start)
	for _, u := range matched[start:end] {
		page = append(page, clone(u))
	}
	return page, total, nil
}

func (s *UserStore) put(user domain.User) {
	user.Password = ""
	s.users[user.ID] = user
	s.emailIndex[key(user.Email)] = user.ID
	s.usernameIndex[key(user.Username)] = user.ID
}

func (s *UserStore) byIndex(index map[string]uuid.UUID, value string) (*domain.User, error) {
	id, ok := index[key(value)]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return clone(s.users[id]), nil
}

func matches(u domain.User, search string) bool {
	for _, field := range []string{u.Username, u.Email, u.FirstName, u.LastName} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

func key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// clone copies the user including the pointer fields so callers cannot
// mutate stored state.
func clone(u domain.User) *domain.User {
	if u.LockoutEnd != nil {
		t := *u.LockoutEnd
		u.LockoutEnd = &t
	}
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		u.LastLoginAt = &t
	}
	return &u
}
