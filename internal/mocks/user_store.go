package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/usergate/internal/domain"
	"github.com/phrazzld/usergate/internal/store"
	"github.com/stretchr/testify/mock"
)

// UserStore is a mock of store.UserStore for use with testify/mock.
type UserStore struct {
	mock.Mock
}

var _ store.UserStore = (*UserStore)(nil)

// Create is a mock implementation of store.UserStore.Create
func (m *UserStore) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// GetByID is a mock implementation of store.UserStore.GetByID
func (m *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	return userArg(args, 0), args.Error(1)
}

// GetByEmail is a mock implementation of store.UserStore.GetByEmail
func (m *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	return userArg(args, 0), args.Error(1)
}

// GetByUsername is a mock implementation of store.UserStore.GetByUsername
func (m *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	return userArg(args, 0), args.Error(1)
}

// Update is a mock implementation of store.UserStore.Update
func (m *UserStore) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// Delete is a mock implementation of store.UserStore.Delete
func (m *UserStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// List is a mock implementation of store.UserStore.List
func (m *UserStore) List(ctx context.Context, opts store.ListOptions) ([]*domain.User, int, error) {
	args := m.Called(ctx, opts)
	users, _ := args.Get(0).([]*domain.User)
	return users, args.Int(1), args.Error(2)
}

func userArg(args mock.Arguments, i int) *domain.User {
	if user, ok := args.Get(i).(*domain.User); ok {
		return user
	}
	return nil
}
