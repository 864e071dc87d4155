package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/phrazzld/usergate/internal/failure"
	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("some error"), false},
		{"ErrNotFound", ErrNotFound, true},
		{"wrapped ErrUserNotFound", fmt.Errorf("lookup: %w", ErrUserNotFound), true},
		{"duplicate is not not-found", ErrEmailExists, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsNotFoundError(tt.err))
		})
	}
}

func TestIsDuplicateError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsDuplicateError(ErrEmailExists))
	assert.True(t, IsDuplicateError(fmt.Errorf("create: %w", ErrUsernameExists)))
	assert.False(t, IsDuplicateError(ErrUserNotFound))
	assert.False(t, IsDuplicateError(nil))
}

func TestStoreErrorsClassify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, failure.NotFound, failure.KindOf(ErrUserNotFound))
	assert.Equal(t, failure.Conflict, failure.KindOf(ErrEmailExists))
	assert.Equal(t, failure.InvalidArgument, failure.KindOf(ErrInvalidEntity))
	assert.Equal(t, failure.NotFound, failure.KindOf(fmt.Errorf("update: %w", ErrUserNotFound)))
	assert.Equal(t, "entity not found: user", ErrUserNotFound.Error())
}

func TestListOptionsNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   ListOptions
		want ListOptions
	}{
		{
			name: "defaults",
			in:   ListOptions{},
			want: ListOptions{Page: 1, PageSize: 10, SortBy: SortByCreatedAt},
		},
		{
			name: "clamps page size",
			in:   ListOptions{Page: 3, PageSize: 1000, SortBy: "EMAIL", SortDesc: true},
			want: ListOptions{Page: 3, PageSize: 100, SortBy: SortByEmail, SortDesc: true},
		},
		{
			name: "unknown sort key and negative page",
			in:   ListOptions{Page: -2, PageSize: 5, SortBy: "password", Search: "  bob "},
			want: ListOptions{Page: 1, PageSize: 5, SortBy: SortByCreatedAt, Search: "bob"},
		},
		{
			name: "username sort",
			in:   ListOptions{Page: 1, PageSize: 20, SortBy: "userName"},
			want: ListOptions{Page: 1, PageSize: 20, SortBy: SortByUsername},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestListOptionsPaging(t *testing.T) {
	t.Parallel()

	o := ListOptions{Page: 3, PageSize: 10}
	assert.Equal(t, 20, o.Offset())
	assert.Equal(t, 0, o.TotalPages(0))
	assert.Equal(t, 1, o.TotalPages(10))
	assert.Equal(t, 3, o.TotalPages(21))
}
