package store

import "strings"

// Pagination limits applied by ListOptions.Normalize.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Sort keys accepted for user listings.
const (
	SortByUsername  = "username"
	SortByEmail     = "email"
	SortByCreatedAt = "createdAt"
)

// ListOptions selects a page of users.
type ListOptions struct {
	Page     int
	PageSize int
	SortBy   string
	SortDesc bool
	// Search matches case-insensitively against username, email, first and
	// last name.
	Search string
}

// Normalize returns a copy of o with defaults applied and values clamped to
// the supported ranges. Unknown sort keys fall back to createdAt.
func (o ListOptions) Normalize() ListOptions {
	if o.Page < 1 {
		o.Page = DefaultPage
	}
	switch {
	case o.PageSize < 1:
		o.PageSize = DefaultPageSize
	case o.PageSize > MaxPageSize:
		o.PageSize = MaxPageSize
	}

	switch strings.ToLower(o.SortBy) {
	case strings.ToLower(SortByUsername):
		o.SortBy = SortByUsername
	case strings.ToLower(SortByEmail):
		o.SortBy = SortByEmail
	default:
		o.SortBy = SortByCreatedAt
	}

	o.Search = strings.TrimSpace(o.Search)
	return o
}

// Offset returns the number of rows to skip for the page.
func (o ListOptions) Offset() int {
	return (o.Page - 1) * o.PageSize
}

// TotalPages returns the number of pages needed for total items.
func (o ListOptions) TotalPages(total int) int {
	if o.PageSize <= 0 || total <= 0 {
		return 0
	}
	return (total + o.PageSize - 1) / o.PageSize
}
