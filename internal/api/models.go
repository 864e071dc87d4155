package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/usergate/internal/domain"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Username  string `json:"username"  validate:"required,min=3,max=50"`
	Email     string `json:"email"     validate:"required,email"`
	Password  string `json:"password"  validate:"required,min=12,max=72"`
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName"  validate:"max=100"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" validate:"required,max=254"`
	Password        string `json:"password"        validate:"required,max=72"`
}

// UpdateUserRequest defines the payload for PUT /api/users/{id}. An omitted
// password keeps the current one.
type UpdateUserRequest struct {
	Email     string `json:"email"     validate:"required,email"`
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName"  validate:"max=100"`
	Password  string `json:"password"  validate:"omitempty,min=12,max=72"`
}

// ListUsersQuery holds the parsed query parameters of GET /api/users.
type ListUsersQuery struct {
	Page     int    `json:"page"     validate:"gte=0"`
	PageSize int    `json:"pageSize" validate:"gte=0,lte=100"`
	SortBy   string `json:"sortBy"   validate:"omitempty,oneof=username email createdAt"`
	SortDir  string `json:"sortDir"  validate:"omitempty,oneof=asc desc"`
	Search   string `json:"search"   validate:"max=100"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	// Token is the bearer token for subsequent requests
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// UserListResponse is one page of users.
type UserListResponse struct {
	Items      []UserResponse `json:"items"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalCount int            `json:"totalCount"`
	TotalPages int            `json:"totalPages"`
}

func newUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
