package api

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersRequireAuthentication(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.NewString()

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/users"},
		{http.MethodGet, "/api/users/me"},
		{http.MethodGet, "/api/users/" + id},
		{http.MethodPut, "/api/users/" + id},
		{http.MethodDelete, "/api/users/" + id},
	} {
		rec := env.do(t, tc.method, tc.path, "", nil)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.path)
		assert.Equal(t, "Access token is required", errorBody(t, rec).Message)
	}
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	ada := env.register(t, "ada")

	rec := env.do(t, http.MethodGet, "/api/users/me", ada.Token, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[UserResponse](t, rec)
	assert.Equal(t, ada.User.ID, me.ID)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestGetUser(t *testing.T) {
	env := newTestEnv(t)
	ada := env.register(t, "ada")
	bob := env.register(t, "bob")

	rec := env.do(t, http.MethodGet, "/api/users/"+bob.User.ID.String(), ada.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob", decode[UserResponse](t, rec).Username)

	rec = env.do(t, http.MethodGet, "/api/users/"+uuid.NewString(), ada.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", errorBody(t, rec).Error)

	rec = env.do(t, http.MethodGet, "/api/users/not-a-uuid", ada.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)
	ada := env.register(t, "ada")
	for _, name := range []string{"carol", "bob", "dave"} {
		env.register(t, name)
	}

	rec := env.do(t, http.MethodGet, "/api/users?sortBy=username&sortDir=desc&page=1&pageSize=3", ada.Token, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[UserListResponse](t, rec)
	assert.Equal(t, 4, page.TotalCount)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 3, page.PageSize)
	require.Len(t, page.Items, 3)
	assert.Equal(t, []string{"dave", "carol", "bob"},
		[]string{page.Items[0].Username, page.Items[1].Username, page.Items[2].Username})

	rec = env.do(t, http.MethodGet, "/api/users?search=CAR", ada.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[UserListResponse](t, rec)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "carol", page.Items[0].Username)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.PageSize)
}

func TestListUsersValidation(t *testing.T) {
	env := newTestEnv(t)
	ada := env.register(t, "ada")

	tests := []struct {
		query string
		field string
	}{
		{"page=abc", "page"},
		{"pageSize=101", "pageSize"},
		{"sortBy=password", "sortBy"},
		{"sortDir=sideways", "sortDir"},
	}
	for _, tt := range tests {
		rec := env.do(t, http.MethodGet, "/api/users?"+tt.query, ada.Token, nil)

		require.Equal(t, http.StatusBadRequest, rec.Code, tt.query)
		resp := errorBody(t, rec)
		require.NotEmpty(t, resp.Errors, tt.query)
		assert.Equal(t, tt.field, resp.Errors[0].Field, tt.query)
	}
}

func TestUpdateUser(t *testing.T) {
	env := newTestEnv(t)
	ada := env.register(t, "ada")

	rec := env.do(t, http.MethodPut, "/api/users/"+ada.User.ID.String(), ada.Token, UpdateUserRequest{
		Email:     "lovelace@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Password:  "a-brand-new-password",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[UserResponse](t, rec)
	assert.Equal(t, "lovelace@example.com", updated.Email)
	assert.Equal(t, "Lovelace", updated.LastName)

	login := env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{
		UsernameOrEmail: "ada", Password: "a-brand-new-password",
	})
	assert.Equal(t, http.StatusOK, login.Code)
}

func TestUpdateUserRequiresOwnership(t *testing.T) {
	env := newTestEnv(t)
	ada := env.register(t, "ada")
	bob := env.register(t, "bob")

	rec := env.do(t, http.MethodPut, "/api/users/"+bob.User.ID.String(), ada.Token, UpdateUserRequest{
		Email: "hijack@example.com",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	stored, err := env.store.GetByID(t.Context(), bob.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", stored.Email)
}

func TestUpdateUserValidation(t *testing.T) {
	env := newTestEnv(t)
	ada := env.register(t, "ada")

	rec := env.do(t, http.MethodPut, "/api/users/"+ada.User.ID.String(), ada.Token, UpdateUserRequest{
		Email:    "ada@example.com",
		Password: "short",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "password", errorBody(t, rec).Errors[0].Field)
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	ada := env.register(t, "ada")
	bob := env.register(t, "bob")

	rec := env.do(t, http.MethodDelete, "/api/users/"+bob.User.ID.String(), ada.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/users/"+ada.User.ID.String(), ada.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())

	rec = env.do(t, http.MethodGet, "/api/users/me", ada.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
