package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/usergate/internal/mocks"
	"github.com/phrazzld/usergate/internal/platform/clock"
	"github.com/phrazzld/usergate/internal/platform/memory"
	"github.com/phrazzld/usergate/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	resp := env.register(t, "ada")

	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, fixedNow.Add(time.Hour), resp.ExpiresAt)
	assert.NotEqual(t, uuid.Nil, resp.User.ID)
	assert.Equal(t, "ada", resp.User.Username)
	assert.Equal(t, "ada@example.com", resp.User.Email)

	stored, err := env.store.GetByID(t.Context(), resp.User.ID)
	require.NoError(t, err)
	assert.NotEqual(t, testPassword, stored.HashedPassword)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"missing username", map[string]string{"email": "a@example.com", "password": testPassword}, "username"},
		{"invalid email", map[string]string{"username": "ada", "email": "not-an-email", "password": testPassword}, "email"},
		{"short password", map[string]string{"username": "ada", "email": "a@example.com", "password": "short"}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/auth/register", "", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := errorBody(t, rec)
			assert.Equal(t, "Bad Request", resp.Error)
			assert.Equal(t, "Validation failed", resp.Message)
			assert.True(t, fixedNow.Equal(resp.Timestamp), "timestamp %s", resp.Timestamp)
			require.NotEmpty(t, resp.Errors)
			assert.Equal(t, tt.field, resp.Errors[0].Field)
		})
	}
}

func TestRegisterMalformedBody(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{"{", `{"username":"ada","unknown":1}`, `{"username":"ada"} {}`} {
		rec := env.do(t, http.MethodPost, "/api/auth/register", "", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, MessageInvalidFormat, errorBody(t, rec).Message, body)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ada")

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Username: "ada", Email: "other@example.com", Password: testPassword,
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Conflict", errorBody(t, rec).Error)
}

func TestRegisterRejectsInvalidUsername(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Username: "has space", Email: "space@example.com", Password: testPassword,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, rec.Body.String(), "letters, digits")
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	registered := env.register(t, "grace")

	for _, identifier := range []string{"grace", "GRACE@example.com"} {
		rec := env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{
			UsernameOrEmail: identifier, Password: testPassword,
		})

		require.Equal(t, http.StatusOK, rec.Code, identifier)
		resp := decode[AuthResponse](t, rec)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, registered.User.ID, resp.User.ID)
		require.NotNil(t, resp.User.LastLoginAt)
	}
}

func TestLoginFailuresAreUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "linus")

	cases := []LoginRequest{
		{UsernameOrEmail: "linus", Password: "wrong-password-123"},
		{UsernameOrEmail: "nobody", Password: testPassword},
		{UsernameOrEmail: "nobody@example.com", Password: testPassword},
	}
	for _, c := range cases {
		rec := env.do(t, http.MethodPost, "/api/auth/login", "", c)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, c.UsernameOrEmail)
		assert.Equal(t, "Unauthorized", errorBody(t, rec).Error)
	}
}

func TestLoginLockout(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "barbara")

	for range 3 {
		rec := env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{
			UsernameOrEmail: "barbara", Password: "wrong-password-123",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	good := LoginRequest{UsernameOrEmail: "barbara", Password: testPassword}
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/auth/login", "", good).Code,
		"locked accounts reject the correct password")

	env.clock.Advance(16 * time.Minute)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/auth/login", "", good).Code)
}

func TestLoginTokenGenerationFailure(t *testing.T) {
	users := service.NewUserService(memory.NewUserStore(), &mocks.PlainHasher{},
		service.LockoutPolicy{MaxFailedLogins: 3, Duration: time.Minute}, clock.NewFake(fixedNow), nil)
	_, err := users.Register(t.Context(), service.RegisterInput{
		Username: "ken", Email: "ken@example.com", Password: testPassword,
	})
	require.NoError(t, err)

	h := NewAuthHandler(users, &mocks.MockJWTService{Err: errors.New("signer unavailable")}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"usernameOrEmail":"ken","password":"`+testPassword+`"}`))
	rec := httptest.NewRecorder()

	Handle(h.Login)(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "signer unavailable")
}
