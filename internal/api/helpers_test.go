package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/usergate/internal/api/middleware"
	"github.com/phrazzld/usergate/internal/api/shared"
	"github.com/phrazzld/usergate/internal/config"
	"github.com/phrazzld/usergate/internal/mocks"
	"github.com/phrazzld/usergate/internal/platform/clock"
	"github.com/phrazzld/usergate/internal/platform/logger"
	"github.com/phrazzld/usergate/internal/platform/memory"
	"github.com/phrazzld/usergate/internal/service"
	"github.com/phrazzld/usergate/internal/service/auth"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "api-handler-test-secret-of-sufficient-length"
	testPassword = "correct-horse-battery"
)

var fixedNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	handler http.Handler
	store   *memory.UserStore
	clock   *clock.Fake
	logs    *logger.TestLogBuffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log, logs := logger.GetTestLogger(t)
	st := memory.NewUserStore()
	clk := clock.NewFake(fixedNow)
	users := service.NewUserService(st, &mocks.PlainHasher{},
		service.LockoutPolicy{MaxFailedLogins: 3, Duration: 15 * time.Minute}, clk, log)
	tokens, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:            testSecret,
		Issuer:               config.DefaultIssuer,
		Audience:             config.DefaultAudience,
		TokenLifetimeMinutes: 60,
	}, clk)
	require.NoError(t, err)

	authHandler := NewAuthHandler(users, tokens, log)
	userHandler := NewUserHandler(users, log)

	r := chi.NewRouter()
	r.Get("/health", Handle(NewHealthHandler(nil).Health))
	r.Post("/api/test/echo", Handle(Echo))
	r.Post("/api/auth/register", Handle(authHandler.Register))
	r.Post("/api/auth/login", Handle(authHandler.Login))
	r.Get("/api/users", Handle(userHandler.List))
	r.Get("/api/users/me", Handle(userHandler.Me))
	r.Get("/api/users/{id}", Handle(userHandler.Get))
	r.Put("/api/users/{id}", Handle(userHandler.Update))
	r.Delete("/api/users/{id}", Handle(userHandler.Delete))

	p := middleware.NewPipeline(r, log,
		middleware.NewBoundary(middleware.WithFailureClock(clk)),
		middleware.NewAuthenticator(tokens, middleware.NewPathExclusionPolicy()),
	)
	return &testEnv{handler: p, store: st, clock: clk, logs: logs}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// register creates an account and returns its auth response.
func (e *testEnv) register(t *testing.T, username string) AuthResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Username:  username,
		Email:     username + "@example.com",
		Password:  testPassword,
		FirstName: "Test",
		LastName:  "User",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[AuthResponse](t, rec)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	return decode[shared.ErrorResponse](t, rec)
}
