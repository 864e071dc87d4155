package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phrazzld/usergate/internal/api/shared"
	"github.com/phrazzld/usergate/internal/audit"
	"github.com/phrazzld/usergate/internal/config"
	"github.com/phrazzld/usergate/internal/platform/clock"
	"github.com/phrazzld/usergate/internal/platform/logger"
	"github.com/phrazzld/usergate/internal/service/auth"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret-long-enough-for-hs256"

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

// harness is the standard stage order minus the transport stages.
type harness struct {
	pipeline *Pipeline
	sink     *audit.MemorySink
	logs     *logger.TestLogBuffer
	clock    *clock.Fake
	tokens   auth.JWTService
}

func newHarness(t *testing.T, handler http.Handler) *harness {
	t.Helper()

	log, buf := logger.GetTestLogger(t)
	clk := clock.NewFake(fixedNow)
	tokens, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:            testSecret,
		Issuer:               config.DefaultIssuer,
		Audience:             config.DefaultAudience,
		TokenLifetimeMinutes: 60,
	}, clk)
	require.NoError(t, err)

	sink := audit.NewMemorySink()
	boundary := NewBoundary(WithFailureClock(clk))
	p := NewPipeline(handler, log,
		boundary,
		NewAuditRecorder(sink, WithClock(clk), WithFailureWriter(boundary.FailureWriter())),
		SecurityHeaders{},
		NewAuthenticator(tokens, NewPathExclusionPolicy()),
	)

	return &harness{pipeline: p, sink: sink, logs: buf, clock: clk, tokens: tokens}
}

func (h *harness) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.pipeline.ServeHTTP(rec, req)
	return rec
}

func (h *harness) token(t *testing.T, id auth.Identity, ttl time.Duration) string {
	t.Helper()
	token, _, err := h.tokens.GenerateToken(t.Context(), id, ttl)
	require.NoError(t, err)
	return token
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	var resp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "body: %s", rec.Body.String())
	return resp
}

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(body))
	})
}
