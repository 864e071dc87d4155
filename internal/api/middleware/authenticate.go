package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/usergate/internal/api/shared"
	"github.com/phrazzld/usergate/internal/platform/logger"
	"github.com/phrazzld/usergate/internal/service/auth"
)

// Rejection messages sent with a 401.
const (
	MessageTokenRequired = "Access token is required"
	MessageTokenInvalid  = "Invalid or expired token"
)

// MessagePathNotCanonical is sent with a 400 for paths containing dot or
// empty segments.
const MessagePathNotCanonical = "Request path must not contain dot or empty segments"

// TokenQueryParam is the fallback token source when no bearer header is sent.
const TokenQueryParam = "token"

// Authenticator rejects requests to non-excluded paths that lack a valid
// token, and attaches the token's identity to the context otherwise.
type Authenticator struct {
	tokens auth.JWTService
	policy *PathExclusionPolicy
}

// NewAuthenticator creates the authentication stage. A nil policy uses
// DefaultExcludedPaths.
func NewAuthenticator(tokens auth.JWTService, policy *PathExclusionPolicy) *Authenticator {
	if policy == nil {
		policy = NewPathExclusionPolicy()
	}
	return &Authenticator{tokens: tokens, policy: policy}
}

// Name implements Interceptor.
func (a *Authenticator) Name() string { return StageAuthenticate }

// Intercept implements Interceptor.
func (a *Authenticator) Intercept(w http.ResponseWriter, r *http.Request, next Next) error {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	// The router resolves dot segments, so /health/../api/users would
	// otherwise pass as excluded and be served as /api/users.
	if !IsCanonicalPath(r.URL.Path) {
		log.Warn("Non-canonical request path",
			slog.String("path", r.URL.Path),
			slog.String("method", r.Method))
		shared.RespondWithError(w, r, http.StatusBadRequest, CategoryBadRequest, MessagePathNotCanonical)
		return nil
	}

	if a.policy.IsExcluded(r.URL.Path) {
		return next(w, r)
	}

	token := ExtractToken(r)
	if token == "" {
		log.Warn("No token provided",
			slog.String("path", r.URL.Path),
			slog.String("method", r.Method))
		shared.RespondWithError(w, r, http.StatusUnauthorized, CategoryUnauthorized, MessageTokenRequired)
		return nil
	}

	claims, err := a.tokens.ValidateToken(ctx, token)
	if err != nil {
		log.Warn("Invalid token",
			slog.String("reason", err.Error()),
			slog.String("path", r.URL.Path),
			slog.String("method", r.Method))
		shared.RespondWithError(w, r, http.StatusUnauthorized, CategoryUnauthorized, MessageTokenInvalid)
		return nil
	}

	id := claims.Identity()
	log.Info("user authenticated",
		slog.String("user_id", id.UserID.String()),
		slog.String("user_name", id.Name),
		slog.String("path", r.URL.Path))

	return next(w, r.WithContext(shared.WithIdentity(ctx, id)))
}

// ExtractToken returns the bearer token from the Authorization header, or
// the token query parameter when the header carries none.
func ExtractToken(r *http.Request) string {
	if fields := strings.Fields(r.Header.Get("Authorization")); len(fields) == 2 &&
		strings.EqualFold(fields[0], "Bearer") {
		return fields[1]
	}
	return strings.TrimSpace(r.URL.Query().Get(TokenQueryParam))
}
