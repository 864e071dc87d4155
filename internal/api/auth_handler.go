package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/usergate/internal/api/shared"
	"github.com/phrazzld/usergate/internal/domain"
	"github.com/phrazzld/usergate/internal/platform/logger"
	"github.com/phrazzld/usergate/internal/service"
	"github.com/phrazzld/usergate/internal/service/auth"
)

// AuthHandler handles registration and login.
type AuthHandler struct {
	users  service.UserService
	tokens auth.JWTService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(users service.UserService, tokens auth.JWTService, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{
		users:  users,
		tokens: tokens,
		logger: log.With(slog.String("component", "auth_handler")),
	}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) error {
	var req RegisterRequest
	if !decodeRequest(w, r, &req) {
		return nil
	}

	user, err := h.users.Register(r.Context(), service.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return err
	}

	return h.respondWithToken(w, r, http.StatusCreated, user)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) error {
	var req LoginRequest
	if !decodeRequest(w, r, &req) {
		return nil
	}

	user, err := h.users.Authenticate(r.Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		return err
	}

	return h.respondWithToken(w, r, http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, r *http.Request, status int, user *domain.User) error {
	token, expiresAt, err := h.tokens.GenerateToken(r.Context(), auth.Identity{
		UserID: user.ID,
		Name:   user.Username,
		Email:  user.Email,
	}, 0)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("issued access token",
		slog.String("user_id", user.ID.String()),
		slog.Time("expires_at", expiresAt))

	shared.RespondWithJSON(w, r, status, AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      newUserResponse(user),
	})
	return nil
}
