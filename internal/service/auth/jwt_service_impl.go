package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/usergate/internal/config"
	"github.com/phrazzld/usergate/internal/platform/clock"
	"github.com/phrazzld/usergate/internal/platform/logger"
)

// MinSecretLength is the shortest HMAC secret accepted.
const MinSecretLength = 32

// hmacJWTService is an implementation of JWTService using HMAC-SHA256 signing.
type hmacJWTService struct {
	signingKey    []byte
	issuer        string
	audience      string
	tokenLifetime time.Duration
	clock         clock.Clock
}

// jwtCustomClaims defines the structure of JWT claims we use
type jwtCustomClaims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Ensure hmacJWTService implements JWTService interface
var _ JWTService = (*hmacJWTService)(nil)

// NewJWTService creates a new JWT service using HMAC-SHA256 signing.
// A nil clk uses the system clock.
func NewJWTService(cfg config.AuthConfig, clk clock.Clock) (JWTService, error) {
	if len(cfg.JWTSecret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", MinSecretLength)
	}
	if clk == nil {
		clk = clock.System()
	}

	issuer := cfg.Issuer
	if issuer == "" {
		issuer = config.DefaultIssuer
	}
	audience := cfg.Audience
	if audience == "" {
		audience = config.DefaultAudience
	}
	lifetime := cfg.TokenLifetime()
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}

	return &hmacJWTService{
		signingKey:    []byte(cfg.JWTSecret),
		issuer:        issuer,
		audience:      audience,
		tokenLifetime: lifetime,
		clock:         clk,
	}, nil
}

// GenerateToken creates a signed JWT access token with identity claims.
func (s *hmacJWTService) GenerateToken(
	ctx context.Context,
	identity Identity,
	ttl time.Duration,
) (string, time.Time, error) {
	log := logger.FromContext(ctx)

	if ttl <= 0 {
		ttl = s.tokenLifetime
	}
	now := s.clock.Now()
	expiresAt := now.Add(ttl)

	claims := jwtCustomClaims{
		Name:  identity.Name,
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID.String(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.signingKey)
	if err != nil {
		log.Error("failed to sign JWT access token",
			slog.String("error", err.Error()),
			slog.String("user_id", identity.UserID.String()),
			slog.String("signing_method", jwt.SigningMethodHS256.Name))
		return "", time.Time{}, fmt.Errorf("failed to sign access token with HMAC-SHA256: %w", err)
	}

	return signedToken, expiresAt, nil
}

// ValidateToken validates a JWT access token and returns the claims if valid.
// Only HS256 is accepted, with no leeway on expiry.
func (s *hmacJWTService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	log := logger.FromContext(ctx)

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(0),
		jwt.WithTimeFunc(s.clock.Now),
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwtCustomClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.signingKey, nil
		},
		parserOpts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			log.Debug("access token validation failed: token expired", slog.String("error", err.Error()))
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			log.Debug("access token validation failed: token not yet valid", slog.String("error", err.Error()))
			return nil, ErrTokenNotYetValid
		case errors.Is(err, jwt.ErrTokenMalformed):
			log.Debug("access token validation failed: malformed token", slog.String("error", err.Error()))
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			log.Debug("access token validation failed: invalid signature", slog.String("error", err.Error()))
		default:
			log.Debug("access token validation failed",
				slog.String("error", err.Error()),
				slog.String("error_type", fmt.Sprintf("%T", err)))
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwtCustomClaims)
	if !ok || !token.Valid {
		log.Debug("token validation failed: invalid claims")
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		log.Debug("token validation failed: subject is not a user id")
		return nil, ErrInvalidToken
	}

	out := &Claims{
		UserID:    userID,
		Name:      claims.Name,
		Email:     claims.Email,
		Subject:   claims.Subject,
		Issuer:    claims.Issuer,
		Audience:  []string(claims.Audience),
		ExpiresAt: claims.ExpiresAt.Time,
		ID:        claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}

	log.Debug("access token validated successfully",
		slog.String("user_id", userID.String()),
		slog.String("token_id", claims.ID))

	return out, nil
}
