package auth

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/usergate/internal/config"
	"github.com/phrazzld/usergate/internal/failure"
	"github.com/phrazzld/usergate/internal/platform/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-testing"

var fixedTime = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func testAuthConfig(secret string) config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:            secret,
		Issuer:               config.DefaultIssuer,
		Audience:             config.DefaultAudience,
		TokenLifetimeMinutes: 60,
	}
}

func newTestService(t *testing.T, cfg config.AuthConfig, clk clock.Clock) JWTService {
	t.Helper()
	svc, err := NewJWTService(cfg, clk)
	require.NoError(t, err)
	return svc
}

func testIdentity() Identity {
	return Identity{UserID: uuid.New(), Name: "Ada Lovelace", Email: "ada@example.com"}
}

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(testAuthConfig("short"), nil)
	assert.Error(t, err)
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	clk := clock.NewFake(fixedTime)
	svc := newTestService(t, testAuthConfig(testSecret), clk)
	id := testIdentity()

	token, expiresAt, err := svc.GenerateToken(context.Background(), id, 0)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, fixedTime.Add(time.Hour), expiresAt, "zero ttl selects the configured lifetime")

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, id.UserID, claims.UserID)
	assert.Equal(t, id.UserID.String(), claims.Subject)
	assert.Equal(t, config.DefaultIssuer, claims.Issuer)
	assert.Equal(t, []string{config.DefaultAudience}, claims.Audience)
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, expiresAt.Unix(), claims.ExpiresAt.Unix())
	_, err = uuid.Parse(claims.ID)
	assert.NoError(t, err, "jti should be a uuid")
}

func TestGenerateTokenUniqueIDs(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, testAuthConfig(testSecret), clock.NewFake(fixedTime))
	id := testIdentity()

	first, _, err := svc.GenerateToken(context.Background(), id, time.Minute)
	require.NoError(t, err)
	second, _, err := svc.GenerateToken(context.Background(), id, time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	ttls := []time.Duration{time.Second, time.Minute, 24 * time.Hour, 30 * 24 * time.Hour}
	identities := []Identity{
		testIdentity(),
		{UserID: uuid.New(), Name: "", Email: ""},
		{UserID: uuid.New(), Name: "Ünïcödé 名前", Email: "x+tag@sub.example.org"},
	}

	for _, ttl := range ttls {
		for _, id := range identities {
			clk := clock.NewFake(fixedTime)
			svc := newTestService(t, testAuthConfig(testSecret), clk)

			token, _, err := svc.GenerateToken(context.Background(), id, ttl)
			require.NoError(t, err)

			clk.Advance(ttl - time.Second/2)
			claims, err := svc.ValidateToken(context.Background(), token)
			require.NoError(t, err, "ttl %s", ttl)
			assert.Equal(t, id, claims.Identity())
		}
	}
}

func TestValidateTokenExpiry(t *testing.T) {
	t.Parallel()

	t.Run("expired one second ago", func(t *testing.T) {
		t.Parallel()
		clk := clock.NewFake(fixedTime)
		svc := newTestService(t, testAuthConfig(testSecret), clk)

		token, _, err := svc.GenerateToken(context.Background(), testIdentity(), time.Minute)
		require.NoError(t, err)

		clk.Advance(time.Minute + time.Second)
		_, err = svc.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrExpiredToken)
		assert.Equal(t, failure.Unauthorized, failure.KindOf(err))
	})

	t.Run("no grace at the expiry instant", func(t *testing.T) {
		t.Parallel()
		clk := clock.NewFake(fixedTime)
		svc := newTestService(t, testAuthConfig(testSecret), clk)

		token, _, err := svc.GenerateToken(context.Background(), testIdentity(), time.Minute)
		require.NoError(t, err)

		clk.Advance(time.Minute)
		_, err = svc.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("missing exp is rejected", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t, testAuthConfig(testSecret), clock.NewFake(fixedTime))

		token := signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
			"sub": uuid.NewString(),
			"iss": config.DefaultIssuer,
			"aud": config.DefaultAudience,
		})
		_, err := svc.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestValidateTokenTamperDetection(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, testAuthConfig(testSecret), clock.NewFake(fixedTime))
	token, _, err := svc.GenerateToken(context.Background(), testIdentity(), time.Hour)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	require.NoError(t, err)

	for i := range sig {
		flipped := append([]byte(nil), sig...)
		flipped[i] ^= 0x01
		tampered := parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString(flipped)

		_, err := svc.ValidateToken(context.Background(), tampered)
		assert.ErrorIs(t, err, ErrInvalidToken, "byte %d", i)
	}
}

func TestValidateTokenRejections(t *testing.T) {
	t.Parallel()

	id := testIdentity()
	validClaims := jwt.MapClaims{
		"sub":  id.UserID.String(),
		"name": id.Name,
		"iss":  config.DefaultIssuer,
		"aud":  config.DefaultAudience,
		"iat":  fixedTime.Unix(),
		"exp":  fixedTime.Add(time.Hour).Unix(),
	}

	withClaim := func(key string, value any) jwt.MapClaims {
		c := jwt.MapClaims{}
		for k, v := range validClaims {
			c[k] = v
		}
		c[key] = value
		return c
	}

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"empty", func(*testing.T) string { return "" }},
		{"garbage", func(*testing.T) string { return "not.a.jwt" }},
		{"different key", func(t *testing.T) string {
			return signClaims(t, jwt.SigningMethodHS256, []byte("another-secret-that-is-long-enough!!"), validClaims)
		}},
		{"alg none", func(t *testing.T) string {
			tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims).
				SignedString(jwt.UnsafeAllowNoneSignatureType)
			require.NoError(t, err)
			return tok
		}},
		{"HS512 with the right key", func(t *testing.T) string {
			return signClaims(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims)
		}},
		{"HS384 with the right key", func(t *testing.T) string {
			return signClaims(t, jwt.SigningMethodHS384, []byte(testSecret), validClaims)
		}},
		{"wrong issuer", func(t *testing.T) string {
			return signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), withClaim("iss", "someone-else"))
		}},
		{"wrong audience", func(t *testing.T) string {
			return signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), withClaim("aud", "other-clients"))
		}},
		{"subject not a uuid", func(t *testing.T) string {
			return signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), withClaim("sub", "admin"))
		}},
	}

	svc := newTestService(t, testAuthConfig(testSecret), clock.NewFake(fixedTime))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			claims, err := svc.ValidateToken(context.Background(), tt.token(t))
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	t.Run("control: valid claims are accepted", func(t *testing.T) {
		t.Parallel()
		claims, err := svc.ValidateToken(context.Background(),
			signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims))
		require.NoError(t, err)
		assert.Equal(t, id.UserID, claims.UserID)
		assert.Equal(t, id.Name, claims.Name)
	})
}

func TestConfigFallbacks(t *testing.T) {
	t.Parallel()

	cfg := config.AuthConfig{JWTSecret: testSecret}
	svc := newTestService(t, cfg, clock.NewFake(fixedTime))

	token, expiresAt, err := svc.GenerateToken(context.Background(), testIdentity(), 0)
	require.NoError(t, err)
	assert.Equal(t, fixedTime.Add(24*time.Hour), expiresAt)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultIssuer, claims.Issuer)
	assert.Equal(t, []string{config.DefaultAudience}, claims.Audience)
}

func signClaims(t *testing.T, method jwt.SigningMethod, key []byte, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return tok
}
