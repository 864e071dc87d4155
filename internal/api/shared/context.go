package shared

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/usergate/internal/platform/clock"
	"github.com/phrazzld/usergate/internal/service/auth"
)

// Key type for context values
type ContextKey string

// Context keys for various values
const (
	// UserIDContextKey holds the authenticated user's id (uuid.UUID).
	UserIDContextKey ContextKey = "UserId"

	// UserNameContextKey holds the authenticated user's display name.
	UserNameContextKey ContextKey = "UserName"

	// IdentityContextKey holds the full auth.Identity.
	IdentityContextKey ContextKey = "Identity"

	// ClockContextKey holds the clock.Clock that stamps error responses.
	ClockContextKey ContextKey = "Clock"

	// TraceIDKey is the key for the trace ID in the request context
	TraceIDKey ContextKey = "traceID"

	// TraceIDLength is the number of bytes used to generate the trace ID
	TraceIDLength = 16 // 32 hex characters
)

// SetTraceID adds a freshly generated trace ID to the context.
func SetTraceID(ctx context.Context) context.Context {
	return WithTraceID(ctx, NewTraceID())
}

// WithTraceID adds the given trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context.
// If no trace ID exists, it returns an empty string.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// NewTraceID returns a random 32-character hex id. The same id serves as the
// request's correlation id in audit entries and error responses.
func NewTraceID() string {
	b := make([]byte, TraceIDLength)
	n, err := rand.Read(b)
	if err != nil || n != TraceIDLength {
		slog.Error("failed to generate secure random trace ID",
			"error", err,
			"bytes_read", n,
			"fallback", "time-based generation")
		return generateFallbackTraceID()
	}
	return hex.EncodeToString(b)
}

var fallbackCounter atomic.Uint64

// generateFallbackTraceID mixes the wall clock with a process-wide counter.
// It is unique within the process but not unpredictable.
func generateFallbackTraceID() string {
	b := make([]byte, TraceIDLength)
	binary.BigEndian.PutUint64(b[:8], uint64(time.Now().UnixNano()))
	binary.BigEndian.PutUint64(b[8:], fallbackCounter.Add(1))
	return hex.EncodeToString(b)
}

// WithIdentity attaches an authenticated identity to the context under the
// identity, user id and user name keys.
func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	ctx = context.WithValue(ctx, IdentityContextKey, id)
	ctx = context.WithValue(ctx, UserIDContextKey, id.UserID)
	return context.WithValue(ctx, UserNameContextKey, id.Name)
}

// GetIdentity returns the identity attached by the authenticator.
func GetIdentity(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(IdentityContextKey).(auth.Identity)
	return id, ok
}

// GetUserID returns the authenticated user id.
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(UserIDContextKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// WithClock sets the clock used for response timestamps in ctx.
func WithClock(ctx context.Context, clk clock.Clock) context.Context {
	return context.WithValue(ctx, ClockContextKey, clk)
}

// Now returns the current UTC time from the clock in ctx, or from the system
// clock when none is set.
func Now(ctx context.Context) time.Time {
	if clk, ok := ctx.Value(ClockContextKey).(clock.Clock); ok && clk != nil {
		return clk.Now().UTC()
	}
	return time.Now().UTC()
}
