package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/usergate/internal/api/shared"
	"github.com/phrazzld/usergate/internal/failure"
	"github.com/phrazzld/usergate/internal/platform/clock"
	"github.com/phrazzld/usergate/internal/platform/logger"
	"github.com/phrazzld/usergate/internal/redact"
)

// Stage names reported by Pipeline.Stages.
const (
	StageBoundary        = "boundary"
	StageAudit           = "audit"
	StageTracing         = "tracing"
	StageSecurityHeaders = "security_headers"
	StageCORS            = "cors"
	StageRateLimit       = "rate_limit"
	StageAuthenticate    = "authenticate"
)

// Error categories sent to clients.
const (
	CategoryBadRequest   = "Bad Request"
	CategoryUnauthorized = "Unauthorized"
	CategoryNotFound     = "Not Found"
	CategoryConflict     = "Conflict"
	CategoryTimeout      = "Timeout"
	CategoryInternal     = "Internal Server Error"
)

// Classification is the client-facing rendering of a failure.
type Classification struct {
	Status   int
	Category string
	Message  string
}

var classifications = map[failure.Kind]Classification{
	failure.InvalidArgument: {http.StatusBadRequest, CategoryBadRequest, "The request was invalid."},
	failure.Unauthorized:    {http.StatusUnauthorized, CategoryUnauthorized, "You are not authorized to perform this action."},
	failure.NotFound:        {http.StatusNotFound, CategoryNotFound, "The requested resource was not found."},
	failure.Conflict:        {http.StatusConflict, CategoryConflict, "The request conflicts with the current state of the resource."},
	failure.Timeout:         {http.StatusRequestTimeout, CategoryTimeout, "The operation timed out."},
	failure.Internal:        {http.StatusInternalServerError, CategoryInternal, "An unexpected error occurred."},
}

// Classify maps err to its status, category and generic message.
func Classify(err error) Classification {
	if c, ok := classifications[failure.KindOf(err)]; ok {
		return c
	}
	return classifications[failure.Internal]
}

// FailureWriter renders a failure as a response.
type FailureWriter func(w http.ResponseWriter, r *http.Request, err error)

// WriteFailure logs err with full detail at error level, then writes the
// classified ErrorResponse. Only the category and generic message reach the
// client.
func WriteFailure(w http.ResponseWriter, r *http.Request, err error) {
	c := logFailure(r, err, "request failed")
	shared.RespondWithError(w, r, c.Status, c.Category, c.Message)
}

func logFailure(r *http.Request, err error, msg string) Classification {
	c := Classify(err)
	attrs := []slog.Attr{
		slog.String("error", redact.Error(err)),
		slog.String("error_type", fmt.Sprintf("%T", err)),
		slog.String("kind", failure.KindOf(err).String()),
		slog.Int("status", c.Status),
		slog.String("trace_id", shared.GetTraceID(r.Context())),
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method),
	}
	var pe *PanicError
	if errors.As(err, &pe) {
		attrs = append(attrs,
			slog.String("panic", fmt.Sprint(pe.Value)),
			slog.String("stack", string(pe.Stack)))
	}
	logger.FromContext(r.Context()).LogAttrs(r.Context(), slog.LevelError, msg, attrs...)
	return c
}

// Boundary is the outermost stage. Any error or panic from the stages below
// it becomes a classified JSON response, unless a response was already
// started, in which case the failure is only logged.
type Boundary struct {
	write FailureWriter
	clock clock.Clock
}

// BoundaryOption configures a Boundary.
type BoundaryOption func(*Boundary)

// WithFailureClock sets the clock that stamps every error response written
// below the boundary.
func WithFailureClock(clk clock.Clock) BoundaryOption {
	return func(b *Boundary) { b.clock = clk }
}

// NewBoundary creates the failure containment stage.
func NewBoundary(opts ...BoundaryOption) *Boundary {
	b := &Boundary{write: WriteFailure}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements Interceptor.
func (b *Boundary) Name() string { return StageBoundary }

// FailureWriter returns the writer inner stages use to render failures the
// same way the boundary does.
func (b *Boundary) FailureWriter() FailureWriter { return b.write }

// Intercept implements Interceptor.
func (b *Boundary) Intercept(w http.ResponseWriter, r *http.Request, next Next) error {
	if b.clock != nil {
		r = r.WithContext(shared.WithClock(r.Context(), b.clock))
	}
	tw := &trackingWriter{ResponseWriter: w}
	err := next(tw, r)
	if err == nil {
		return nil
	}
	if tw.started {
		logFailure(r, err, "request failed after response started")
		return nil
	}
	b.write(tw, r, err)
	return nil
}

// trackingWriter records whether the response has started.
type trackingWriter struct {
	http.ResponseWriter
	started bool
}

func (t *trackingWriter) WriteHeader(code int) {
	t.started = true
	t.ResponseWriter.WriteHeader(code)
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	t.started = true
	return t.ResponseWriter.Write(p)
}

func (t *trackingWriter) Flush() {
	if f, ok := t.ResponseWriter.(http.Flusher); ok {
		t.started = true
		f.Flush()
	}
}

func (t *trackingWriter) Unwrap() http.ResponseWriter {
	return t.ResponseWriter
}
