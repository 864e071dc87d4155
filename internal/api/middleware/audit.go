package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/usergate/internal/api/shared"
	"github.com/phrazzld/usergate/internal/audit"
	"github.com/phrazzld/usergate/internal/platform/clock"
	"github.com/phrazzld/usergate/internal/platform/logger"
	"github.com/phrazzld/usergate/internal/redact"
)

// DefaultMaxAuditBody is the body size cap for audit capture.
const DefaultMaxAuditBody = 1 << 20

// AuditRecorder emits a request entry before the inner stages run and a
// response entry, with the same correlation id, on every exit path.
type AuditRecorder struct {
	sink    audit.Sink
	maxBody int64
	clock   clock.Clock
	failure FailureWriter
}

// AuditOption configures an AuditRecorder.
type AuditOption func(*AuditRecorder)

// WithMaxBody sets the body capture cap.
func WithMaxBody(n int64) AuditOption {
	return func(a *AuditRecorder) {
		if n > 0 {
			a.maxBody = n
		}
	}
}

// WithClock sets the clock used for timestamps and latency.
func WithClock(c clock.Clock) AuditOption {
	return func(a *AuditRecorder) {
		if c != nil {
			a.clock = c
		}
	}
}

// WithFailureWriter sets how inner failures are rendered before the
// response entry is recorded.
func WithFailureWriter(f FailureWriter) AuditOption {
	return func(a *AuditRecorder) {
		if f != nil {
			a.failure = f
		}
	}
}

// NewAuditRecorder creates the audit stage writing to sink.
func NewAuditRecorder(sink audit.Sink, opts ...AuditOption) *AuditRecorder {
	a := &AuditRecorder{
		sink:    sink,
		maxBody: DefaultMaxAuditBody,
		clock:   clock.System(),
		failure: WriteFailure,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name implements Interceptor.
func (a *AuditRecorder) Name() string { return StageAudit }

// Intercept implements Interceptor. An error from the inner stages is
// rendered into the captured response here, so the response entry carries
// the final status; the error does not propagate further.
func (a *AuditRecorder) Intercept(w http.ResponseWriter, r *http.Request, next Next) error {
	start := a.clock.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)
	sinkCtx := context.WithoutCancel(ctx)

	base := audit.Entry{
		CorrelationID: shared.GetTraceID(ctx),
		Method:        r.Method,
		Path:          r.URL.Path,
		Query:         redact.Query(r.URL.RawQuery),
	}

	req := base
	req.Phase = audit.PhaseRequest
	req.Headers = redact.Headers(r.Header)
	req.Body = readRequestBody(r, a.maxBody)
	req.Timestamp = start.UTC()
	req.RemoteAddr = r.RemoteAddr
	a.append(sinkCtx, log, req)

	cw := newCaptureWriter(w)
	defer func() {
		if err := cw.flush(); err != nil {
			log.Debug("failed to write response", slog.String("error", err.Error()))
		}
	}()

	if err := next(cw, r); err != nil {
		cw.discard()
		a.failure(cw, r, err)
	}

	resp := base
	resp.Phase = audit.PhaseResponse
	resp.Headers = redact.Headers(cw.Header())
	resp.Body = bodySnippet(cw.buf.Bytes(), a.maxBody)
	resp.Status = cw.status
	resp.Elapsed = a.clock.Since(start)
	resp.Timestamp = a.clock.Now().UTC()
	a.append(sinkCtx, log, resp)

	return nil
}

func (a *AuditRecorder) append(ctx context.Context, log *slog.Logger, e audit.Entry) {
	if err := a.sink.Append(ctx, e); err != nil {
		log.Warn("failed to record audit entry",
			slog.String("phase", string(e.Phase)),
			slog.String("error", redact.Error(err)))
	}
}
