package middleware

import (
	"net/http"

	"github.com/phrazzld/usergate/internal/api/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Tracing opens one server span per request, continuing any incoming W3C
// trace context. The span carries the correlation id and final status.
type Tracing struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewTracing creates the tracing stage. A nil propagator uses the otel global.
func NewTracing(tracer trace.Tracer, propagator propagation.TextMapPropagator) *Tracing {
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}
	return &Tracing{tracer: tracer, propagator: propagator}
}

// Name implements Interceptor.
func (t *Tracing) Name() string { return StageTracing }

// Intercept implements Interceptor.
func (t *Tracing) Intercept(w http.ResponseWriter, r *http.Request, next Next) error {
	ctx := t.propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := t.tracer.Start(ctx, r.Method+" "+r.URL.Path,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", r.Method),
			attribute.String("url.path", r.URL.Path),
			attribute.String("correlation_id", shared.GetTraceID(r.Context())),
		))
	defer span.End()

	sw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	err := next(sw, r.WithContext(ctx))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Classify(err).Category)
		span.SetAttributes(attribute.Int("http.response.status_code", Classify(err).Status))
		return err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", sw.status))
	if sw.status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(sw.status))
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(p)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
