package tracing

import (
	"context"
	"testing"

	"github.com/phrazzld/usergate/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	p, err := Init(context.Background(), config.TracingConfig{ServiceName: "usergate", SampleRatio: 1}, nil)
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "op")
	span.End()

	assert.False(t, span.SpanContext().IsValid())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInitWithEndpoint(t *testing.T) {
	p, err := Init(context.Background(), config.TracingConfig{
		OTLPEndpoint: "localhost:4318",
		ServiceName:  "usergate",
		SampleRatio:  0.5,
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = p.Shutdown(ctx)
}

func TestNewSDKProviderRecordsSpans(t *testing.T) {
	t.Parallel()

	exp := tracetest.NewInMemoryExporter()
	tp := NewSDKProvider(config.TracingConfig{ServiceName: "svc", SampleRatio: 1}, sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := tp.Tracer("test").Start(context.Background(), "GET /health")
	span.End()

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /health", spans[0].Name)
	assert.Contains(t, spans[0].Resource.String(), "service.name=svc")
}

func TestSampler(t *testing.T) {
	t.Parallel()

	assert.Equal(t, sdktrace.AlwaysSample().Description(), Sampler(1.5).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), Sampler(0).Description())
	assert.Contains(t, Sampler(0.25).Description(), "TraceIDRatioBased")
}
