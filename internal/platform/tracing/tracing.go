// Package tracing configures OpenTelemetry span export for the server.
package tracing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/usergate/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Provider owns the tracer provider built by Init.
type Provider struct {
	provider trace.TracerProvider
	name     string
	shutdown func(context.Context) error
}

// Init builds a tracer provider from cfg and installs it, together with the
// W3C trace-context propagator, as the otel globals. An empty OTLP endpoint
// yields a no-op provider.
func Init(ctx context.Context, cfg config.TracingConfig, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.OTLPEndpoint == "" {
		logger.Debug("tracing export disabled")
		p := &Provider{
			provider: noop.NewTracerProvider(),
			name:     cfg.ServiceName,
			shutdown: func(context.Context) error { return nil },
		}
		otel.SetTracerProvider(p.provider)
		return p, nil
	}

	exp, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	tp := NewSDKProvider(cfg, sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)

	logger.Info("tracing export enabled",
		slog.String("endpoint", cfg.OTLPEndpoint),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return &Provider{provider: tp, name: cfg.ServiceName, shutdown: tp.Shutdown}, nil
}

// NewSDKProvider returns an SDK tracer provider with the service resource and
// the sampler from cfg. Callers add exporters through opts.
func NewSDKProvider(cfg config.TracingConfig, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))

	base := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(Sampler(cfg.SampleRatio))),
	}
	return sdktrace.NewTracerProvider(append(base, opts...)...)
}

// Sampler maps a ratio to a sampler, clamping at both ends.
func Sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(ratio)
	}
}

// Tracer returns the named tracer from the provider.
func (p *Provider) Tracer() trace.Tracer {
	return p.provider.Tracer(p.name)
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.shutdown(ctx)
}
