// Package metrics exposes Prometheus HTTP metrics fed from audit response
// entries, so every request the pipeline records is counted exactly once.
package metrics

import (
	"context"
	"net/http"
	"regexp"
	"strconv"

	"github.com/phrazzld/usergate/internal/audit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var uuidSegment = regexp.MustCompile(
	`/[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}(/|$)`,
)

// CanonicalPath replaces UUID path segments with ":id" so label cardinality
// stays bounded.
func CanonicalPath(path string) string {
	for uuidSegment.MatchString(path) {
		path = uuidSegment.ReplaceAllString(path, "/:id$1")
	}
	return path
}

// Metrics holds the HTTP collectors and the registry they are registered in.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them in reg. A nil reg gets a
// fresh registry with the Go and process collectors.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m := &Metrics{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration)
	return m
}

// Registry returns the registry backing the handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// WatchQueue exports the drop counter of an audit queue.
func (m *Metrics) WatchQueue(q *audit.QueueSink) {
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "audit_entries_dropped_total",
			Help: "Audit entries dropped because the queue stayed full, including the response half of a dropped record.",
		},
		func() float64 { return float64(q.Dropped()) },
	))
}

var _ audit.Sink = (*Metrics)(nil)

// Append observes response entries and ignores request entries.
func (m *Metrics) Append(_ context.Context, e audit.Entry) error {
	if e.Phase != audit.PhaseResponse {
		return nil
	}
	path := CanonicalPath(e.Path)
	status := strconv.Itoa(e.Status)
	m.requestsTotal.WithLabelValues(e.Method, path, status).Inc()
	m.requestDuration.WithLabelValues(e.Method, path, status).Observe(e.Elapsed.Seconds())
	return nil
}
