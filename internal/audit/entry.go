package audit

import (
	"context"
	"time"
)

// Phase distinguishes the two halves of an audit record.
type Phase string

const (
	PhaseRequest  Phase = "request"
	PhaseResponse Phase = "response"
)

// Body sentinels recorded instead of content.
const (
	// BodyEmpty marks an absent or zero-length body.
	BodyEmpty = "<empty>"
	// BodyOmitted marks a body that was over the size cap or of unknown length.
	BodyOmitted = "<omitted>"
)

// Entry is one half of an audit record. Status and Elapsed are only set on
// response entries.
type Entry struct {
	Phase         Phase
	CorrelationID string
	Method        string
	Path          string
	Query         string
	Headers       map[string]string
	Body          string
	Status        int
	Elapsed       time.Duration
	Timestamp     time.Time
	RemoteAddr    string
}

// Sink receives audit entries. Implementations must be safe for concurrent use.
type Sink interface {
	Append(ctx context.Context, entry Entry) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, entry Entry) error

// Append calls f.
func (f SinkFunc) Append(ctx context.Context, entry Entry) error {
	return f(ctx, entry)
}
