package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/phrazzld/usergate/internal/audit"
	"github.com/phrazzld/usergate/internal/store"
)

// AuditSink persists audit entries to the audit_entries table. Each append is
// a single INSERT; it is meant to sit behind an audit.QueueSink so requests
// never wait on the database.
type AuditSink struct {
	db store.DBTX
}

// NewAuditSink creates a sink writing through db.
func NewAuditSink(db store.DBTX) *AuditSink {
	if db == nil {
		panic("db cannot be nil")
	}
	return &AuditSink{db: db}
}

var _ audit.Sink = (*AuditSink)(nil)

// Append inserts the entry. Status and elapsed time are NULL on request entries.
func (s *AuditSink) Append(ctx context.Context, e audit.Entry) error {
	headers, err := json.Marshal(e.Headers)
	if err != nil {
		return fmt.Errorf("encode audit headers: %w", err)
	}

	var (
		status  any
		elapsed any
	)
	if e.Phase == audit.PhaseResponse {
		status = e.Status
		elapsed = float64(e.Elapsed.Microseconds()) / 1000
	}

	query := `
		INSERT INTO audit_entries
			(correlation_id, phase, method, path, query, headers, body, status, elapsed_ms, remote_addr, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.db.ExecContext(ctx, query,
		e.CorrelationID,
		string(e.Phase),
		e.Method,
		e.Path,
		e.Query,
		string(headers),
		e.Body,
		status,
		elapsed,
		e.RemoteAddr,
		e.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", MapError(err))
	}
	return nil
}
