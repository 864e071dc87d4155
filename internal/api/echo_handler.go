package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/phrazzld/usergate/internal/api/shared"
	"github.com/phrazzld/usergate/internal/failure"
	"github.com/phrazzld/usergate/internal/redact"
)

// EchoResponse mirrors the request back. Only mounted in development.
type EchoResponse struct {
	Method        string            `json:"method"`
	Path          string            `json:"path"`
	Query         string            `json:"query,omitempty"`
	Headers       map[string]string `json:"headers"`
	Body          json.RawMessage   `json:"body,omitempty"`
	CorrelationID string            `json:"correlationId"`
}

// Echo handles POST /api/test/echo. Sensitive headers and query values are
// elided the same way the audit log elides them.
func Echo(w http.ResponseWriter, r *http.Request) error {
	data, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, shared.MaxRequestBodyBytes))
	if err != nil {
		return fmt.Errorf("read echo body: %w", failure.ErrInvalidArgument)
	}

	resp := EchoResponse{
		Method:        r.Method,
		Path:          r.URL.Path,
		Query:         redact.Query(r.URL.RawQuery),
		Headers:       redact.Headers(r.Header),
		CorrelationID: shared.GetTraceID(r.Context()),
	}
	if len(data) > 0 {
		if !json.Valid(data) {
			shared.RespondWithError(w, r, http.StatusBadRequest, http.StatusText(http.StatusBadRequest), MessageInvalidFormat)
			return nil
		}
		resp.Body = data
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
	return nil
}
