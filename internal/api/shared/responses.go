package shared

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/usergate/internal/platform/logger"
)

// ErrorResponse defines the standard error response structure. Message is
// always a fixed, generic sentence; internal error text never goes here.
type ErrorResponse struct {
	TraceID   string       `json:"traceId"`
	Error     string       `json:"error"`
	Message   string       `json:"message"`
	Timestamp time.Time    `json:"timestamp"`
	Errors    []FieldError `json:"errors,omitempty"`
}

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationFailedMessage is the message of a 400 carrying field errors.
const ValidationFailedMessage = "Validation failed"

// NewErrorResponse builds an ErrorResponse stamped with the request's trace
// ID and the current UTC time from the request's clock.
func NewErrorResponse(r *http.Request, category, message string) ErrorResponse {
	return ErrorResponse{
		TraceID:   GetTraceID(r.Context()),
		Error:     category,
		Message:   message,
		Timestamp: Now(r.Context()),
	}
}

// RespondWithJSON writes a JSON response with the given status code and data.
func RespondWithJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(r.Context()).Debug("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// RespondWithError writes an ErrorResponse with the given status, category
// and message.
func RespondWithError(w http.ResponseWriter, r *http.Request, status int, category, message string) {
	RespondWithJSON(w, r, status, NewErrorResponse(r, category, message))
}

// RespondWithValidationErrors writes a 400 listing the invalid fields.
func RespondWithValidationErrors(w http.ResponseWriter, r *http.Request, fields []FieldError) {
	resp := NewErrorResponse(r, http.StatusText(http.StatusBadRequest), ValidationFailedMessage)
	resp.Errors = fields
	logger.FromContext(r.Context()).Debug("request validation failed", slog.Int("field_errors", len(fields)))
	RespondWithJSON(w, r, http.StatusBadRequest, resp)
}
