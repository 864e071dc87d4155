package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/usergate/internal/api/middleware"
	"github.com/phrazzld/usergate/internal/api/shared"
	"github.com/phrazzld/usergate/internal/domain"
	"github.com/phrazzld/usergate/internal/failure"
	"github.com/phrazzld/usergate/internal/platform/logger"
)

// HandlerFunc is an HTTP handler that returns its failure.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Handle adapts fn to http.HandlerFunc, reporting a returned error to the
// pipeline. fn must not write a response when it returns an error.
func Handle(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			middleware.ReportError(w, r, err)
		}
	}
}

// MessageInvalidFormat answers a body that is not a single JSON object of
// the expected shape.
const MessageInvalidFormat = "Invalid request format"

// decodeRequest decodes and validates the JSON body into dst. On failure it
// writes the 400 response itself and returns false.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	log := logger.FromContext(r.Context())

	if err := shared.DecodeJSON(r, dst); err != nil {
		log.Debug("malformed request body", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, http.StatusText(http.StatusBadRequest), MessageInvalidFormat)
		return false
	}
	return validateRequest(w, r, dst)
}

func validateRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	err := shared.ValidateRequest(v)
	if err == nil {
		return true
	}
	fields := shared.FieldErrors(err)
	if fields == nil {
		fields = []shared.FieldError{{Field: "body", Message: err.Error()}}
	}
	shared.RespondWithValidationErrors(w, r, fields)
	return false
}

// currentUserID returns the authenticated caller.
func currentUserID(r *http.Request) (uuid.UUID, error) {
	id, ok := shared.GetUserID(r.Context())
	if !ok || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("no identity on request: %w", failure.ErrUnauthorized)
	}
	return id, nil
}

// pathUUID parses a UUID path parameter.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s %q", domain.ErrInvalidID, name, raw)
	}
	return id, nil
}
