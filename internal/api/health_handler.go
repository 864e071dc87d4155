package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/usergate/internal/api/shared"
	"github.com/phrazzld/usergate/internal/platform/logger"
	"github.com/phrazzld/usergate/internal/redact"
)

// HealthCheckTimeout bounds the dependency check of GET /health.
const HealthCheckTimeout = 2 * time.Second

// Pinger checks a dependency, e.g. *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// HealthHandler reports liveness and database reachability.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a HealthHandler. A nil db reports the database as
// "memory".
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) error {
	if h.db == nil {
		shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok", Database: "memory"})
		return nil
	}

	ctx, cancel := context.WithTimeout(r.Context(), HealthCheckTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		logger.FromContext(r.Context()).Warn("database health check failed",
			slog.String("error", redact.Error(err)))
		shared.RespondWithJSON(w, r, http.StatusServiceUnavailable,
			HealthResponse{Status: "unavailable", Database: "unreachable"})
		return nil
	}

	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok", Database: "ok"})
	return nil
}
