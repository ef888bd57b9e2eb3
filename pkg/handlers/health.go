package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/masapp-io/maintenance-engine/pkg/database"
)

// HealthHandler reports process and database health.
type HealthHandler struct {
	db      *database.DB
	version string
	logger  *zap.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *database.DB, version string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, version: version, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Health)
}

// Health handles GET /healthz
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	if err := h.db.Pool.Ping(r.Context()); err != nil {
		h.logger.Warn("health check: database unreachable", zap.Error(err))
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	if err := WriteJSON(w, code, map[string]string{
		"status":  status,
		"version": h.version,
	}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}
