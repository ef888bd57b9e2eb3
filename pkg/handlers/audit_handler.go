package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/masapp-io/maintenance-engine/pkg/models"
	"github.com/masapp-io/maintenance-engine/pkg/services"
)

// AuditHandler serves the audit trail read API.
type AuditHandler struct {
	auditService services.AuditService
	logger       *zap.Logger
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(auditService services.AuditService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{auditService: auditService, logger: logger}
}

// RegisterRoutes registers the audit handler's routes on the given mux.
func (h *AuditHandler) RegisterRoutes(mux *http.ServeMux, actor ActorMiddleware) {
	mux.HandleFunc("GET /api/audit", actor(h.ListRecent))
	mux.HandleFunc("GET /api/audit/{table}/{record_id}", actor(h.ListByRecord))
}

// ListRecent handles GET /api/audit
func (h *AuditHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer"); err != nil {
				h.logger.Error("failed to write error response", zap.Error(err))
			}
			return
		}
		limit = parsed
	}

	entries, err := h.auditService.ListRecent(r.Context(), limit)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if entries == nil {
		entries = make([]models.AuditLogEntry, 0)
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: entries}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// ListByRecord handles GET /api/audit/{table}/{record_id}
func (h *AuditHandler) ListByRecord(w http.ResponseWriter, r *http.Request) {
	recordID, ok := ParseID(w, r, "record_id", h.logger)
	if !ok {
		return
	}

	entries, err := h.auditService.ListByRecord(r.Context(), r.PathValue("table"), recordID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if entries == nil {
		entries = make([]models.AuditLogEntry, 0)
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: entries}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}
