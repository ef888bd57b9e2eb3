package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/masapp-io/maintenance-engine/pkg/models"
	"github.com/masapp-io/maintenance-engine/pkg/services"
)

// PartHandler handles spare part inventory HTTP requests.
type PartHandler struct {
	partService services.PartService
	logger      *zap.Logger
}

// NewPartHandler creates a new part handler.
func NewPartHandler(partService services.PartService, logger *zap.Logger) *PartHandler {
	return &PartHandler{partService: partService, logger: logger}
}

// RegisterRoutes registers the part handler's routes on the given mux.
func (h *PartHandler) RegisterRoutes(mux *http.ServeMux, actor ActorMiddleware) {
	mux.HandleFunc("POST /api/parts", actor(h.Create))
	mux.HandleFunc("GET /api/parts", actor(h.List))
	mux.HandleFunc("GET /api/parts/low-stock", actor(h.ListBelowMinimum))
	mux.HandleFunc("GET /api/parts/{part_id}", actor(h.Get))
	mux.HandleFunc("PUT /api/parts/{part_id}", actor(h.Update))
	mux.HandleFunc("DELETE /api/parts/{part_id}", actor(h.Delete))
}

// Create handles POST /api/parts
func (h *PartHandler) Create(w http.ResponseWriter, r *http.Request) {
	var part models.SparePart
	if err := json.NewDecoder(r.Body).Decode(&part); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.partService.Create(r.Context(), &part); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: part}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// List handles GET /api/parts
func (h *PartHandler) List(w http.ResponseWriter, r *http.Request) {
	parts, err := h.partService.List(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if parts == nil {
		parts = make([]*models.SparePart, 0)
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: parts}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// ListBelowMinimum handles GET /api/parts/low-stock
func (h *PartHandler) ListBelowMinimum(w http.ResponseWriter, r *http.Request) {
	parts, err := h.partService.ListBelowMinimum(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if parts == nil {
		parts = make([]*models.SparePart, 0)
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: parts}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/parts/{part_id}
func (h *PartHandler) Get(w http.ResponseWriter, r *http.Request) {
	partID, ok := ParseID(w, r, "part_id", h.logger)
	if !ok {
		return
	}

	part, err := h.partService.Get(r.Context(), partID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: part}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/parts/{part_id}
func (h *PartHandler) Update(w http.ResponseWriter, r *http.Request) {
	partID, ok := ParseID(w, r, "part_id", h.logger)
	if !ok {
		return
	}

	var part models.SparePart
	if err := json.NewDecoder(r.Body).Decode(&part); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("failed to write error response", zap.Error(err))
		}
		return
	}
	part.ID = partID

	if err := h.partService.Update(r.Context(), &part); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: part}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/parts/{part_id}
func (h *PartHandler) Delete(w http.ResponseWriter, r *http.Request) {
	partID, ok := ParseID(w, r, "part_id", h.logger)
	if !ok {
		return
	}

	if err := h.partService.Delete(r.Context(), partID); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "part deleted"}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}
