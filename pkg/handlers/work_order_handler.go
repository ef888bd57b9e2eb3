package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/masapp-io/maintenance-engine/pkg/models"
	"github.com/masapp-io/maintenance-engine/pkg/repositories"
	"github.com/masapp-io/maintenance-engine/pkg/services"
)

// WorkOrderHandler handles work order HTTP requests.
type WorkOrderHandler struct {
	woService services.WorkOrderService
	logger    *zap.Logger
}

// NewWorkOrderHandler creates a new work order handler.
func NewWorkOrderHandler(woService services.WorkOrderService, logger *zap.Logger) *WorkOrderHandler {
	return &WorkOrderHandler{woService: woService, logger: logger}
}

// RegisterRoutes registers the work order handler's routes on the given mux.
func (h *WorkOrderHandler) RegisterRoutes(mux *http.ServeMux, actor ActorMiddleware) {
	mux.HandleFunc("POST /api/work-orders", actor(h.Create))
	mux.HandleFunc("GET /api/work-orders", actor(h.List))
	mux.HandleFunc("GET /api/work-orders/{wo_id}", actor(h.Get))
	mux.HandleFunc("PATCH /api/work-orders/{wo_id}", actor(h.Update))
	mux.HandleFunc("DELETE /api/work-orders/{wo_id}", actor(h.Delete))

	mux.HandleFunc("PATCH /api/work-orders/{wo_id}/checklist/{result_id}", actor(h.UpdateChecklistResult))

	mux.HandleFunc("POST /api/work-orders/{wo_id}/approve", actor(h.Approve))
	mux.HandleFunc("POST /api/work-orders/{wo_id}/start", actor(h.Start))
	mux.HandleFunc("POST /api/work-orders/{wo_id}/hold", actor(h.Hold))
	mux.HandleFunc("POST /api/work-orders/{wo_id}/complete", actor(h.Complete))
	mux.HandleFunc("POST /api/work-orders/{wo_id}/close", actor(h.Close))

	mux.HandleFunc("POST /api/work-orders/{wo_id}/parts", actor(h.ConsumePart))
	mux.HandleFunc("POST /api/work-orders/{wo_id}/labor", actor(h.AddLabor))
	mux.HandleFunc("POST /api/work-orders/{wo_id}/attachments", actor(h.AddAttachment))
}

// Create handles POST /api/work-orders
func (h *WorkOrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var wo models.WorkOrder
	if err := json.NewDecoder(r.Body).Decode(&wo); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.woService.Create(r.Context(), &wo); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: wo}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// List handles GET /api/work-orders
func (h *WorkOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter repositories.WorkOrderFilter

	if raw := r.URL.Query().Get("status"); raw != "" {
		s := models.WorkOrderStatus(raw)
		filter.Status = &s
	}
	if raw := r.URL.Query().Get("kind"); raw != "" {
		k := models.WorkOrderKind(raw)
		filter.Kind = &k
	}
	if raw := r.URL.Query().Get("machine_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_id", "Invalid machine_id format"); err != nil {
				h.logger.Error("failed to write error response", zap.Error(err))
			}
			return
		}
		filter.MachineID = &id
	}

	orders, err := h.woService.List(r.Context(), filter)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if orders == nil {
		orders = make([]*models.WorkOrder, 0)
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: orders}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/work-orders/{wo_id}
func (h *WorkOrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	woID, ok := ParseID(w, r, "wo_id", h.logger)
	if !ok {
		return
	}

	wo, err := h.woService.Get(r.Context(), woID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: wo}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// Update handles PATCH /api/work-orders/{wo_id}
func (h *WorkOrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	woID, ok := ParseID(w, r, "wo_id", h.logger)
	if !ok {
		return
	}

	var update models.WorkOrderUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.woService.Update(r.Context(), woID, update); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/work-orders/{wo_id}
func (h *WorkOrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	woID, ok := ParseID(w, r, "wo_id", h.logger)
	if !ok {
		return
	}

	if err := h.woService.Delete(r.Context(), woID); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "work order deleted"}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// UpdateChecklistResult handles PATCH /api/work-orders/{wo_id}/checklist/{result_id}
func (h *WorkOrderHandler) UpdateChecklistResult(w http.ResponseWriter, r *http.Request) {
	woID, ok := ParseID(w, r, "wo_id", h.logger)
	if !ok {
		return
	}
	resultID, ok := ParseID(w, r, "result_id", h.logger)
	if !ok {
		return
	}

	var update models.ChecklistResultUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.woService.UpdateChecklistResult(r.Context(), woID, resultID, update); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// Approve handles POST /api/work-orders/{wo_id}/approve
func (h *WorkOrderHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.woService.Approve)
}

// Start handles POST /api/work-orders/{wo_id}/start
func (h *WorkOrderHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.woService.Start)
}

// Complete handles POST /api/work-orders/{wo_id}/complete
func (h *WorkOrderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.woService.Complete)
}

type holdRequest struct {
	Reason string `json:"reason"`
}

// Hold handles POST /api/work-orders/{wo_id}/hold
func (h *WorkOrderHandler) Hold(w http.ResponseWriter, r *http.Request) {
	woID, ok := ParseID(w, r, "wo_id", h.logger)
	if !ok {
		return
	}

	var req holdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.woService.Hold(r.Context(), woID, req.Reason); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

type closeRequest struct {
	SatisfactionScore int    `json:"satisfaction_score"`
	AcceptanceNote    string `json:"acceptance_note"`
}

// Close handles POST /api/work-orders/{wo_id}/close
func (h *WorkOrderHandler) Close(w http.ResponseWriter, r *http.Request) {
	woID, ok := ParseID(w, r, "wo_id", h.logger)
	if !ok {
		return
	}

	var req closeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.woService.Close(r.Context(), woID, req.SatisfactionScore, req.AcceptanceNote); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

type consumePartRequest struct {
	PartID   uuid.UUID `json:"part_id"`
	Quantity int       `json:"quantity"`
}

// ConsumePart handles POST /api/work-orders/{wo_id}/parts
func (h *WorkOrderHandler) ConsumePart(w http.ResponseWriter, r *http.Request) {
	woID, ok := ParseID(w, r, "wo_id", h.logger)
	if !ok {
		return
	}

	var req consumePartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.woService.ConsumePart(r.Context(), woID, req.PartID, req.Quantity); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

type addLaborRequest struct {
	UserID     uuid.UUID `json:"user_id"`
	Minutes    int       `json:"minutes"`
	HourlyRate float64   `json:"hourly_rate"`
}

// AddLabor handles POST /api/work-orders/{wo_id}/labor
func (h *WorkOrderHandler) AddLabor(w http.ResponseWriter, r *http.Request) {
	woID, ok := ParseID(w, r, "wo_id", h.logger)
	if !ok {
		return
	}

	var req addLaborRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("failed to write error response", zap.Error(err))
		}
		return
	}

	entry := &models.LaborEntry{
		WorkOrderID: woID,
		UserID:      req.UserID,
		Minutes:     req.Minutes,
		HourlyRate:  req.HourlyRate,
	}

	if err := h.woService.AddLabor(r.Context(), entry); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: entry}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// AddAttachment handles POST /api/work-orders/{wo_id}/attachments
// (multipart form, field "file").
func (h *WorkOrderHandler) AddAttachment(w http.ResponseWriter, r *http.Request) {
	woID, ok := ParseID(w, r, "wo_id", h.logger)
	if !ok {
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "multipart field 'file' is required"); err != nil {
			h.logger.Error("failed to write error response", zap.Error(err))
		}
		return
	}
	defer file.Close()

	fileType := header.Header.Get("Content-Type")

	att, err := h.woService.AddAttachment(r.Context(), woID, header.Filename, fileType, file)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: att}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

func (h *WorkOrderHandler) lifecycle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id uuid.UUID) error) {
	woID, ok := ParseID(w, r, "wo_id", h.logger)
	if !ok {
		return
	}

	if err := op(r.Context(), woID); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}
