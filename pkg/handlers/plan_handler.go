package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/masapp-io/maintenance-engine/pkg/models"
	"github.com/masapp-io/maintenance-engine/pkg/services"
)

// PlanHandler handles maintenance plan HTTP requests.
type PlanHandler struct {
	planService services.PlanService
	logger      *zap.Logger
}

// NewPlanHandler creates a new plan handler.
func NewPlanHandler(planService services.PlanService, logger *zap.Logger) *PlanHandler {
	return &PlanHandler{planService: planService, logger: logger}
}

// RegisterRoutes registers the plan handler's routes on the given mux.
func (h *PlanHandler) RegisterRoutes(mux *http.ServeMux, actor ActorMiddleware) {
	mux.HandleFunc("POST /api/plans", actor(h.CreatePlan))
	mux.HandleFunc("GET /api/plans", actor(h.ListPlans))
	mux.HandleFunc("GET /api/plans/{plan_id}", actor(h.GetPlan))
	mux.HandleFunc("PATCH /api/plans/{plan_id}", actor(h.UpdatePlan))
	mux.HandleFunc("DELETE /api/plans/{plan_id}", actor(h.DeletePlan))

	mux.HandleFunc("PUT /api/plans/{plan_id}/checklist", actor(h.ReplaceChecklist))
	mux.HandleFunc("POST /api/plans/{plan_id}/checklist", actor(h.AddChecklistItem))
	mux.HandleFunc("DELETE /api/plans/{plan_id}/checklist/{item_id}", actor(h.RemoveChecklistItem))

	mux.HandleFunc("GET /api/machines/{machine_id}/plans", actor(h.ListPlansByMachine))
}

// CreatePlan handles POST /api/plans
func (h *PlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var plan models.MaintenancePlan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.planService.CreatePlan(r.Context(), &plan); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: plan}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// ListPlans handles GET /api/plans
func (h *PlanHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	var kind *models.PlanKind
	if raw := r.URL.Query().Get("kind"); raw != "" {
		k := models.PlanKind(raw)
		kind = &k
	}

	plans, err := h.planService.ListPlans(r.Context(), kind)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if plans == nil {
		plans = make([]*models.MaintenancePlan, 0)
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: plans}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// GetPlan handles GET /api/plans/{plan_id}
func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	planID, ok := ParseID(w, r, "plan_id", h.logger)
	if !ok {
		return
	}

	plan, err := h.planService.GetPlan(r.Context(), planID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: plan}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// UpdatePlan handles PATCH /api/plans/{plan_id}
func (h *PlanHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	planID, ok := ParseID(w, r, "plan_id", h.logger)
	if !ok {
		return
	}

	var update models.PlanUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.planService.UpdatePlan(r.Context(), planID, update); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// DeletePlan handles DELETE /api/plans/{plan_id}
func (h *PlanHandler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	planID, ok := ParseID(w, r, "plan_id", h.logger)
	if !ok {
		return
	}

	if err := h.planService.DeletePlan(r.Context(), planID); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "plan deleted"}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// ReplaceChecklist handles PUT /api/plans/{plan_id}/checklist
func (h *PlanHandler) ReplaceChecklist(w http.ResponseWriter, r *http.Request) {
	planID, ok := ParseID(w, r, "plan_id", h.logger)
	if !ok {
		return
	}

	var items []models.ChecklistItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.planService.ReplaceChecklist(r.Context(), planID, items); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// AddChecklistItem handles POST /api/plans/{plan_id}/checklist
func (h *PlanHandler) AddChecklistItem(w http.ResponseWriter, r *http.Request) {
	planID, ok := ParseID(w, r, "plan_id", h.logger)
	if !ok {
		return
	}

	var item models.ChecklistItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("failed to write error response", zap.Error(err))
		}
		return
	}

	created, err := h.planService.AddChecklistItem(r.Context(), planID, item)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: created}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// RemoveChecklistItem handles DELETE /api/plans/{plan_id}/checklist/{item_id}
func (h *PlanHandler) RemoveChecklistItem(w http.ResponseWriter, r *http.Request) {
	planID, ok := ParseID(w, r, "plan_id", h.logger)
	if !ok {
		return
	}
	itemID, ok := ParseID(w, r, "item_id", h.logger)
	if !ok {
		return
	}

	if err := h.planService.RemoveChecklistItem(r.Context(), planID, itemID); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// ListPlansByMachine handles GET /api/machines/{machine_id}/plans
func (h *PlanHandler) ListPlansByMachine(w http.ResponseWriter, r *http.Request) {
	machineID, ok := ParseID(w, r, "machine_id", h.logger)
	if !ok {
		return
	}

	plans, err := h.planService.ListPlansByMachine(r.Context(), machineID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if plans == nil {
		plans = make([]*models.MaintenancePlan, 0)
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: plans}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}
