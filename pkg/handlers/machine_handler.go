package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/masapp-io/maintenance-engine/pkg/models"
	"github.com/masapp-io/maintenance-engine/pkg/services"
)

// MachineHandler handles machine registry HTTP requests.
type MachineHandler struct {
	machineService services.MachineService
	logger         *zap.Logger
}

// NewMachineHandler creates a new machine handler.
func NewMachineHandler(machineService services.MachineService, logger *zap.Logger) *MachineHandler {
	return &MachineHandler{machineService: machineService, logger: logger}
}

// RegisterRoutes registers the machine handler's routes on the given mux.
func (h *MachineHandler) RegisterRoutes(mux *http.ServeMux, actor ActorMiddleware) {
	mux.HandleFunc("POST /api/machines", actor(h.Create))
	mux.HandleFunc("GET /api/machines", actor(h.List))
	mux.HandleFunc("GET /api/machines/{machine_id}", actor(h.Get))
	mux.HandleFunc("PUT /api/machines/{machine_id}", actor(h.Update))
	mux.HandleFunc("DELETE /api/machines/{machine_id}", actor(h.Delete))
	mux.HandleFunc("POST /api/machines/{machine_id}/status", actor(h.SetStatus))
	mux.HandleFunc("POST /api/machines/{machine_id}/counters", actor(h.AddRunningHours))
}

// Create handles POST /api/machines
func (h *MachineHandler) Create(w http.ResponseWriter, r *http.Request) {
	var machine models.Machine
	if err := json.NewDecoder(r.Body).Decode(&machine); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.machineService.Create(r.Context(), &machine); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: machine}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// List handles GET /api/machines
func (h *MachineHandler) List(w http.ResponseWriter, r *http.Request) {
	machines, err := h.machineService.List(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if machines == nil {
		machines = make([]*models.Machine, 0)
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: machines}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/machines/{machine_id}
func (h *MachineHandler) Get(w http.ResponseWriter, r *http.Request) {
	machineID, ok := ParseID(w, r, "machine_id", h.logger)
	if !ok {
		return
	}

	machine, err := h.machineService.Get(r.Context(), machineID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: machine}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/machines/{machine_id}
func (h *MachineHandler) Update(w http.ResponseWriter, r *http.Request) {
	machineID, ok := ParseID(w, r, "machine_id", h.logger)
	if !ok {
		return
	}

	var machine models.Machine
	if err := json.NewDecoder(r.Body).Decode(&machine); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("failed to write error response", zap.Error(err))
		}
		return
	}
	machine.ID = machineID

	if err := h.machineService.Update(r.Context(), &machine); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: machine}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/machines/{machine_id}
func (h *MachineHandler) Delete(w http.ResponseWriter, r *http.Request) {
	machineID, ok := ParseID(w, r, "machine_id", h.logger)
	if !ok {
		return
	}

	if err := h.machineService.Delete(r.Context(), machineID); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "machine deleted"}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

type setStatusRequest struct {
	Status models.MachineStatus `json:"status"`
}

// SetStatus handles POST /api/machines/{machine_id}/status
func (h *MachineHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	machineID, ok := ParseID(w, r, "machine_id", h.logger)
	if !ok {
		return
	}

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.machineService.SetStatus(r.Context(), machineID, req.Status); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

type addCountersRequest struct {
	Hours  float64 `json:"hours"`
	Cycles int     `json:"cycles"`
}

// AddRunningHours handles POST /api/machines/{machine_id}/counters
func (h *MachineHandler) AddRunningHours(w http.ResponseWriter, r *http.Request) {
	machineID, ok := ParseID(w, r, "machine_id", h.logger)
	if !ok {
		return
	}

	var req addCountersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.machineService.AddRunningHours(r.Context(), machineID, req.Hours, req.Cycles); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}
