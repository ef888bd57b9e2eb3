package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/masapp-io/maintenance-engine/pkg/services"
)

// SchedulerHandler exposes on-demand task generation.
type SchedulerHandler struct {
	scheduler services.SchedulerService
	logger    *zap.Logger
}

// NewSchedulerHandler creates a new scheduler handler.
func NewSchedulerHandler(scheduler services.SchedulerService, logger *zap.Logger) *SchedulerHandler {
	return &SchedulerHandler{scheduler: scheduler, logger: logger}
}

// RegisterRoutes registers the scheduler handler's routes on the given mux.
func (h *SchedulerHandler) RegisterRoutes(mux *http.ServeMux, actor ActorMiddleware) {
	mux.HandleFunc("POST /api/scheduler/run", actor(h.Run))
}

// Run handles POST /api/scheduler/run
func (h *SchedulerHandler) Run(w http.ResponseWriter, r *http.Request) {
	generated, err := h.scheduler.GenerateTasksForDuePlans(r.Context(), time.Now())
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	ids := make([]string, len(generated))
	for i, id := range generated {
		ids[i] = id.String()
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: map[string]any{
			"generated": ids,
			"count":     len(ids),
			"run_at":    time.Now().UTC(),
		},
	}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}
