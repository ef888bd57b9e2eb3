package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/masapp-io/maintenance-engine/pkg/apperrors"
)

// ApiResponse is the uniform response envelope.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(ApiResponse{
		Success: false,
		Error:   errorCode,
		Message: message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteServiceError maps domain errors onto HTTP status codes.
func WriteServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var status int
	var code string

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrPermissionDenied):
		status, code = http.StatusForbidden, "permission_denied"
	case errors.Is(err, apperrors.ErrInvalidTransition):
		status, code = http.StatusUnprocessableEntity, "invalid_transition"
	case errors.Is(err, apperrors.ErrValidation):
		status, code = http.StatusUnprocessableEntity, "validation_failed"
	case errors.Is(err, apperrors.ErrInsufficientStock):
		status, code = http.StatusConflict, "insufficient_stock"
	case errors.Is(err, apperrors.ErrDuplicateTask):
		status, code = http.StatusConflict, "duplicate_task"
	default:
		logger.Error("request failed", zap.Error(err))
		status, code = http.StatusInternalServerError, "internal_error"
	}

	if werr := ErrorResponse(w, status, code, err.Error()); werr != nil {
		logger.Error("failed to write error response", zap.Error(werr))
	}
}

// ParseID extracts and validates a UUID path value. Writes the error
// response itself and reports ok=false on failure.
func ParseID(w http.ResponseWriter, r *http.Request, name string, logger *zap.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		if werr := ErrorResponse(w, http.StatusBadRequest, "invalid_id", "Invalid "+name+" format"); werr != nil {
			logger.Error("failed to write error response", zap.Error(werr))
		}
		return uuid.Nil, false
	}
	return id, true
}
