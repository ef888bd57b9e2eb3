package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateTask     = errors.New("active work order already exists for plan")
	ErrValidation        = errors.New("validation failed")
)
