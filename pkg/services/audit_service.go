package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/masapp-io/maintenance-engine/pkg/models"
	"github.com/masapp-io/maintenance-engine/pkg/repositories"
)

// AuditService records mutating actions against the audit trail.
// Callers invoke Record inside their own transaction so the entry
// commits or rolls back together with the mutation it describes.
type AuditService interface {
	Record(ctx context.Context, action, tableName string, recordID uuid.UUID, details string) error
	ListByRecord(ctx context.Context, tableName string, recordID uuid.UUID) ([]models.AuditLogEntry, error)
	ListRecent(ctx context.Context, limit int) ([]models.AuditLogEntry, error)
}

type auditService struct {
	auditRepo repositories.AuditRepository
	logger    *zap.Logger
}

// NewAuditService creates a new AuditService.
func NewAuditService(auditRepo repositories.AuditRepository, logger *zap.Logger) AuditService {
	return &auditService{auditRepo: auditRepo, logger: logger}
}

var _ AuditService = (*auditService)(nil)

func (s *auditService) Record(ctx context.Context, action, tableName string, recordID uuid.UUID, details string) error {
	entry := &models.AuditLogEntry{
		Action:    action,
		TableName: tableName,
		RecordID:  recordID,
		Details:   details,
	}

	if actor, ok := models.GetActor(ctx); ok {
		entry.UserID = &actor.UserID
	} else {
		// System-triggered mutations (scheduler runs) have no actor.
		s.logger.Warn("recording audit entry without actor",
			zap.String("action", action),
			zap.String("table", tableName),
			zap.String("record_id", recordID.String()))
	}

	return s.auditRepo.Create(ctx, entry)
}

func (s *auditService) ListByRecord(ctx context.Context, tableName string, recordID uuid.UUID) ([]models.AuditLogEntry, error) {
	if _, err := requireActor(ctx, models.ResourceAuditLog, models.ActionRead); err != nil {
		return nil, err
	}
	return s.auditRepo.ListByRecord(ctx, tableName, recordID)
}

func (s *auditService) ListRecent(ctx context.Context, limit int) ([]models.AuditLogEntry, error) {
	if _, err := requireActor(ctx, models.ResourceAuditLog, models.ActionRead); err != nil {
		return nil, err
	}
	return s.auditRepo.ListRecent(ctx, limit)
}
