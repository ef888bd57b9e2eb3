package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/masapp-io/maintenance-engine/pkg/apperrors"
	"github.com/masapp-io/maintenance-engine/pkg/database"
	"github.com/masapp-io/maintenance-engine/pkg/models"
	"github.com/masapp-io/maintenance-engine/pkg/repositories"
)

// PartService manages the spare parts inventory. Consumption against
// work orders lives on WorkOrderService.
type PartService interface {
	Create(ctx context.Context, part *models.SparePart) error
	Get(ctx context.Context, id uuid.UUID) (*models.SparePart, error)
	List(ctx context.Context) ([]*models.SparePart, error)
	ListBelowMinimum(ctx context.Context) ([]*models.SparePart, error)
	Update(ctx context.Context, part *models.SparePart) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type partService struct {
	partRepo repositories.PartRepository
	audit    AuditService
	tx       database.TxRunner
	logger   *zap.Logger
}

// NewPartService creates a new PartService.
func NewPartService(partRepo repositories.PartRepository, audit AuditService, tx database.TxRunner, logger *zap.Logger) PartService {
	return &partService{partRepo: partRepo, audit: audit, tx: tx, logger: logger}
}

var _ PartService = (*partService)(nil)

func (s *partService) Create(ctx context.Context, part *models.SparePart) error {
	if _, err := requireActor(ctx, models.ResourceSparePart, models.ActionCreate); err != nil {
		return err
	}
	if strings.TrimSpace(part.Code) == "" || strings.TrimSpace(part.Name) == "" {
		return fmt.Errorf("%w: part code and name are required", apperrors.ErrValidation)
	}
	if part.CurrentStock < 0 || part.MinStock < 0 {
		return fmt.Errorf("%w: stock levels cannot be negative", apperrors.ErrValidation)
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.partRepo.Create(ctx, part); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditActionCreate, "spare_parts", part.ID,
			fmt.Sprintf("created part %s", part.Code))
	})
}

func (s *partService) Get(ctx context.Context, id uuid.UUID) (*models.SparePart, error) {
	if _, err := requireActor(ctx, models.ResourceSparePart, models.ActionRead); err != nil {
		return nil, err
	}
	return s.partRepo.GetByID(ctx, id)
}

func (s *partService) List(ctx context.Context) ([]*models.SparePart, error) {
	if _, err := requireActor(ctx, models.ResourceSparePart, models.ActionRead); err != nil {
		return nil, err
	}
	return s.partRepo.List(ctx)
}

func (s *partService) ListBelowMinimum(ctx context.Context) ([]*models.SparePart, error) {
	if _, err := requireActor(ctx, models.ResourceSparePart, models.ActionRead); err != nil {
		return nil, err
	}
	return s.partRepo.ListBelowMinimum(ctx)
}

func (s *partService) Update(ctx context.Context, part *models.SparePart) error {
	if _, err := requireActor(ctx, models.ResourceSparePart, models.ActionUpdate); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.partRepo.Update(ctx, part); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditActionUpdate, "spare_parts", part.ID,
			fmt.Sprintf("updated part %s", part.Code))
	})
}

func (s *partService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := requireActor(ctx, models.ResourceSparePart, models.ActionDelete); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.partRepo.Delete(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditActionDelete, "spare_parts", id, "deleted part")
	})
}
