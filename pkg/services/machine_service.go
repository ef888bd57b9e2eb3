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

// MachineService manages the machine registry entries this engine keys
// its plans and work orders against.
type MachineService interface {
	Create(ctx context.Context, machine *models.Machine) error
	Get(ctx context.Context, id uuid.UUID) (*models.Machine, error)
	List(ctx context.Context) ([]*models.Machine, error)
	Update(ctx context.Context, machine *models.Machine) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetStatus(ctx context.Context, id uuid.UUID, status models.MachineStatus) error
	AddRunningHours(ctx context.Context, id uuid.UUID, hours float64, cycles int) error
}

type machineService struct {
	machineRepo repositories.MachineRepository
	audit       AuditService
	tx          database.TxRunner
	logger      *zap.Logger
}

// NewMachineService creates a new MachineService.
func NewMachineService(machineRepo repositories.MachineRepository, audit AuditService, tx database.TxRunner, logger *zap.Logger) MachineService {
	return &machineService{machineRepo: machineRepo, audit: audit, tx: tx, logger: logger}
}

var _ MachineService = (*machineService)(nil)

func (s *machineService) Create(ctx context.Context, machine *models.Machine) error {
	if _, err := requireActor(ctx, models.ResourceMachine, models.ActionCreate); err != nil {
		return err
	}
	if strings.TrimSpace(machine.Code) == "" || strings.TrimSpace(machine.Name) == "" {
		return fmt.Errorf("%w: machine code and name are required", apperrors.ErrValidation)
	}
	if machine.Status == "" {
		machine.Status = models.MachineRunning
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.machineRepo.Create(ctx, machine); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditActionCreate, "machines", machine.ID,
			fmt.Sprintf("created machine %s", machine.Code))
	})
}

func (s *machineService) Get(ctx context.Context, id uuid.UUID) (*models.Machine, error) {
	if _, err := requireActor(ctx, models.ResourceMachine, models.ActionRead); err != nil {
		return nil, err
	}
	return s.machineRepo.GetByID(ctx, id)
}

func (s *machineService) List(ctx context.Context) ([]*models.Machine, error) {
	if _, err := requireActor(ctx, models.ResourceMachine, models.ActionRead); err != nil {
		return nil, err
	}
	return s.machineRepo.List(ctx)
}

func (s *machineService) Update(ctx context.Context, machine *models.Machine) error {
	if _, err := requireActor(ctx, models.ResourceMachine, models.ActionUpdate); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.machineRepo.Update(ctx, machine); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditActionUpdate, "machines", machine.ID,
			fmt.Sprintf("updated machine %s", machine.Code))
	})
}

func (s *machineService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := requireActor(ctx, models.ResourceMachine, models.ActionDelete); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.machineRepo.Delete(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditActionDelete, "machines", id, "deleted machine")
	})
}

func (s *machineService) SetStatus(ctx context.Context, id uuid.UUID, status models.MachineStatus) error {
	if _, err := requireActor(ctx, models.ResourceMachine, models.ActionUpdate); err != nil {
		return err
	}
	switch status {
	case models.MachineRunning, models.MachineWarning, models.MachineBreakdown:
	default:
		return fmt.Errorf("%w: unknown machine status %q", apperrors.ErrValidation, status)
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.machineRepo.SetStatus(ctx, id, status); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditActionUpdate, "machines", id,
			fmt.Sprintf("status set to %s", status))
	})
}

func (s *machineService) AddRunningHours(ctx context.Context, id uuid.UUID, hours float64, cycles int) error {
	if _, err := requireActor(ctx, models.ResourceMachine, models.ActionUpdate); err != nil {
		return err
	}
	if hours < 0 || cycles < 0 {
		return fmt.Errorf("%w: counters only increase", apperrors.ErrValidation)
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.machineRepo.AddRunningHours(ctx, id, hours, cycles)
	})
}
