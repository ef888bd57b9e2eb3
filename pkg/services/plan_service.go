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

// PlanService manages maintenance plans and their checklist templates.
type PlanService interface {
	CreatePlan(ctx context.Context, plan *models.MaintenancePlan) error
	GetPlan(ctx context.Context, id uuid.UUID) (*models.MaintenancePlan, error)
	ListPlans(ctx context.Context, kind *models.PlanKind) ([]*models.MaintenancePlan, error)
	ListPlansByMachine(ctx context.Context, machineID uuid.UUID) ([]*models.MaintenancePlan, error)
	UpdatePlan(ctx context.Context, id uuid.UUID, update models.PlanUpdate) error
	DeletePlan(ctx context.Context, id uuid.UUID) error

	ReplaceChecklist(ctx context.Context, planID uuid.UUID, items []models.ChecklistItem) error
	AddChecklistItem(ctx context.Context, planID uuid.UUID, item models.ChecklistItem) (*models.ChecklistItem, error)
	RemoveChecklistItem(ctx context.Context, planID, itemID uuid.UUID) error
}

type planService struct {
	planRepo    repositories.PlanRepository
	woRepo      repositories.WorkOrderRepository
	machineRepo repositories.MachineRepository
	audit       AuditService
	tx          database.TxRunner
	logger      *zap.Logger
}

// NewPlanService creates a new PlanService.
func NewPlanService(
	planRepo repositories.PlanRepository,
	woRepo repositories.WorkOrderRepository,
	machineRepo repositories.MachineRepository,
	audit AuditService,
	tx database.TxRunner,
	logger *zap.Logger,
) PlanService {
	return &planService{
		planRepo:    planRepo,
		woRepo:      woRepo,
		machineRepo: machineRepo,
		audit:       audit,
		tx:          tx,
		logger:      logger,
	}
}

var _ PlanService = (*planService)(nil)

func (s *planService) CreatePlan(ctx context.Context, plan *models.MaintenancePlan) error {
	if _, err := requireActor(ctx, models.ResourcePMPlan, models.ActionCreate); err != nil {
		return err
	}

	if strings.TrimSpace(plan.Title) == "" {
		return fmt.Errorf("%w: plan title is required", apperrors.ErrValidation)
	}
	if plan.Kind == "" {
		plan.Kind = models.PlanKindPM
	}
	if plan.ScheduleKind == "" {
		plan.ScheduleKind = models.ScheduleCalendar
	}
	if plan.ScheduleKind == models.ScheduleCalendar && plan.FrequencyDays != nil && plan.NextDueDate == nil {
		return fmt.Errorf("%w: calendar plan with a frequency needs a next due date", apperrors.ErrValidation)
	}

	if _, err := s.machineRepo.GetByID(ctx, plan.MachineID); err != nil {
		return fmt.Errorf("machine lookup failed: %w", err)
	}

	// A plan created from just a title and standard still gets one
	// executable checklist row.
	if len(plan.Checklist) == 0 {
		plan.Checklist = []models.ChecklistItem{{
			TaskName: plan.Title,
			Standard: plan.Standard,
			Sequence: 1,
		}}
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.planRepo.Create(ctx, plan); err != nil {
			return err
		}

		for i := range plan.Checklist {
			plan.Checklist[i].PlanID = plan.ID
			if plan.Checklist[i].Sequence == 0 {
				plan.Checklist[i].Sequence = i + 1
			}
			if err := s.planRepo.AddChecklistItem(ctx, &plan.Checklist[i]); err != nil {
				return err
			}
		}

		return s.audit.Record(ctx, models.AuditActionCreate, "maintenance_plans", plan.ID,
			fmt.Sprintf("created %s plan %q", plan.Kind, plan.Title))
	})
}

func (s *planService) GetPlan(ctx context.Context, id uuid.UUID) (*models.MaintenancePlan, error) {
	if _, err := requireActor(ctx, models.ResourcePMPlan, models.ActionRead); err != nil {
		return nil, err
	}
	return s.planRepo.GetByID(ctx, id)
}

func (s *planService) ListPlans(ctx context.Context, kind *models.PlanKind) ([]*models.MaintenancePlan, error) {
	if _, err := requireActor(ctx, models.ResourcePMPlan, models.ActionRead); err != nil {
		return nil, err
	}
	return s.planRepo.List(ctx, kind)
}

func (s *planService) ListPlansByMachine(ctx context.Context, machineID uuid.UUID) ([]*models.MaintenancePlan, error) {
	if _, err := requireActor(ctx, models.ResourcePMPlan, models.ActionRead); err != nil {
		return nil, err
	}
	return s.planRepo.ListByMachine(ctx, machineID)
}

func (s *planService) UpdatePlan(ctx context.Context, id uuid.UUID, update models.PlanUpdate) error {
	if _, err := requireActor(ctx, models.ResourcePMPlan, models.ActionUpdate); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.planRepo.Update(ctx, id, update); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditActionUpdate, "maintenance_plans", id, "updated plan")
	})
}

// DeletePlan detaches dependents first so history survives: work orders
// keep their checklist snapshots but lose the plan reference.
func (s *planService) DeletePlan(ctx context.Context, id uuid.UUID) error {
	if _, err := requireActor(ctx, models.ResourcePMPlan, models.ActionDelete); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.planRepo.GetByID(ctx, id); err != nil {
			return err
		}
		if err := s.woRepo.DetachPlan(ctx, id); err != nil {
			return err
		}
		if err := s.planRepo.Delete(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditActionDelete, "maintenance_plans", id, "deleted plan")
	})
}

// ReplaceChecklist is a destructive full replace: rows not resupplied are
// gone. Existing work order snapshots are untouched.
func (s *planService) ReplaceChecklist(ctx context.Context, planID uuid.UUID, items []models.ChecklistItem) error {
	if _, err := requireActor(ctx, models.ResourcePMPlan, models.ActionUpdate); err != nil {
		return err
	}

	for i := range items {
		if strings.TrimSpace(items[i].TaskName) == "" {
			return fmt.Errorf("%w: checklist item %d has no task name", apperrors.ErrValidation, i+1)
		}
		if items[i].Sequence == 0 {
			items[i].Sequence = i + 1
		}
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.planRepo.GetByID(ctx, planID); err != nil {
			return err
		}
		if err := s.planRepo.ReplaceChecklist(ctx, planID, items); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditActionUpdate, "maintenance_plans", planID,
			fmt.Sprintf("replaced checklist with %d items", len(items)))
	})
}

func (s *planService) AddChecklistItem(ctx context.Context, planID uuid.UUID, item models.ChecklistItem) (*models.ChecklistItem, error) {
	if _, err := requireActor(ctx, models.ResourcePMPlan, models.ActionUpdate); err != nil {
		return nil, err
	}
	if strings.TrimSpace(item.TaskName) == "" {
		return nil, fmt.Errorf("%w: task name is required", apperrors.ErrValidation)
	}

	item.PlanID = planID

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		existing, err := s.planRepo.GetChecklist(ctx, planID)
		if err != nil {
			return err
		}
		item.Sequence = len(existing) + 1

		if err := s.planRepo.AddChecklistItem(ctx, &item); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditActionUpdate, "maintenance_plans", planID,
			fmt.Sprintf("added checklist item %q", item.TaskName))
	})
	if err != nil {
		return nil, err
	}

	return &item, nil
}

func (s *planService) RemoveChecklistItem(ctx context.Context, planID, itemID uuid.UUID) error {
	if _, err := requireActor(ctx, models.ResourcePMPlan, models.ActionUpdate); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.planRepo.RemoveChecklistItem(ctx, itemID); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditActionUpdate, "maintenance_plans", planID,
			"removed checklist item")
	})
}
