package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/masapp-io/maintenance-engine/pkg/apperrors"
	"github.com/masapp-io/maintenance-engine/pkg/database"
	"github.com/masapp-io/maintenance-engine/pkg/models"
	"github.com/masapp-io/maintenance-engine/pkg/repositories"
	"github.com/masapp-io/maintenance-engine/pkg/storage"
)

// WorkOrderService owns the work order lifecycle: creation, the state
// machine with its gates, parts consumption, labor and attachments.
type WorkOrderService interface {
	Create(ctx context.Context, wo *models.WorkOrder) error
	Get(ctx context.Context, id uuid.UUID) (*models.WorkOrder, error)
	List(ctx context.Context, filter repositories.WorkOrderFilter) ([]*models.WorkOrder, error)
	Update(ctx context.Context, id uuid.UUID, update models.WorkOrderUpdate) error
	Delete(ctx context.Context, id uuid.UUID) error

	UpdateChecklistResult(ctx context.Context, workOrderID, resultID uuid.UUID, update models.ChecklistResultUpdate) error

	Approve(ctx context.Context, id uuid.UUID) error
	Start(ctx context.Context, id uuid.UUID) error
	Hold(ctx context.Context, id uuid.UUID, reason string) error
	Complete(ctx context.Context, id uuid.UUID) error
	Close(ctx context.Context, id uuid.UUID, satisfactionScore int, acceptanceNote string) error

	ConsumePart(ctx context.Context, workOrderID, partID uuid.UUID, quantity int) error
	AddLabor(ctx context.Context, entry *models.LaborEntry) error
	AddAttachment(ctx context.Context, workOrderID uuid.UUID, fileName, fileType string, src io.Reader) (*models.Attachment, error)
}

type workOrderService struct {
	woRepo    repositories.WorkOrderRepository
	partRepo  repositories.PartRepository
	audit     AuditService
	scheduler SchedulerService
	store     storage.AttachmentStore
	tx        database.TxRunner
	logger    *zap.Logger
}

// NewWorkOrderService creates a new WorkOrderService.
func NewWorkOrderService(
	woRepo repositories.WorkOrderRepository,
	partRepo repositories.PartRepository,
	audit AuditService,
	scheduler SchedulerService,
	store storage.AttachmentStore,
	tx database.TxRunner,
	logger *zap.Logger,
) WorkOrderService {
	return &workOrderService{
		woRepo:    woRepo,
		partRepo:  partRepo,
		audit:     audit,
		scheduler: scheduler,
		store:     store,
		tx:        tx,
		logger:    logger,
	}
}

var _ WorkOrderService = (*workOrderService)(nil)

func (s *workOrderService) Create(ctx context.Context, wo *models.WorkOrder) error {
	actor, err := requireActor(ctx, models.ResourceWorkOrder, models.ActionCreate)
	if err != nil {
		return err
	}

	if strings.TrimSpace(wo.Description) == "" {
		return fmt.Errorf("%w: description is required", apperrors.ErrValidation)
	}
	if wo.Kind == "" {
		wo.Kind = models.KindRepair
	}
	if wo.Priority == "" {
		wo.Priority = models.PriorityNormal
	}

	// Manual orders start at New; generated ones are created Open by
	// the scheduler directly.
	wo.Status = models.StatusNew

	if wo.ReportedByID == nil {
		wo.ReportedByID = &actor.UserID
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.woRepo.Create(ctx, wo); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditActionCreate, "work_orders", wo.ID,
			fmt.Sprintf("created %s work order", wo.Kind))
	})
}

func (s *workOrderService) Get(ctx context.Context, id uuid.UUID) (*models.WorkOrder, error) {
	if _, err := requireActor(ctx, models.ResourceWorkOrder, models.ActionRead); err != nil {
		return nil, err
	}
	return s.woRepo.GetByID(ctx, id)
}

func (s *workOrderService) List(ctx context.Context, filter repositories.WorkOrderFilter) ([]*models.WorkOrder, error) {
	if _, err := requireActor(ctx, models.ResourceWorkOrder, models.ActionRead); err != nil {
		return nil, err
	}
	return s.woRepo.List(ctx, filter)
}

func (s *workOrderService) Update(ctx context.Context, id uuid.UUID, update models.WorkOrderUpdate) error {
	if _, err := requireActor(ctx, models.ResourceWorkOrder, models.ActionUpdate); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.woRepo.Update(ctx, id, update); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditActionUpdate, "work_orders", id, "updated work order")
	})
}

func (s *workOrderService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := requireActor(ctx, models.ResourceWorkOrder, models.ActionDelete); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.woRepo.Delete(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditActionDelete, "work_orders", id, "deleted work order")
	})
}

func (s *workOrderService) UpdateChecklistResult(ctx context.Context, workOrderID, resultID uuid.UUID, update models.ChecklistResultUpdate) error {
	if _, err := requireActor(ctx, models.ResourceWorkOrder, models.ActionUpdate); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.woRepo.UpdateChecklistResult(ctx, resultID, update); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditActionUpdate, "work_orders", workOrderID,
			"updated checklist result")
	})
}

// Approve moves Fabrication/Modification orders from New to Approved.
func (s *workOrderService) Approve(ctx context.Context, id uuid.UUID) error {
	if _, err := requireActor(ctx, models.ResourceWorkOrder, models.ActionApprove); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		wo, err := s.woRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !models.RequiresApproval(wo.Kind) {
			return fmt.Errorf("%w: %s work orders do not need approval",
				apperrors.ErrInvalidTransition, wo.Kind)
		}
		if err := s.transition(wo, models.StatusApproved); err != nil {
			return err
		}
		if err := s.woRepo.SaveLifecycle(ctx, wo); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditActionApprove, "work_orders", id, "approved")
	})
}

func (s *workOrderService) Start(ctx context.Context, id uuid.UUID) error {
	if _, err := requireActor(ctx, models.ResourceWorkOrder, models.ActionUpdate); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		wo, err := s.woRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		// Approval-gated kinds may not jump straight from New.
		if wo.Status == models.StatusNew && models.RequiresApproval(wo.Kind) {
			return fmt.Errorf("%w: %s work orders must be approved before starting",
				apperrors.ErrInvalidTransition, wo.Kind)
		}
		if err := s.transition(wo, models.StatusInProgress); err != nil {
			return err
		}
		wo.HoldReason = ""
		if err := s.woRepo.SaveLifecycle(ctx, wo); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditActionStart, "work_orders", id, "started")
	})
}

func (s *workOrderService) Hold(ctx context.Context, id uuid.UUID, reason string) error {
	if _, err := requireActor(ctx, models.ResourceWorkOrder, models.ActionUpdate); err != nil {
		return err
	}
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%w: hold reason is required", apperrors.ErrValidation)
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		wo, err := s.woRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.transition(wo, models.StatusHold); err != nil {
			return err
		}
		wo.HoldReason = reason
		if err := s.woRepo.SaveLifecycle(ctx, wo); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditActionHold, "work_orders", id,
			fmt.Sprintf("put on hold: %s", reason))
	})
}

// Complete moves an order to Done. High and critical repair work must
// carry at least the first root cause "why".
func (s *workOrderService) Complete(ctx context.Context, id uuid.UUID) error {
	if _, err := requireActor(ctx, models.ResourceWorkOrder, models.ActionUpdate); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		wo, err := s.woRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if wo.RequiresRootCause() && strings.TrimSpace(wo.RootCauseWhy1) == "" {
			return fmt.Errorf("%w: root cause analysis is required before completion",
				apperrors.ErrValidation)
		}
		if err := s.transition(wo, models.StatusDone); err != nil {
			return err
		}
		if err := s.woRepo.SaveLifecycle(ctx, wo); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditActionComplete, "work_orders", id, "completed")
	})
}

// Close accepts finished work. It records the satisfaction score and
// acceptance note, stamps closed_at and, for plan-linked orders, advances
// the plan schedule in the same transaction.
func (s *workOrderService) Close(ctx context.Context, id uuid.UUID, satisfactionScore int, acceptanceNote string) error {
	if _, err := requireActor(ctx, models.ResourceWorkOrder, models.ActionApprove); err != nil {
		return err
	}
	if satisfactionScore < 1 || satisfactionScore > 5 {
		return fmt.Errorf("%w: satisfaction score must be between 1 and 5", apperrors.ErrValidation)
	}
	if strings.TrimSpace(acceptanceNote) == "" {
		return fmt.Errorf("%w: acceptance note is required", apperrors.ErrValidation)
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		wo, err := s.woRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.transition(wo, models.StatusClosed); err != nil {
			return err
		}

		now := time.Now()
		wo.SatisfactionScore = &satisfactionScore
		wo.AcceptanceNote = acceptanceNote
		wo.ClosedAt = &now

		if err := s.woRepo.SaveLifecycle(ctx, wo); err != nil {
			return err
		}

		if wo.PlanID != nil {
			if err := s.scheduler.ReschedulePlanAfterCompletion(ctx, *wo.PlanID, now); err != nil {
				return err
			}
		}

		return s.audit.Record(ctx, models.AuditActionClose, "work_orders", id,
			fmt.Sprintf("closed with score %d", satisfactionScore))
	})
}

// ConsumePart decrements part stock and records the usage atomically.
// The part row is locked first so two concurrent consumers cannot both
// pass the stock check.
func (s *workOrderService) ConsumePart(ctx context.Context, workOrderID, partID uuid.UUID, quantity int) error {
	if _, err := requireActor(ctx, models.ResourceSparePart, models.ActionUpdate); err != nil {
		return err
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", apperrors.ErrValidation)
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.woRepo.GetByID(ctx, workOrderID); err != nil {
			return err
		}

		part, err := s.partRepo.GetByIDForUpdate(ctx, partID)
		if err != nil {
			return err
		}
		if part.CurrentStock < quantity {
			return fmt.Errorf("%w: %s has %d in stock, %d requested",
				apperrors.ErrInsufficientStock, part.Code, part.CurrentStock, quantity)
		}

		if err := s.partRepo.DeductStock(ctx, partID, quantity); err != nil {
			return err
		}

		usage := &models.PartUsage{
			WorkOrderID: workOrderID,
			PartID:      partID,
			Quantity:    quantity,
		}
		if err := s.partRepo.CreateUsage(ctx, usage); err != nil {
			return err
		}

		return s.audit.Record(ctx, models.AuditActionConsume, "work_orders", workOrderID,
			fmt.Sprintf("consumed %d x %s", quantity, part.Code))
	})
}

// AddLabor appends a labor entry and rolls its minutes into the order's
// actual_minutes total.
func (s *workOrderService) AddLabor(ctx context.Context, entry *models.LaborEntry) error {
	actor, err := requireActor(ctx, models.ResourceWorkOrder, models.ActionUpdate)
	if err != nil {
		return err
	}
	if entry.Minutes <= 0 {
		return fmt.Errorf("%w: minutes must be positive", apperrors.ErrValidation)
	}
	if entry.UserID == uuid.Nil {
		entry.UserID = actor.UserID
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.woRepo.GetByID(ctx, entry.WorkOrderID); err != nil {
			return err
		}
		if err := s.woRepo.AddLabor(ctx, entry); err != nil {
			return err
		}
		if err := s.woRepo.AccumulateMinutes(ctx, entry.WorkOrderID, entry.Minutes); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditActionUpdate, "work_orders", entry.WorkOrderID,
			fmt.Sprintf("logged %d minutes of labor", entry.Minutes))
	})
}

// AddAttachment stores the file first, then records the path. A failed
// insert leaves an orphan file rather than a dangling database row.
func (s *workOrderService) AddAttachment(ctx context.Context, workOrderID uuid.UUID, fileName, fileType string, src io.Reader) (*models.Attachment, error) {
	if _, err := requireActor(ctx, models.ResourceWorkOrder, models.ActionUpdate); err != nil {
		return nil, err
	}

	if _, err := s.woRepo.GetByID(ctx, workOrderID); err != nil {
		return nil, err
	}

	path, err := s.store.Save(workOrderID, fileName, src)
	if err != nil {
		return nil, err
	}

	att := &models.Attachment{
		WorkOrderID: workOrderID,
		FilePath:    path,
		FileType:    fileType,
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.woRepo.AddAttachment(ctx, att); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditActionAttach, "work_orders", workOrderID,
			fmt.Sprintf("attached %s", fileName))
	})
	if err != nil {
		return nil, err
	}

	return att, nil
}

func (s *workOrderService) transition(wo *models.WorkOrder, to models.WorkOrderStatus) error {
	if !models.CanTransition(wo.Status, to) {
		return fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, wo.Status, to)
	}
	wo.Status = to
	return nil
}
