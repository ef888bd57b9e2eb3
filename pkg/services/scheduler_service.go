package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/masapp-io/maintenance-engine/pkg/apperrors"
	"github.com/masapp-io/maintenance-engine/pkg/database"
	"github.com/masapp-io/maintenance-engine/pkg/models"
	"github.com/masapp-io/maintenance-engine/pkg/repositories"
	"github.com/masapp-io/maintenance-engine/pkg/retry"
)

// GeneratedTasksChannel is the redis channel generated work order IDs are
// published to.
const GeneratedTasksChannel = "maintenance.tasks.generated"

// SchedulerService turns due maintenance plans into work orders and
// advances plan schedules after completed cycles.
type SchedulerService interface {
	// GenerateTasksForDuePlans processes every due calendar plan and
	// returns the IDs of the work orders it created. One plan failing
	// does not abort the batch.
	GenerateTasksForDuePlans(ctx context.Context, now time.Time) ([]uuid.UUID, error)

	// ReschedulePlanAfterCompletion advances a plan's schedule after a
	// linked work order closes. Runs in the caller's transaction.
	ReschedulePlanAfterCompletion(ctx context.Context, planID uuid.UUID, now time.Time) error

	// RunPeriodic re-invokes generation on a fixed interval until ctx is
	// cancelled.
	RunPeriodic(ctx context.Context, interval time.Duration)
}

type schedulerService struct {
	planRepo repositories.PlanRepository
	woRepo   repositories.WorkOrderRepository
	audit    AuditService
	tx       database.TxRunner
	rdb      *redis.Client
	logger   *zap.Logger

	generateAMOrders bool
}

// NewSchedulerService creates a new SchedulerService. rdb may be nil;
// notifications are then skipped. generateAMOrders controls whether AM
// plans produce work orders or only advance their schedules.
func NewSchedulerService(
	planRepo repositories.PlanRepository,
	woRepo repositories.WorkOrderRepository,
	audit AuditService,
	tx database.TxRunner,
	rdb *redis.Client,
	generateAMOrders bool,
	logger *zap.Logger,
) SchedulerService {
	return &schedulerService{
		planRepo:         planRepo,
		woRepo:           woRepo,
		audit:            audit,
		tx:               tx,
		rdb:              rdb,
		logger:           logger,
		generateAMOrders: generateAMOrders,
	}
}

var _ SchedulerService = (*schedulerService)(nil)

func (s *schedulerService) GenerateTasksForDuePlans(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	// Collect candidates without holding locks across the batch; each
	// plan is re-locked and re-checked inside its own transaction.
	var dueIDs []uuid.UUID
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		plans, err := s.planRepo.ListDueCalendar(ctx, now)
		if err != nil {
			return err
		}
		for _, plan := range plans {
			dueIDs = append(dueIDs, plan.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan due plans: %w", err)
	}

	var generated []uuid.UUID
	for _, planID := range dueIDs {
		woID, err := s.generateForPlan(ctx, planID, now)
		if err != nil {
			if errors.Is(err, apperrors.ErrDuplicateTask) {
				s.logger.Debug("skipping plan with outstanding work order",
					zap.String("plan_id", planID.String()))
				continue
			}
			// Best-effort batch: log and move on.
			s.logger.Warn("failed to generate task for plan",
				zap.String("plan_id", planID.String()),
				zap.Error(err))
			continue
		}
		if woID != uuid.Nil {
			generated = append(generated, woID)
		}
	}

	s.publishGenerated(ctx, generated)

	s.logger.Info("task generation run finished",
		zap.Int("due_plans", len(dueIDs)),
		zap.Int("generated", len(generated)))

	return generated, nil
}

// generateForPlan handles a single plan in its own transaction. Returns
// uuid.Nil with nil error when the plan only advanced its schedule.
func (s *schedulerService) generateForPlan(ctx context.Context, planID uuid.UUID, now time.Time) (uuid.UUID, error) {
	var createdID uuid.UUID

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		plan, err := s.planRepo.GetByID(ctx, planID)
		if err != nil {
			return err
		}

		// Another run may have advanced the plan since the scan.
		if plan.NextDueDate == nil || plan.NextDueDate.After(now) {
			return nil
		}

		// AM plans silently advance without producing a work order:
		// operators in the originating deployments have no terminal.
		if plan.Kind == models.PlanKindAM && !s.generateAMOrders {
			return s.advanceSchedule(ctx, plan, now)
		}

		if _, err := s.woRepo.FindActiveByPlan(ctx, plan.ID); err == nil {
			return apperrors.ErrDuplicateTask
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}

		wo := &models.WorkOrder{
			MachineID:   &plan.MachineID,
			PlanID:      &plan.ID,
			Kind:        workOrderKindFor(plan.Kind),
			Description: "Automated Task: " + plan.Title,
			Status:      models.StatusOpen,
			Priority:    models.PriorityNormal,
			Origin:      "scheduler",
		}
		if err := s.woRepo.Create(ctx, wo); err != nil {
			return err
		}

		// Snapshot the template: later plan edits never touch these rows.
		if len(plan.Checklist) > 0 {
			results := make([]models.ChecklistResult, len(plan.Checklist))
			for i, item := range plan.Checklist {
				itemID := item.ID
				results[i] = models.ChecklistResult{
					WorkOrderID:     wo.ID,
					ChecklistItemID: &itemID,
					TaskName:        item.TaskName,
					Standard:        item.Standard,
					ResponsibleRole: item.ResponsibleRole,
				}
			}
			if err := s.woRepo.CreateChecklistResults(ctx, results); err != nil {
				return err
			}
		}

		if err := s.advanceSchedule(ctx, plan, now); err != nil {
			return err
		}

		if err := s.audit.Record(ctx, models.AuditActionGenerate, "work_orders", wo.ID,
			fmt.Sprintf("generated from plan %q", plan.Title)); err != nil {
			return err
		}

		createdID = wo.ID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	return createdID, nil
}

// advanceSchedule moves a calendar plan forward one cycle: last done now,
// next due now plus the frequency. Plans without a frequency keep their
// next due date cleared so they stop coming up.
func (s *schedulerService) advanceSchedule(ctx context.Context, plan *models.MaintenancePlan, now time.Time) error {
	var nextDue *time.Time
	if plan.FrequencyDays != nil {
		due := now.AddDate(0, 0, *plan.FrequencyDays)
		nextDue = &due
	}
	return s.planRepo.SetSchedule(ctx, plan.ID, now, nextDue)
}

func (s *schedulerService) ReschedulePlanAfterCompletion(ctx context.Context, planID uuid.UUID, now time.Time) error {
	// Locked read: two orders on the same plan closing at once must not
	// both compute the next threshold from the same starting value.
	plan, err := s.planRepo.GetByIDForUpdate(ctx, planID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// A closed order pointing at a vanished plan is a data
			// problem worth noticing, but not worth failing the close.
			s.logger.Warn("reschedule skipped: plan not found",
				zap.String("plan_id", planID.String()))
			return nil
		}
		return err
	}

	switch plan.ScheduleKind {
	case models.ScheduleCondition:
		return s.rescheduleCondition(ctx, plan)
	default:
		return s.advanceSchedule(ctx, plan, now)
	}
}

// rescheduleCondition raises the trigger threshold by the plan's
// increment. condition_increment wins; frequency_days is the legacy
// fallback; a plan with neither reuses its own trigger value.
func (s *schedulerService) rescheduleCondition(ctx context.Context, plan *models.MaintenancePlan) error {
	if plan.TriggerValue == nil {
		return nil
	}

	var increment float64
	switch {
	case plan.ConditionIncrement != nil:
		increment = *plan.ConditionIncrement
	case plan.FrequencyDays != nil:
		increment = float64(*plan.FrequencyDays)
	default:
		increment = *plan.TriggerValue
	}

	return s.planRepo.SetTriggerValue(ctx, plan.ID, *plan.TriggerValue+increment)
}

func (s *schedulerService) publishGenerated(ctx context.Context, ids []uuid.UUID) {
	if s.rdb == nil || len(ids) == 0 {
		return
	}
	for _, id := range ids {
		err := retry.DoIfRetryable(ctx, nil, func() error {
			return s.rdb.Publish(ctx, GeneratedTasksChannel, id.String()).Err()
		})
		if err != nil {
			s.logger.Warn("failed to publish generated task", zap.Error(err))
			return
		}
	}
}

func (s *schedulerService) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("periodic task generation started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("periodic task generation stopped")
			return
		case now := <-ticker.C:
			if _, err := s.GenerateTasksForDuePlans(ctx, now); err != nil {
				s.logger.Error("scheduled generation run failed", zap.Error(err))
			}
		}
	}
}

func workOrderKindFor(kind models.PlanKind) models.WorkOrderKind {
	if kind == models.PlanKindAM {
		return models.KindAM
	}
	return models.KindPM
}
