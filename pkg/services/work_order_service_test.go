package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/masapp-io/maintenance-engine/pkg/apperrors"
	"github.com/masapp-io/maintenance-engine/pkg/models"
)

type workOrderFixture struct {
	svc       WorkOrderService
	scheduler SchedulerService
	planRepo  *mockPlanRepo
	woRepo    *mockWorkOrderRepo
	partRepo  *mockPartRepo
	auditRepo *mockAuditRepo
}

func newWorkOrderFixture() *workOrderFixture {
	planRepo := newMockPlanRepo()
	woRepo := newMockWorkOrderRepo()
	partRepo := newMockPartRepo()
	auditRepo := &mockAuditRepo{}

	audit := NewAuditService(auditRepo, zap.NewNop())
	scheduler := NewSchedulerService(planRepo, woRepo, audit, stubTx{}, nil, false, zap.NewNop())
	svc := NewWorkOrderService(woRepo, partRepo, audit, scheduler, nil, stubTx{}, zap.NewNop())

	return &workOrderFixture{
		svc:       svc,
		scheduler: scheduler,
		planRepo:  planRepo,
		woRepo:    woRepo,
		partRepo:  partRepo,
		auditRepo: auditRepo,
	}
}

func (f *workOrderFixture) seedOrder(wo *models.WorkOrder) *models.WorkOrder {
	wo.ID = uuid.New()
	wo.CreatedAt = time.Now()
	if wo.Kind == "" {
		wo.Kind = models.KindRepair
	}
	if wo.Priority == "" {
		wo.Priority = models.PriorityNormal
	}
	f.woRepo.orders[wo.ID] = wo
	return wo
}

func TestWorkOrderService_CreateDefaultsReporterToActor(t *testing.T) {
	f := newWorkOrderFixture()
	ctx := actorCtx(models.RoleTechnician)
	actor, _ := models.GetActor(ctx)

	wo := &models.WorkOrder{Description: "Pump leaking"}
	require.NoError(t, f.svc.Create(ctx, wo))

	assert.Equal(t, models.StatusNew, wo.Status)
	assert.Equal(t, models.KindRepair, wo.Kind)
	assert.Equal(t, models.PriorityNormal, wo.Priority)
	require.NotNil(t, wo.ReportedByID)
	assert.Equal(t, actor.UserID, *wo.ReportedByID)
}

func TestWorkOrderService_CreateRequiresDescription(t *testing.T) {
	f := newWorkOrderFixture()

	err := f.svc.Create(actorCtx(models.RoleTechnician), &models.WorkOrder{Description: "  "})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestWorkOrderService_ViewerCannotCreate(t *testing.T) {
	f := newWorkOrderFixture()

	err := f.svc.Create(actorCtx(models.RoleViewer), &models.WorkOrder{Description: "x"})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestWorkOrderService_StartRequiresApprovalForFabrication(t *testing.T) {
	f := newWorkOrderFixture()
	ctx := actorCtx(models.RoleEngineer)

	wo := f.seedOrder(&models.WorkOrder{
		Description: "Build mounting bracket",
		Kind:        models.KindFabrication,
		Status:      models.StatusNew,
	})

	err := f.svc.Start(ctx, wo.ID)
	require.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	require.NoError(t, f.svc.Approve(ctx, wo.ID))
	require.NoError(t, f.svc.Start(ctx, wo.ID))

	updated, err := f.woRepo.GetByID(context.Background(), wo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
}

func TestWorkOrderService_ApproveRejectsKindsThatDoNotNeedIt(t *testing.T) {
	f := newWorkOrderFixture()

	wo := f.seedOrder(&models.WorkOrder{
		Description: "Fix motor",
		Kind:        models.KindRepair,
		Status:      models.StatusNew,
	})

	err := f.svc.Approve(actorCtx(models.RoleManager), wo.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestWorkOrderService_HoldRequiresReason(t *testing.T) {
	f := newWorkOrderFixture()
	ctx := actorCtx(models.RoleTechnician)

	wo := f.seedOrder(&models.WorkOrder{
		Description: "Fix motor",
		Status:      models.StatusInProgress,
	})

	err := f.svc.Hold(ctx, wo.ID, "   ")
	require.ErrorIs(t, err, apperrors.ErrValidation)

	require.NoError(t, f.svc.Hold(ctx, wo.ID, "waiting for bearings"))

	updated, err := f.woRepo.GetByID(context.Background(), wo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusHold, updated.Status)
	assert.Equal(t, "waiting for bearings", updated.HoldReason)

	// Resume clears the reason.
	require.NoError(t, f.svc.Start(ctx, wo.ID))
	updated, err = f.woRepo.GetByID(context.Background(), wo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.Empty(t, updated.HoldReason)
}

func TestWorkOrderService_CompleteEnforcesRootCauseGate(t *testing.T) {
	f := newWorkOrderFixture()
	ctx := actorCtx(models.RoleTechnician)

	wo := f.seedOrder(&models.WorkOrder{
		Description: "Spindle seized",
		Kind:        models.KindRepair,
		Priority:    models.PriorityCritical,
		Status:      models.StatusInProgress,
	})

	err := f.svc.Complete(ctx, wo.ID)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	why := "Lubrication line clogged"
	require.NoError(t, f.svc.Update(ctx, wo.ID, models.WorkOrderUpdate{RootCauseWhy1: &why}))
	require.NoError(t, f.svc.Complete(ctx, wo.ID))

	updated, err := f.woRepo.GetByID(context.Background(), wo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, updated.Status)
}

func TestWorkOrderService_CompleteWithoutGateForLowPriority(t *testing.T) {
	f := newWorkOrderFixture()

	wo := f.seedOrder(&models.WorkOrder{
		Description: "Tighten guard",
		Kind:        models.KindRepair,
		Priority:    models.PriorityLow,
		Status:      models.StatusInProgress,
	})

	assert.NoError(t, f.svc.Complete(actorCtx(models.RoleTechnician), wo.ID))
}

func TestWorkOrderService_CloseValidatesAcceptance(t *testing.T) {
	f := newWorkOrderFixture()
	ctx := actorCtx(models.RoleManager)

	wo := f.seedOrder(&models.WorkOrder{
		Description: "Fix motor",
		Status:      models.StatusDone,
	})

	assert.ErrorIs(t, f.svc.Close(ctx, wo.ID, 0, "fine"), apperrors.ErrValidation)
	assert.ErrorIs(t, f.svc.Close(ctx, wo.ID, 6, "fine"), apperrors.ErrValidation)
	assert.ErrorIs(t, f.svc.Close(ctx, wo.ID, 4, ""), apperrors.ErrValidation)

	require.NoError(t, f.svc.Close(ctx, wo.ID, 4, "Works again"))

	updated, err := f.woRepo.GetByID(context.Background(), wo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, updated.Status)
	require.NotNil(t, updated.SatisfactionScore)
	assert.Equal(t, 4, *updated.SatisfactionScore)
	assert.Equal(t, "Works again", updated.AcceptanceNote)
	assert.NotNil(t, updated.ClosedAt)
}

func TestWorkOrderService_CloseTechnicianLacksApprovePermission(t *testing.T) {
	f := newWorkOrderFixture()

	wo := f.seedOrder(&models.WorkOrder{
		Description: "Fix motor",
		Status:      models.StatusDone,
	})

	err := f.svc.Close(actorCtx(models.RoleTechnician), wo.ID, 5, "ok")
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestWorkOrderService_CloseReschedulesLinkedPlan(t *testing.T) {
	f := newWorkOrderFixture()
	now := time.Now()

	plan := seedPlan(f.planRepo, &models.MaintenancePlan{
		MachineID:     uuid.New(),
		Title:         "Monthly service",
		Kind:          models.PlanKindPM,
		ScheduleKind:  models.ScheduleCalendar,
		FrequencyDays: intPtr(30),
	})

	wo := f.seedOrder(&models.WorkOrder{
		Description: "Automated Task: Monthly service",
		Kind:        models.KindPM,
		PlanID:      &plan.ID,
		Status:      models.StatusDone,
	})

	require.NoError(t, f.svc.Close(actorCtx(models.RoleManager), wo.ID, 5, "all good"))

	updated, err := f.planRepo.GetByID(context.Background(), plan.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.NextDueDate)
	assert.WithinDuration(t, now.AddDate(0, 0, 30), *updated.NextDueDate, time.Minute)
	require.NotNil(t, updated.LastDoneDate)
}

func TestWorkOrderService_InvalidTransitionRejected(t *testing.T) {
	f := newWorkOrderFixture()

	wo := f.seedOrder(&models.WorkOrder{
		Description: "Fix motor",
		Status:      models.StatusClosed,
	})

	err := f.svc.Start(actorCtx(models.RoleTechnician), wo.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestWorkOrderService_ConsumePartGuardsStock(t *testing.T) {
	f := newWorkOrderFixture()
	ctx := actorCtx(models.RoleTechnician)

	wo := f.seedOrder(&models.WorkOrder{
		Description: "Replace bearing",
		Status:      models.StatusInProgress,
	})

	part := &models.SparePart{Code: "BRG-6204", Name: "Bearing 6204", CurrentStock: 2}
	require.NoError(t, f.partRepo.Create(context.Background(), part))

	err := f.svc.ConsumePart(ctx, wo.ID, part.ID, 3)
	require.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	unchanged, _ := f.partRepo.GetByID(context.Background(), part.ID)
	assert.Equal(t, 2, unchanged.CurrentStock)
	assert.Empty(t, f.partRepo.usages)

	require.NoError(t, f.svc.ConsumePart(ctx, wo.ID, part.ID, 2))

	drained, _ := f.partRepo.GetByID(context.Background(), part.ID)
	assert.Equal(t, 0, drained.CurrentStock)
	require.Len(t, f.partRepo.usages, 1)
	assert.Equal(t, 2, f.partRepo.usages[0].Quantity)
}

func TestWorkOrderService_ConsumePartRejectsNonPositiveQuantity(t *testing.T) {
	f := newWorkOrderFixture()

	err := f.svc.ConsumePart(actorCtx(models.RoleTechnician), uuid.New(), uuid.New(), 0)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestWorkOrderService_AddLaborAccumulatesMinutes(t *testing.T) {
	f := newWorkOrderFixture()
	ctx := actorCtx(models.RoleTechnician)

	wo := f.seedOrder(&models.WorkOrder{
		Description: "Replace bearing",
		Status:      models.StatusInProgress,
	})

	require.NoError(t, f.svc.AddLabor(ctx, &models.LaborEntry{WorkOrderID: wo.ID, Minutes: 45}))
	require.NoError(t, f.svc.AddLabor(ctx, &models.LaborEntry{WorkOrderID: wo.ID, Minutes: 30}))

	updated, err := f.woRepo.GetByID(context.Background(), wo.ID)
	require.NoError(t, err)
	assert.Equal(t, 75, updated.ActualMinutes)
	assert.Len(t, f.woRepo.labor[wo.ID], 2)
}

func TestWorkOrderService_LifecycleWritesAuditTrail(t *testing.T) {
	f := newWorkOrderFixture()
	ctx := actorCtx(models.RoleManager)

	wo := &models.WorkOrder{Description: "Fix motor"}
	require.NoError(t, f.svc.Create(ctx, wo))
	require.NoError(t, f.svc.Start(ctx, wo.ID))
	require.NoError(t, f.svc.Complete(ctx, wo.ID))
	require.NoError(t, f.svc.Close(ctx, wo.ID, 5, "done"))

	var actions []string
	for _, e := range f.auditRepo.entries {
		if e.RecordID == wo.ID {
			actions = append(actions, e.Action)
		}
	}
	assert.Equal(t, strings.Join([]string{
		models.AuditActionCreate,
		models.AuditActionStart,
		models.AuditActionComplete,
		models.AuditActionClose,
	}, ","), strings.Join(actions, ","))
}
