package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/masapp-io/maintenance-engine/pkg/apperrors"
	"github.com/masapp-io/maintenance-engine/pkg/models"
)

type planFixture struct {
	svc         PlanService
	planRepo    *mockPlanRepo
	woRepo      *mockWorkOrderRepo
	machineRepo *mockMachineRepo
	auditRepo   *mockAuditRepo
	machine     *models.Machine
}

func newPlanFixture(t *testing.T) *planFixture {
	t.Helper()

	planRepo := newMockPlanRepo()
	woRepo := newMockWorkOrderRepo()
	machineRepo := newMockMachineRepo()
	auditRepo := &mockAuditRepo{}

	machine := &models.Machine{Code: "CNC-01", Name: "CNC Mill", Status: models.MachineRunning}
	require.NoError(t, machineRepo.Create(context.Background(), machine))

	audit := NewAuditService(auditRepo, zap.NewNop())
	svc := NewPlanService(planRepo, woRepo, machineRepo, audit, stubTx{}, zap.NewNop())

	return &planFixture{
		svc:         svc,
		planRepo:    planRepo,
		woRepo:      woRepo,
		machineRepo: machineRepo,
		auditRepo:   auditRepo,
		machine:     machine,
	}
}

func TestPlanService_CreateSynthesizesChecklistItem(t *testing.T) {
	f := newPlanFixture(t)
	ctx := actorCtx(models.RoleEngineer)

	plan := &models.MaintenancePlan{
		MachineID:     f.machine.ID,
		Title:         "Belt tension check",
		Standard:      "Deflection < 5mm",
		Kind:          models.PlanKindPM,
		FrequencyDays: intPtr(30),
		NextDueDate:   timePtr(time.Now().AddDate(0, 0, 30)),
	}
	require.NoError(t, f.svc.CreatePlan(ctx, plan))

	stored, err := f.planRepo.GetByID(context.Background(), plan.ID)
	require.NoError(t, err)
	require.Len(t, stored.Checklist, 1)
	assert.Equal(t, "Belt tension check", stored.Checklist[0].TaskName)
	assert.Equal(t, "Deflection < 5mm", stored.Checklist[0].Standard)
	assert.Equal(t, 1, stored.Checklist[0].Sequence)
}

func TestPlanService_CreateKeepsSuppliedChecklist(t *testing.T) {
	f := newPlanFixture(t)

	plan := &models.MaintenancePlan{
		MachineID:    f.machine.ID,
		Title:        "Full inspection",
		ScheduleKind: models.ScheduleCondition,
		TriggerValue: floatPtr(500),
		Checklist: []models.ChecklistItem{
			{TaskName: "Check oil level"},
			{TaskName: "Check belt wear"},
		},
	}
	require.NoError(t, f.svc.CreatePlan(actorCtx(models.RoleEngineer), plan))

	stored, err := f.planRepo.GetByID(context.Background(), plan.ID)
	require.NoError(t, err)
	require.Len(t, stored.Checklist, 2)
	assert.Equal(t, 1, stored.Checklist[0].Sequence)
	assert.Equal(t, 2, stored.Checklist[1].Sequence)
}

func TestPlanService_CreateRequiresTitle(t *testing.T) {
	f := newPlanFixture(t)

	err := f.svc.CreatePlan(actorCtx(models.RoleEngineer), &models.MaintenancePlan{
		MachineID: f.machine.ID,
		Title:     "  ",
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestPlanService_CreateRejectsUnknownMachine(t *testing.T) {
	f := newPlanFixture(t)

	err := f.svc.CreatePlan(actorCtx(models.RoleEngineer), &models.MaintenancePlan{
		MachineID: uuid.New(),
		Title:     "Orphan plan",
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPlanService_ViewerCannotCreate(t *testing.T) {
	f := newPlanFixture(t)

	err := f.svc.CreatePlan(actorCtx(models.RoleViewer), &models.MaintenancePlan{
		MachineID: f.machine.ID,
		Title:     "Nope",
	})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestPlanService_DeleteDetachesDependents(t *testing.T) {
	f := newPlanFixture(t)
	ctx := actorCtx(models.RoleAdmin)

	plan := seedPlan(f.planRepo, &models.MaintenancePlan{
		MachineID:    f.machine.ID,
		Title:        "Quarterly overhaul",
		Kind:         models.PlanKindPM,
		ScheduleKind: models.ScheduleCalendar,
	},
		models.ChecklistItem{TaskName: "Drain oil", Sequence: 1},
		models.ChecklistItem{TaskName: "Replace seals", Sequence: 2},
	)
	items := f.planRepo.checklists[plan.ID]

	wo := &models.WorkOrder{
		PlanID:      &plan.ID,
		Kind:        models.KindPM,
		Description: "Automated Task: Quarterly overhaul",
		Status:      models.StatusClosed,
		Priority:    models.PriorityNormal,
	}
	require.NoError(t, f.woRepo.Create(context.Background(), wo))
	require.NoError(t, f.woRepo.CreateChecklistResults(context.Background(), []models.ChecklistResult{
		{WorkOrderID: wo.ID, ChecklistItemID: &items[0].ID, TaskName: items[0].TaskName},
		{WorkOrderID: wo.ID, ChecklistItemID: &items[1].ID, TaskName: items[1].TaskName},
	}))

	require.NoError(t, f.svc.DeletePlan(ctx, plan.ID))

	_, err := f.planRepo.GetByID(context.Background(), plan.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	surviving, err := f.woRepo.GetByID(context.Background(), wo.ID)
	require.NoError(t, err)
	assert.Nil(t, surviving.PlanID)
	require.Len(t, surviving.ChecklistResults, 2)
	for _, res := range surviving.ChecklistResults {
		assert.Nil(t, res.ChecklistItemID)
		assert.NotEmpty(t, res.TaskName)
	}
}

func TestPlanService_DeleteRequiresDeletePermission(t *testing.T) {
	f := newPlanFixture(t)

	plan := seedPlan(f.planRepo, &models.MaintenancePlan{
		MachineID: f.machine.ID,
		Title:     "Protected plan",
	})

	// Only Admin holds pm_plan delete.
	err := f.svc.DeletePlan(actorCtx(models.RoleManager), plan.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestPlanService_ReplaceChecklistIsDestructive(t *testing.T) {
	f := newPlanFixture(t)
	ctx := actorCtx(models.RoleEngineer)

	plan := seedPlan(f.planRepo, &models.MaintenancePlan{
		MachineID: f.machine.ID,
		Title:     "Inspection",
	},
		models.ChecklistItem{TaskName: "Old task A", Sequence: 1},
		models.ChecklistItem{TaskName: "Old task B", Sequence: 2},
	)

	require.NoError(t, f.svc.ReplaceChecklist(ctx, plan.ID, []models.ChecklistItem{
		{TaskName: "New task"},
	}))

	stored, err := f.planRepo.GetByID(context.Background(), plan.ID)
	require.NoError(t, err)
	require.Len(t, stored.Checklist, 1)
	assert.Equal(t, "New task", stored.Checklist[0].TaskName)
	assert.Equal(t, 1, stored.Checklist[0].Sequence)
}

func TestPlanService_AddChecklistItemAppendsSequence(t *testing.T) {
	f := newPlanFixture(t)
	ctx := actorCtx(models.RoleEngineer)

	plan := seedPlan(f.planRepo, &models.MaintenancePlan{
		MachineID: f.machine.ID,
		Title:     "Inspection",
	},
		models.ChecklistItem{TaskName: "First", Sequence: 1},
	)

	added, err := f.svc.AddChecklistItem(ctx, plan.ID, models.ChecklistItem{TaskName: "Second"})
	require.NoError(t, err)
	assert.Equal(t, 2, added.Sequence)

	require.NoError(t, f.svc.RemoveChecklistItem(ctx, plan.ID, added.ID))

	stored, err := f.planRepo.GetByID(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Checklist, 1)
}

func TestPlanService_UpdateRecordsAudit(t *testing.T) {
	f := newPlanFixture(t)

	plan := seedPlan(f.planRepo, &models.MaintenancePlan{
		MachineID: f.machine.ID,
		Title:     "Inspection",
	})

	title := "Renamed inspection"
	require.NoError(t, f.svc.UpdatePlan(actorCtx(models.RoleManager), plan.ID, models.PlanUpdate{Title: &title}))

	stored, err := f.planRepo.GetByID(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed inspection", stored.Title)

	entries, err := f.auditRepo.ListByRecord(context.Background(), "maintenance_plans", plan.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditActionUpdate, entries[0].Action)
	assert.NotNil(t, entries[0].UserID)
}
