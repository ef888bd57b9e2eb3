package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/masapp-io/maintenance-engine/pkg/apperrors"
	"github.com/masapp-io/maintenance-engine/pkg/models"
	"github.com/masapp-io/maintenance-engine/pkg/repositories"
)

// stubTx is a pass-through TxRunner so service logic can be tested
// without a database.
type stubTx struct{}

func (stubTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// actorCtx builds a context carrying an actor with the given role.
func actorCtx(role models.Role) context.Context {
	return models.WithActor(context.Background(), models.Actor{
		UserID: uuid.New(),
		Role:   role,
	})
}

// mockAuditRepo implements repositories.AuditRepository.
type mockAuditRepo struct {
	entries   []models.AuditLogEntry
	createErr error
}

func (m *mockAuditRepo) Create(_ context.Context, entry *models.AuditLogEntry) error {
	if m.createErr != nil {
		return m.createErr
	}
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockAuditRepo) ListByRecord(_ context.Context, tableName string, recordID uuid.UUID) ([]models.AuditLogEntry, error) {
	var out []models.AuditLogEntry
	for _, e := range m.entries {
		if e.TableName == tableName && e.RecordID == recordID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockAuditRepo) ListRecent(_ context.Context, limit int) ([]models.AuditLogEntry, error) {
	if len(m.entries) > limit {
		return m.entries[len(m.entries)-limit:], nil
	}
	return m.entries, nil
}

// mockPlanRepo implements repositories.PlanRepository in memory.
type mockPlanRepo struct {
	plans      map[uuid.UUID]*models.MaintenancePlan
	checklists map[uuid.UUID][]models.ChecklistItem

	createErr error
	getErr    error
	listErr   error
}

func newMockPlanRepo() *mockPlanRepo {
	return &mockPlanRepo{
		plans:      make(map[uuid.UUID]*models.MaintenancePlan),
		checklists: make(map[uuid.UUID][]models.ChecklistItem),
	}
}

func (m *mockPlanRepo) Create(_ context.Context, plan *models.MaintenancePlan) error {
	if m.createErr != nil {
		return m.createErr
	}
	plan.ID = uuid.New()
	plan.CreatedAt = time.Now()
	cp := *plan
	cp.Checklist = nil
	m.plans[plan.ID] = &cp
	return nil
}

func (m *mockPlanRepo) GetByID(_ context.Context, id uuid.UUID) (*models.MaintenancePlan, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	plan, ok := m.plans[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *plan
	cp.Checklist = append([]models.ChecklistItem(nil), m.checklists[id]...)
	return &cp, nil
}

func (m *mockPlanRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.MaintenancePlan, error) {
	return m.GetByID(ctx, id)
}

func (m *mockPlanRepo) Update(_ context.Context, id uuid.UUID, update models.PlanUpdate) error {
	plan, ok := m.plans[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if update.Title != nil {
		plan.Title = *update.Title
	}
	if update.FrequencyDays != nil {
		plan.FrequencyDays = update.FrequencyDays
	}
	if update.TriggerValue != nil {
		plan.TriggerValue = update.TriggerValue
	}
	if update.ConditionIncrement != nil {
		plan.ConditionIncrement = update.ConditionIncrement
	}
	if update.NextDueDate != nil {
		plan.NextDueDate = update.NextDueDate
	}
	return nil
}

func (m *mockPlanRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.plans[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.plans, id)
	delete(m.checklists, id)
	return nil
}

func (m *mockPlanRepo) ListByMachine(_ context.Context, machineID uuid.UUID) ([]*models.MaintenancePlan, error) {
	var out []*models.MaintenancePlan
	for _, p := range m.plans {
		if p.MachineID == machineID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPlanRepo) List(_ context.Context, kind *models.PlanKind) ([]*models.MaintenancePlan, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*models.MaintenancePlan
	for _, p := range m.plans {
		if kind == nil || p.Kind == *kind {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPlanRepo) ListDueCalendar(_ context.Context, now time.Time) ([]*models.MaintenancePlan, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*models.MaintenancePlan
	for _, p := range m.plans {
		if p.ScheduleKind != models.ScheduleCalendar {
			continue
		}
		if p.NextDueDate != nil && !p.NextDueDate.After(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPlanRepo) SetSchedule(_ context.Context, id uuid.UUID, lastDone time.Time, nextDue *time.Time) error {
	plan, ok := m.plans[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	ld := lastDone
	plan.LastDoneDate = &ld
	plan.NextDueDate = nextDue
	return nil
}

func (m *mockPlanRepo) SetTriggerValue(_ context.Context, id uuid.UUID, value float64) error {
	plan, ok := m.plans[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	plan.TriggerValue = &value
	return nil
}

func (m *mockPlanRepo) GetChecklist(_ context.Context, planID uuid.UUID) ([]models.ChecklistItem, error) {
	return append([]models.ChecklistItem(nil), m.checklists[planID]...), nil
}

func (m *mockPlanRepo) ReplaceChecklist(_ context.Context, planID uuid.UUID, items []models.ChecklistItem) error {
	m.checklists[planID] = nil
	for i := range items {
		items[i].ID = uuid.New()
		items[i].PlanID = planID
		m.checklists[planID] = append(m.checklists[planID], items[i])
	}
	return nil
}

func (m *mockPlanRepo) AddChecklistItem(_ context.Context, item *models.ChecklistItem) error {
	item.ID = uuid.New()
	m.checklists[item.PlanID] = append(m.checklists[item.PlanID], *item)
	return nil
}

func (m *mockPlanRepo) RemoveChecklistItem(_ context.Context, itemID uuid.UUID) error {
	for planID, items := range m.checklists {
		for i, item := range items {
			if item.ID == itemID {
				m.checklists[planID] = append(items[:i], items[i+1:]...)
				return nil
			}
		}
	}
	return apperrors.ErrNotFound
}

var _ repositories.PlanRepository = (*mockPlanRepo)(nil)

// mockWorkOrderRepo implements repositories.WorkOrderRepository in memory.
type mockWorkOrderRepo struct {
	orders      map[uuid.UUID]*models.WorkOrder
	results     map[uuid.UUID][]models.ChecklistResult
	labor       map[uuid.UUID][]models.LaborEntry
	attachments map[uuid.UUID][]models.Attachment

	createErr error
}

func newMockWorkOrderRepo() *mockWorkOrderRepo {
	return &mockWorkOrderRepo{
		orders:      make(map[uuid.UUID]*models.WorkOrder),
		results:     make(map[uuid.UUID][]models.ChecklistResult),
		labor:       make(map[uuid.UUID][]models.LaborEntry),
		attachments: make(map[uuid.UUID][]models.Attachment),
	}
}

func (m *mockWorkOrderRepo) Create(_ context.Context, wo *models.WorkOrder) error {
	if m.createErr != nil {
		return m.createErr
	}
	wo.ID = uuid.New()
	wo.CreatedAt = time.Now()
	cp := *wo
	cp.ChecklistResults = nil
	m.orders[wo.ID] = &cp
	return nil
}

func (m *mockWorkOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*models.WorkOrder, error) {
	wo, ok := m.orders[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *wo
	cp.ChecklistResults = append([]models.ChecklistResult(nil), m.results[id]...)
	return &cp, nil
}

func (m *mockWorkOrderRepo) Update(_ context.Context, id uuid.UUID, update models.WorkOrderUpdate) error {
	wo, ok := m.orders[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if update.Description != nil {
		wo.Description = *update.Description
	}
	if update.Priority != nil {
		wo.Priority = *update.Priority
	}
	if update.RootCauseWhy1 != nil {
		wo.RootCauseWhy1 = *update.RootCauseWhy1
	}
	if update.ActionTaken != nil {
		wo.ActionTaken = *update.ActionTaken
	}
	return nil
}

func (m *mockWorkOrderRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.orders[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.orders, id)
	delete(m.results, id)
	return nil
}

func (m *mockWorkOrderRepo) List(_ context.Context, filter repositories.WorkOrderFilter) ([]*models.WorkOrder, error) {
	var out []*models.WorkOrder
	for _, wo := range m.orders {
		if filter.Status != nil && wo.Status != *filter.Status {
			continue
		}
		if filter.Kind != nil && wo.Kind != *filter.Kind {
			continue
		}
		if filter.PlanID != nil && (wo.PlanID == nil || *wo.PlanID != *filter.PlanID) {
			continue
		}
		out = append(out, wo)
	}
	return out, nil
}

func (m *mockWorkOrderRepo) SaveLifecycle(_ context.Context, wo *models.WorkOrder) error {
	existing, ok := m.orders[wo.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	existing.Status = wo.Status
	existing.HoldReason = wo.HoldReason
	existing.SatisfactionScore = wo.SatisfactionScore
	existing.AcceptanceNote = wo.AcceptanceNote
	existing.ClosedAt = wo.ClosedAt
	return nil
}

func (m *mockWorkOrderRepo) FindActiveByPlan(_ context.Context, planID uuid.UUID) (*models.WorkOrder, error) {
	for _, wo := range m.orders {
		if wo.PlanID != nil && *wo.PlanID == planID && wo.IsActive() {
			cp := *wo
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockWorkOrderRepo) CreateChecklistResults(_ context.Context, results []models.ChecklistResult) error {
	for i := range results {
		results[i].ID = uuid.New()
		m.results[results[i].WorkOrderID] = append(m.results[results[i].WorkOrderID], results[i])
	}
	return nil
}

func (m *mockWorkOrderRepo) GetChecklistResults(_ context.Context, workOrderID uuid.UUID) ([]models.ChecklistResult, error) {
	return append([]models.ChecklistResult(nil), m.results[workOrderID]...), nil
}

func (m *mockWorkOrderRepo) UpdateChecklistResult(_ context.Context, resultID uuid.UUID, update models.ChecklistResultUpdate) error {
	for woID, results := range m.results {
		for i := range results {
			if results[i].ID == resultID {
				if update.IsChecked != nil {
					results[i].IsChecked = *update.IsChecked
				}
				if update.ParameterValue != nil {
					results[i].ParameterValue = *update.ParameterValue
				}
				if update.DefectNoted != nil {
					results[i].DefectNoted = *update.DefectNoted
				}
				if update.DefectDetails != nil {
					results[i].DefectDetails = *update.DefectDetails
				}
				m.results[woID] = results
				return nil
			}
		}
	}
	return apperrors.ErrNotFound
}

func (m *mockWorkOrderRepo) DetachPlan(_ context.Context, planID uuid.UUID) error {
	for _, wo := range m.orders {
		if wo.PlanID != nil && *wo.PlanID == planID {
			wo.PlanID = nil
		}
	}
	for woID, results := range m.results {
		for i := range results {
			results[i].ChecklistItemID = nil
		}
		m.results[woID] = results
	}
	return nil
}

func (m *mockWorkOrderRepo) AddLabor(_ context.Context, entry *models.LaborEntry) error {
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	m.labor[entry.WorkOrderID] = append(m.labor[entry.WorkOrderID], *entry)
	return nil
}

func (m *mockWorkOrderRepo) ListLabor(_ context.Context, workOrderID uuid.UUID) ([]models.LaborEntry, error) {
	return m.labor[workOrderID], nil
}

func (m *mockWorkOrderRepo) AccumulateMinutes(_ context.Context, workOrderID uuid.UUID, minutes int) error {
	wo, ok := m.orders[workOrderID]
	if !ok {
		return apperrors.ErrNotFound
	}
	wo.ActualMinutes += minutes
	return nil
}

func (m *mockWorkOrderRepo) AddAttachment(_ context.Context, att *models.Attachment) error {
	att.ID = uuid.New()
	att.UploadedAt = time.Now()
	m.attachments[att.WorkOrderID] = append(m.attachments[att.WorkOrderID], *att)
	return nil
}

func (m *mockWorkOrderRepo) ListAttachments(_ context.Context, workOrderID uuid.UUID) ([]models.Attachment, error) {
	return m.attachments[workOrderID], nil
}

var _ repositories.WorkOrderRepository = (*mockWorkOrderRepo)(nil)

// mockPartRepo implements repositories.PartRepository in memory.
type mockPartRepo struct {
	parts  map[uuid.UUID]*models.SparePart
	usages []models.PartUsage
}

func newMockPartRepo() *mockPartRepo {
	return &mockPartRepo{parts: make(map[uuid.UUID]*models.SparePart)}
}

func (m *mockPartRepo) Create(_ context.Context, part *models.SparePart) error {
	part.ID = uuid.New()
	cp := *part
	m.parts[part.ID] = &cp
	return nil
}

func (m *mockPartRepo) GetByID(_ context.Context, id uuid.UUID) (*models.SparePart, error) {
	part, ok := m.parts[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *part
	return &cp, nil
}

func (m *mockPartRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.SparePart, error) {
	return m.GetByID(ctx, id)
}

func (m *mockPartRepo) Update(_ context.Context, part *models.SparePart) error {
	if _, ok := m.parts[part.ID]; !ok {
		return apperrors.ErrNotFound
	}
	cp := *part
	m.parts[part.ID] = &cp
	return nil
}

func (m *mockPartRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.parts[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.parts, id)
	return nil
}

func (m *mockPartRepo) List(_ context.Context) ([]*models.SparePart, error) {
	var out []*models.SparePart
	for _, p := range m.parts {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockPartRepo) ListBelowMinimum(_ context.Context) ([]*models.SparePart, error) {
	var out []*models.SparePart
	for _, p := range m.parts {
		if p.CurrentStock < p.MinStock {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPartRepo) DeductStock(_ context.Context, id uuid.UUID, quantity int) error {
	part, ok := m.parts[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if part.CurrentStock < quantity {
		return apperrors.ErrInsufficientStock
	}
	part.CurrentStock -= quantity
	return nil
}

func (m *mockPartRepo) CreateUsage(_ context.Context, usage *models.PartUsage) error {
	usage.ID = uuid.New()
	usage.CreatedAt = time.Now()
	m.usages = append(m.usages, *usage)
	return nil
}

func (m *mockPartRepo) ListUsages(_ context.Context, workOrderID uuid.UUID) ([]models.PartUsage, error) {
	var out []models.PartUsage
	for _, u := range m.usages {
		if u.WorkOrderID == workOrderID {
			out = append(out, u)
		}
	}
	return out, nil
}

var _ repositories.PartRepository = (*mockPartRepo)(nil)

// mockMachineRepo implements repositories.MachineRepository in memory.
type mockMachineRepo struct {
	machines map[uuid.UUID]*models.Machine
}

func newMockMachineRepo() *mockMachineRepo {
	return &mockMachineRepo{machines: make(map[uuid.UUID]*models.Machine)}
}

func (m *mockMachineRepo) Create(_ context.Context, machine *models.Machine) error {
	machine.ID = uuid.New()
	machine.CreatedAt = time.Now()
	cp := *machine
	m.machines[machine.ID] = &cp
	return nil
}

func (m *mockMachineRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Machine, error) {
	machine, ok := m.machines[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *machine
	return &cp, nil
}

func (m *mockMachineRepo) Update(_ context.Context, machine *models.Machine) error {
	if _, ok := m.machines[machine.ID]; !ok {
		return apperrors.ErrNotFound
	}
	cp := *machine
	m.machines[machine.ID] = &cp
	return nil
}

func (m *mockMachineRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.machines[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.machines, id)
	return nil
}

func (m *mockMachineRepo) List(_ context.Context) ([]*models.Machine, error) {
	var out []*models.Machine
	for _, machine := range m.machines {
		out = append(out, machine)
	}
	return out, nil
}

func (m *mockMachineRepo) SetStatus(_ context.Context, id uuid.UUID, status models.MachineStatus) error {
	machine, ok := m.machines[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	machine.Status = status
	return nil
}

func (m *mockMachineRepo) AddRunningHours(_ context.Context, id uuid.UUID, hours float64, cycles int) error {
	machine, ok := m.machines[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	machine.RunningHours += hours
	machine.CycleCount += cycles
	return nil
}

var _ repositories.MachineRepository = (*mockMachineRepo)(nil)
