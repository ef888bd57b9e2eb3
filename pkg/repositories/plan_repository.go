package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/masapp-io/maintenance-engine/pkg/apperrors"
	"github.com/masapp-io/maintenance-engine/pkg/database"
	"github.com/masapp-io/maintenance-engine/pkg/models"
)

// PlanRepository provides data access for maintenance plans and their
// checklist templates.
type PlanRepository interface {
	Create(ctx context.Context, plan *models.MaintenancePlan) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.MaintenancePlan, error)

	// GetByIDForUpdate locks the plan row until the surrounding
	// transaction ends. Rescheduling reads through this so concurrent
	// closes serialize on the plan.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.MaintenancePlan, error)

	Update(ctx context.Context, id uuid.UUID, update models.PlanUpdate) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByMachine(ctx context.Context, machineID uuid.UUID) ([]*models.MaintenancePlan, error)
	List(ctx context.Context, kind *models.PlanKind) ([]*models.MaintenancePlan, error)

	// ListDueCalendar returns calendar plans whose next_due_date is at or
	// before now, locking each returned row for the current transaction
	// so concurrent generation runs cannot pick up the same plan.
	ListDueCalendar(ctx context.Context, now time.Time) ([]*models.MaintenancePlan, error)

	// SetSchedule advances last_done_date/next_due_date after a cycle.
	SetSchedule(ctx context.Context, id uuid.UUID, lastDone time.Time, nextDue *time.Time) error

	// SetTriggerValue stores the new condition threshold.
	SetTriggerValue(ctx context.Context, id uuid.UUID, value float64) error

	GetChecklist(ctx context.Context, planID uuid.UUID) ([]models.ChecklistItem, error)
	ReplaceChecklist(ctx context.Context, planID uuid.UUID, items []models.ChecklistItem) error
	AddChecklistItem(ctx context.Context, item *models.ChecklistItem) error
	RemoveChecklistItem(ctx context.Context, itemID uuid.UUID) error
}

type planRepository struct {
	db *database.DB
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(db *database.DB) PlanRepository {
	return &planRepository{db: db}
}

var _ PlanRepository = (*planRepository)(nil)

const planColumns = `id, machine_id, title, standard, description, kind,
	schedule_kind, schedule_subtype, frequency_days, schedule_day,
	trigger_value, condition_increment, last_done_date, next_due_date,
	is_calibration, created_at`

func (r *planRepository) Create(ctx context.Context, plan *models.MaintenancePlan) error {
	q := r.db.QuerierFrom(ctx)

	err := q.QueryRow(ctx, `
		INSERT INTO maintenance_plans (
			machine_id, title, standard, description, kind, schedule_kind,
			schedule_subtype, frequency_days, schedule_day, trigger_value,
			condition_increment, last_done_date, next_due_date, is_calibration
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at`,
		plan.MachineID, plan.Title, plan.Standard, plan.Description,
		plan.Kind, plan.ScheduleKind, plan.ScheduleSubtype,
		plan.FrequencyDays, plan.ScheduleDay, plan.TriggerValue,
		plan.ConditionIncrement, plan.LastDoneDate, plan.NextDueDate,
		plan.IsCalibration,
	).Scan(&plan.ID, &plan.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}

	return nil
}

func (r *planRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.MaintenancePlan, error) {
	return r.get(ctx, id, false)
}

// GetByIDForUpdate locks the plan row for the duration of the caller's
// transaction. Used by rescheduling so concurrent closes of orders on the
// same plan serialize instead of clobbering each other's schedule.
func (r *planRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.MaintenancePlan, error) {
	return r.get(ctx, id, true)
}

func (r *planRepository) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.MaintenancePlan, error) {
	q := r.db.QuerierFrom(ctx)

	query := `SELECT ` + planColumns + ` FROM maintenance_plans WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	row := q.QueryRow(ctx, query, id)
	plan, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	checklist, err := r.GetChecklist(ctx, id)
	if err != nil {
		return nil, err
	}
	plan.Checklist = checklist

	return plan, nil
}

func (r *planRepository) Update(ctx context.Context, id uuid.UUID, update models.PlanUpdate) error {
	q := r.db.QuerierFrom(ctx)

	sets := []string{}
	args := []any{}
	argIdx := 1

	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if update.Title != nil {
		add("title", *update.Title)
	}
	if update.Standard != nil {
		add("standard", *update.Standard)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.Kind != nil {
		add("kind", *update.Kind)
	}
	if update.ScheduleKind != nil {
		add("schedule_kind", *update.ScheduleKind)
	}
	if update.ScheduleSubtype != nil {
		add("schedule_subtype", *update.ScheduleSubtype)
	}
	if update.FrequencyDays != nil {
		add("frequency_days", *update.FrequencyDays)
	}
	if update.ScheduleDay != nil {
		add("schedule_day", *update.ScheduleDay)
	}
	if update.TriggerValue != nil {
		add("trigger_value", *update.TriggerValue)
	}
	if update.ConditionIncrement != nil {
		add("condition_increment", *update.ConditionIncrement)
	}
	if update.NextDueDate != nil {
		add("next_due_date", *update.NextDueDate)
	}
	if update.IsCalibration != nil {
		add("is_calibration", *update.IsCalibration)
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE maintenance_plans SET %s WHERE id = $%d`,
		strings.Join(sets, ", "), argIdx)

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *planRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q := r.db.QuerierFrom(ctx)

	tag, err := q.Exec(ctx, `DELETE FROM maintenance_plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *planRepository) ListByMachine(ctx context.Context, machineID uuid.UUID) ([]*models.MaintenancePlan, error) {
	q := r.db.QuerierFrom(ctx)

	rows, err := q.Query(ctx, `
		SELECT `+planColumns+`
		FROM maintenance_plans
		WHERE machine_id = $1
		ORDER BY created_at`, machineID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans by machine: %w", err)
	}
	defer rows.Close()

	return collectPlans(rows)
}

func (r *planRepository) List(ctx context.Context, kind *models.PlanKind) ([]*models.MaintenancePlan, error) {
	q := r.db.QuerierFrom(ctx)

	query := `SELECT ` + planColumns + ` FROM maintenance_plans`
	args := []any{}
	if kind != nil {
		query += ` WHERE kind = $1`
		args = append(args, *kind)
	}
	query += ` ORDER BY created_at`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	return collectPlans(rows)
}

func (r *planRepository) ListDueCalendar(ctx context.Context, now time.Time) ([]*models.MaintenancePlan, error) {
	q := r.db.QuerierFrom(ctx)

	rows, err := q.Query(ctx, `
		SELECT `+planColumns+`
		FROM maintenance_plans
		WHERE schedule_kind = $1
		  AND next_due_date IS NOT NULL
		  AND next_due_date <= $2
		ORDER BY next_due_date
		FOR UPDATE SKIP LOCKED`,
		models.ScheduleCalendar, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due plans: %w", err)
	}
	defer rows.Close()

	return collectPlans(rows)
}

func (r *planRepository) SetSchedule(ctx context.Context, id uuid.UUID, lastDone time.Time, nextDue *time.Time) error {
	q := r.db.QuerierFrom(ctx)

	tag, err := q.Exec(ctx, `
		UPDATE maintenance_plans
		SET last_done_date = $1, next_due_date = $2
		WHERE id = $3`, lastDone, nextDue, id)
	if err != nil {
		return fmt.Errorf("failed to set plan schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *planRepository) SetTriggerValue(ctx context.Context, id uuid.UUID, value float64) error {
	q := r.db.QuerierFrom(ctx)

	tag, err := q.Exec(ctx, `
		UPDATE maintenance_plans SET trigger_value = $1 WHERE id = $2`, value, id)
	if err != nil {
		return fmt.Errorf("failed to set trigger value: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *planRepository) GetChecklist(ctx context.Context, planID uuid.UUID) ([]models.ChecklistItem, error) {
	q := r.db.QuerierFrom(ctx)

	rows, err := q.Query(ctx, `
		SELECT id, plan_id, task_name, standard, responsible_role,
		       is_parameter, parameter_unit, sequence
		FROM checklist_items
		WHERE plan_id = $1
		ORDER BY sequence`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to get checklist: %w", err)
	}
	defer rows.Close()

	var items []models.ChecklistItem
	for rows.Next() {
		var item models.ChecklistItem
		var standard, role, unit *string
		if err := rows.Scan(
			&item.ID, &item.PlanID, &item.TaskName, &standard,
			&role, &item.IsParameter, &unit, &item.Sequence,
		); err != nil {
			return nil, fmt.Errorf("failed to scan checklist item: %w", err)
		}
		if standard != nil {
			item.Standard = *standard
		}
		if role != nil {
			item.ResponsibleRole = *role
		}
		if unit != nil {
			item.ParameterUnit = *unit
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checklist items: %w", err)
	}

	return items, nil
}

// ReplaceChecklist deletes every existing template row and inserts the
// supplied ones. Destructive full replace; callers resupply items they
// wish to keep.
func (r *planRepository) ReplaceChecklist(ctx context.Context, planID uuid.UUID, items []models.ChecklistItem) error {
	q := r.db.QuerierFrom(ctx)

	if _, err := q.Exec(ctx, `DELETE FROM checklist_items WHERE plan_id = $1`, planID); err != nil {
		return fmt.Errorf("failed to clear checklist: %w", err)
	}

	for i := range items {
		items[i].PlanID = planID
		if err := r.AddChecklistItem(ctx, &items[i]); err != nil {
			return err
		}
	}

	return nil
}

func (r *planRepository) AddChecklistItem(ctx context.Context, item *models.ChecklistItem) error {
	q := r.db.QuerierFrom(ctx)

	err := q.QueryRow(ctx, `
		INSERT INTO checklist_items (
			plan_id, task_name, standard, responsible_role,
			is_parameter, parameter_unit, sequence
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		item.PlanID, item.TaskName, item.Standard, item.ResponsibleRole,
		item.IsParameter, item.ParameterUnit, item.Sequence,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("failed to add checklist item: %w", err)
	}

	return nil
}

func (r *planRepository) RemoveChecklistItem(ctx context.Context, itemID uuid.UUID) error {
	q := r.db.QuerierFrom(ctx)

	tag, err := q.Exec(ctx, `DELETE FROM checklist_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("failed to remove checklist item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func scanPlan(row pgx.Row) (*models.MaintenancePlan, error) {
	var plan models.MaintenancePlan
	var standard, description, subtype *string

	err := row.Scan(
		&plan.ID, &plan.MachineID, &plan.Title, &standard, &description,
		&plan.Kind, &plan.ScheduleKind, &subtype, &plan.FrequencyDays,
		&plan.ScheduleDay, &plan.TriggerValue, &plan.ConditionIncrement,
		&plan.LastDoneDate, &plan.NextDueDate, &plan.IsCalibration,
		&plan.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if standard != nil {
		plan.Standard = *standard
	}
	if description != nil {
		plan.Description = *description
	}
	if subtype != nil {
		plan.ScheduleSubtype = models.ScheduleSubtype(*subtype)
	}

	return &plan, nil
}

func collectPlans(rows pgx.Rows) ([]*models.MaintenancePlan, error) {
	var plans []*models.MaintenancePlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, plan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plans: %w", err)
	}

	return plans, nil
}
