package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/masapp-io/maintenance-engine/pkg/apperrors"
	"github.com/masapp-io/maintenance-engine/pkg/database"
	"github.com/masapp-io/maintenance-engine/pkg/models"
)

// WorkOrderFilter narrows List results. Nil fields match everything.
type WorkOrderFilter struct {
	Status    *models.WorkOrderStatus
	Kind      *models.WorkOrderKind
	MachineID *uuid.UUID
	PlanID    *uuid.UUID
}

// WorkOrderRepository provides data access for work orders, their
// checklist snapshots, labor entries and attachments.
type WorkOrderRepository interface {
	Create(ctx context.Context, wo *models.WorkOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.WorkOrder, error)
	Update(ctx context.Context, id uuid.UUID, update models.WorkOrderUpdate) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter WorkOrderFilter) ([]*models.WorkOrder, error)

	// SaveLifecycle persists the status and the lifecycle fields that
	// change with it (hold reason, satisfaction, closed_at).
	SaveLifecycle(ctx context.Context, wo *models.WorkOrder) error

	// FindActiveByPlan returns the plan's currently active order, or
	// apperrors.ErrNotFound when the slot is free.
	FindActiveByPlan(ctx context.Context, planID uuid.UUID) (*models.WorkOrder, error)

	CreateChecklistResults(ctx context.Context, results []models.ChecklistResult) error
	GetChecklistResults(ctx context.Context, workOrderID uuid.UUID) ([]models.ChecklistResult, error)
	UpdateChecklistResult(ctx context.Context, resultID uuid.UUID, update models.ChecklistResultUpdate) error

	// DetachPlan clears plan_id on every order referencing the plan and
	// checklist_item_id on every result referencing the plan's template
	// rows, so the plan can be deleted without losing history.
	DetachPlan(ctx context.Context, planID uuid.UUID) error

	AddLabor(ctx context.Context, entry *models.LaborEntry) error
	ListLabor(ctx context.Context, workOrderID uuid.UUID) ([]models.LaborEntry, error)
	AccumulateMinutes(ctx context.Context, workOrderID uuid.UUID, minutes int) error

	AddAttachment(ctx context.Context, att *models.Attachment) error
	ListAttachments(ctx context.Context, workOrderID uuid.UUID) ([]models.Attachment, error)
}

type workOrderRepository struct {
	db *database.DB
}

// NewWorkOrderRepository creates a new WorkOrderRepository.
func NewWorkOrderRepository(db *database.DB) WorkOrderRepository {
	return &workOrderRepository{db: db}
}

var _ WorkOrderRepository = (*workOrderRepository)(nil)

const workOrderColumns = `id, machine_id, plan_id, kind, description, status,
	priority, origin, failure_code, reported_by_id, assigned_to_id,
	actual_minutes, hold_reason, root_cause_why1, root_cause_why2,
	root_cause_why3, root_cause_why4, root_cause_why5, action_taken,
	satisfaction_score, acceptance_note, sla_deadline, created_at, closed_at`

func (r *workOrderRepository) Create(ctx context.Context, wo *models.WorkOrder) error {
	q := r.db.QuerierFrom(ctx)

	err := q.QueryRow(ctx, `
		INSERT INTO work_orders (
			machine_id, plan_id, kind, description, status, priority,
			origin, failure_code, reported_by_id, assigned_to_id,
			sla_deadline
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`,
		wo.MachineID, wo.PlanID, wo.Kind, wo.Description, wo.Status,
		wo.Priority, wo.Origin, wo.FailureCode, wo.ReportedByID,
		wo.AssignedToID, wo.SLADeadline,
	).Scan(&wo.ID, &wo.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicateTask
		}
		return fmt.Errorf("failed to create work order: %w", err)
	}

	return nil
}

func (r *workOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.WorkOrder, error) {
	q := r.db.QuerierFrom(ctx)

	row := q.QueryRow(ctx, `SELECT `+workOrderColumns+` FROM work_orders WHERE id = $1`, id)
	wo, err := scanWorkOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get work order: %w", err)
	}

	results, err := r.GetChecklistResults(ctx, id)
	if err != nil {
		return nil, err
	}
	wo.ChecklistResults = results

	return wo, nil
}

func (r *workOrderRepository) Update(ctx context.Context, id uuid.UUID, update models.WorkOrderUpdate) error {
	q := r.db.QuerierFrom(ctx)

	sets := []string{}
	args := []any{}
	argIdx := 1

	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.Priority != nil {
		add("priority", *update.Priority)
	}
	if update.Origin != nil {
		add("origin", *update.Origin)
	}
	if update.FailureCode != nil {
		add("failure_code", *update.FailureCode)
	}
	if update.AssignedToID != nil {
		add("assigned_to_id", *update.AssignedToID)
	}
	if update.ActualMinutes != nil {
		add("actual_minutes", *update.ActualMinutes)
	}
	if update.RootCauseWhy1 != nil {
		add("root_cause_why1", *update.RootCauseWhy1)
	}
	if update.RootCauseWhy2 != nil {
		add("root_cause_why2", *update.RootCauseWhy2)
	}
	if update.RootCauseWhy3 != nil {
		add("root_cause_why3", *update.RootCauseWhy3)
	}
	if update.RootCauseWhy4 != nil {
		add("root_cause_why4", *update.RootCauseWhy4)
	}
	if update.RootCauseWhy5 != nil {
		add("root_cause_why5", *update.RootCauseWhy5)
	}
	if update.ActionTaken != nil {
		add("action_taken", *update.ActionTaken)
	}
	if update.SLADeadline != nil {
		add("sla_deadline", *update.SLADeadline)
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE work_orders SET %s WHERE id = $%d`,
		strings.Join(sets, ", "), argIdx)

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update work order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *workOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q := r.db.QuerierFrom(ctx)

	tag, err := q.Exec(ctx, `DELETE FROM work_orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete work order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *workOrderRepository) List(ctx context.Context, filter WorkOrderFilter) ([]*models.WorkOrder, error) {
	q := r.db.QuerierFrom(ctx)

	conditions := []string{}
	args := []any{}
	argIdx := 1

	where := func(column string, value any) {
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if filter.Status != nil {
		where("status", *filter.Status)
	}
	if filter.Kind != nil {
		where("kind", *filter.Kind)
	}
	if filter.MachineID != nil {
		where("machine_id", *filter.MachineID)
	}
	if filter.PlanID != nil {
		where("plan_id", *filter.PlanID)
	}

	query := `SELECT ` + workOrderColumns + ` FROM work_orders`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list work orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.WorkOrder
	for rows.Next() {
		wo, err := scanWorkOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan work order: %w", err)
		}
		orders = append(orders, wo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating work orders: %w", err)
	}

	return orders, nil
}

func (r *workOrderRepository) SaveLifecycle(ctx context.Context, wo *models.WorkOrder) error {
	q := r.db.QuerierFrom(ctx)

	tag, err := q.Exec(ctx, `
		UPDATE work_orders
		SET status = $1,
		    hold_reason = $2,
		    satisfaction_score = $3,
		    acceptance_note = $4,
		    closed_at = $5
		WHERE id = $6`,
		wo.Status, wo.HoldReason, wo.SatisfactionScore,
		wo.AcceptanceNote, wo.ClosedAt, wo.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicateTask
		}
		return fmt.Errorf("failed to save work order lifecycle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *workOrderRepository) FindActiveByPlan(ctx context.Context, planID uuid.UUID) (*models.WorkOrder, error) {
	q := r.db.QuerierFrom(ctx)

	row := q.QueryRow(ctx, `
		SELECT `+workOrderColumns+`
		FROM work_orders
		WHERE plan_id = $1 AND status = ANY($2)
		LIMIT 1`, planID, statusStrings(models.ActiveStatuses))
	wo, err := scanWorkOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find active work order for plan: %w", err)
	}

	return wo, nil
}

func (r *workOrderRepository) CreateChecklistResults(ctx context.Context, results []models.ChecklistResult) error {
	q := r.db.QuerierFrom(ctx)

	for i := range results {
		res := &results[i]
		err := q.QueryRow(ctx, `
			INSERT INTO checklist_results (
				work_order_id, checklist_item_id, task_name, standard,
				responsible_role, is_checked, parameter_value,
				defect_noted, defect_details
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id`,
			res.WorkOrderID, res.ChecklistItemID, res.TaskName,
			res.Standard, res.ResponsibleRole, res.IsChecked,
			res.ParameterValue, res.DefectNoted, res.DefectDetails,
		).Scan(&res.ID)
		if err != nil {
			return fmt.Errorf("failed to create checklist result: %w", err)
		}
	}

	return nil
}

func (r *workOrderRepository) GetChecklistResults(ctx context.Context, workOrderID uuid.UUID) ([]models.ChecklistResult, error) {
	q := r.db.QuerierFrom(ctx)

	rows, err := q.Query(ctx, `
		SELECT id, work_order_id, checklist_item_id, task_name, standard,
		       responsible_role, is_checked, parameter_value, defect_noted,
		       defect_details
		FROM checklist_results
		WHERE work_order_id = $1
		ORDER BY id`, workOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get checklist results: %w", err)
	}
	defer rows.Close()

	var results []models.ChecklistResult
	for rows.Next() {
		var res models.ChecklistResult
		var standard, role, value, details *string
		if err := rows.Scan(
			&res.ID, &res.WorkOrderID, &res.ChecklistItemID,
			&res.TaskName, &standard, &role, &res.IsChecked,
			&value, &res.DefectNoted, &details,
		); err != nil {
			return nil, fmt.Errorf("failed to scan checklist result: %w", err)
		}
		res.Standard = deref(standard)
		res.ResponsibleRole = deref(role)
		res.ParameterValue = deref(value)
		res.DefectDetails = deref(details)
		results = append(results, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checklist results: %w", err)
	}

	return results, nil
}

func (r *workOrderRepository) UpdateChecklistResult(ctx context.Context, resultID uuid.UUID, update models.ChecklistResultUpdate) error {
	q := r.db.QuerierFrom(ctx)

	sets := []string{}
	args := []any{}
	argIdx := 1

	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if update.IsChecked != nil {
		add("is_checked", *update.IsChecked)
	}
	if update.ParameterValue != nil {
		add("parameter_value", *update.ParameterValue)
	}
	if update.DefectNoted != nil {
		add("defect_noted", *update.DefectNoted)
	}
	if update.DefectDetails != nil {
		add("defect_details", *update.DefectDetails)
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, resultID)
	query := fmt.Sprintf(`UPDATE checklist_results SET %s WHERE id = $%d`,
		strings.Join(sets, ", "), argIdx)

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update checklist result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *workOrderRepository) DetachPlan(ctx context.Context, planID uuid.UUID) error {
	q := r.db.QuerierFrom(ctx)

	_, err := q.Exec(ctx, `
		UPDATE checklist_results
		SET checklist_item_id = NULL
		WHERE checklist_item_id IN (
			SELECT id FROM checklist_items WHERE plan_id = $1
		)`, planID)
	if err != nil {
		return fmt.Errorf("failed to detach checklist results from plan: %w", err)
	}

	_, err = q.Exec(ctx, `
		UPDATE work_orders SET plan_id = NULL WHERE plan_id = $1`, planID)
	if err != nil {
		return fmt.Errorf("failed to detach work orders from plan: %w", err)
	}

	return nil
}

func (r *workOrderRepository) AddLabor(ctx context.Context, entry *models.LaborEntry) error {
	q := r.db.QuerierFrom(ctx)

	err := q.QueryRow(ctx, `
		INSERT INTO labor_entries (work_order_id, user_id, minutes, hourly_rate)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		entry.WorkOrderID, entry.UserID, entry.Minutes, entry.HourlyRate,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add labor entry: %w", err)
	}

	return nil
}

func (r *workOrderRepository) ListLabor(ctx context.Context, workOrderID uuid.UUID) ([]models.LaborEntry, error) {
	q := r.db.QuerierFrom(ctx)

	rows, err := q.Query(ctx, `
		SELECT id, work_order_id, user_id, minutes, hourly_rate, created_at
		FROM labor_entries
		WHERE work_order_id = $1
		ORDER BY created_at`, workOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list labor entries: %w", err)
	}
	defer rows.Close()

	var entries []models.LaborEntry
	for rows.Next() {
		var entry models.LaborEntry
		if err := rows.Scan(
			&entry.ID, &entry.WorkOrderID, &entry.UserID,
			&entry.Minutes, &entry.HourlyRate, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan labor entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating labor entries: %w", err)
	}

	return entries, nil
}

func (r *workOrderRepository) AccumulateMinutes(ctx context.Context, workOrderID uuid.UUID, minutes int) error {
	q := r.db.QuerierFrom(ctx)

	tag, err := q.Exec(ctx, `
		UPDATE work_orders
		SET actual_minutes = actual_minutes + $1
		WHERE id = $2`, minutes, workOrderID)
	if err != nil {
		return fmt.Errorf("failed to accumulate minutes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *workOrderRepository) AddAttachment(ctx context.Context, att *models.Attachment) error {
	q := r.db.QuerierFrom(ctx)

	err := q.QueryRow(ctx, `
		INSERT INTO work_order_attachments (work_order_id, file_path, file_type)
		VALUES ($1, $2, $3)
		RETURNING id, uploaded_at`,
		att.WorkOrderID, att.FilePath, att.FileType,
	).Scan(&att.ID, &att.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to add attachment: %w", err)
	}

	return nil
}

func (r *workOrderRepository) ListAttachments(ctx context.Context, workOrderID uuid.UUID) ([]models.Attachment, error) {
	q := r.db.QuerierFrom(ctx)

	rows, err := q.Query(ctx, `
		SELECT id, work_order_id, file_path, file_type, uploaded_at
		FROM work_order_attachments
		WHERE work_order_id = $1
		ORDER BY uploaded_at`, workOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	var atts []models.Attachment
	for rows.Next() {
		var att models.Attachment
		var fileType *string
		if err := rows.Scan(
			&att.ID, &att.WorkOrderID, &att.FilePath, &fileType,
			&att.UploadedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		att.FileType = deref(fileType)
		atts = append(atts, att)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attachments: %w", err)
	}

	return atts, nil
}

func scanWorkOrder(row pgx.Row) (*models.WorkOrder, error) {
	var wo models.WorkOrder
	var origin, failureCode, holdReason *string
	var why1, why2, why3, why4, why5, actionTaken, acceptanceNote *string

	err := row.Scan(
		&wo.ID, &wo.MachineID, &wo.PlanID, &wo.Kind, &wo.Description,
		&wo.Status, &wo.Priority, &origin, &failureCode,
		&wo.ReportedByID, &wo.AssignedToID, &wo.ActualMinutes,
		&holdReason, &why1, &why2, &why3, &why4, &why5, &actionTaken,
		&wo.SatisfactionScore, &acceptanceNote, &wo.SLADeadline,
		&wo.CreatedAt, &wo.ClosedAt,
	)
	if err != nil {
		return nil, err
	}

	wo.Origin = deref(origin)
	wo.FailureCode = deref(failureCode)
	wo.HoldReason = deref(holdReason)
	wo.RootCauseWhy1 = deref(why1)
	wo.RootCauseWhy2 = deref(why2)
	wo.RootCauseWhy3 = deref(why3)
	wo.RootCauseWhy4 = deref(why4)
	wo.RootCauseWhy5 = deref(why5)
	wo.ActionTaken = deref(actionTaken)
	wo.AcceptanceNote = deref(acceptanceNote)

	return &wo, nil
}

func statusStrings(statuses []models.WorkOrderStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
