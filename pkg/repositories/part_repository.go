package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/masapp-io/maintenance-engine/pkg/apperrors"
	"github.com/masapp-io/maintenance-engine/pkg/database"
	"github.com/masapp-io/maintenance-engine/pkg/models"
)

// PartRepository provides data access for spare parts and their usage
// records.
type PartRepository interface {
	Create(ctx context.Context, part *models.SparePart) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SparePart, error)

	// GetByIDForUpdate locks the part's row for the current transaction.
	// Consumption reads stock through this so concurrent consumers
	// serialize instead of double-spending.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.SparePart, error)

	Update(ctx context.Context, part *models.SparePart) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*models.SparePart, error)
	ListBelowMinimum(ctx context.Context) ([]*models.SparePart, error)

	DeductStock(ctx context.Context, id uuid.UUID, quantity int) error
	CreateUsage(ctx context.Context, usage *models.PartUsage) error
	ListUsages(ctx context.Context, workOrderID uuid.UUID) ([]models.PartUsage, error)
}

type partRepository struct {
	db *database.DB
}

// NewPartRepository creates a new PartRepository.
func NewPartRepository(db *database.DB) PartRepository {
	return &partRepository{db: db}
}

var _ PartRepository = (*partRepository)(nil)

const partColumns = `id, code, name, description, min_stock, current_stock,
	unit_price, location`

func (r *partRepository) Create(ctx context.Context, part *models.SparePart) error {
	q := r.db.QuerierFrom(ctx)

	err := q.QueryRow(ctx, `
		INSERT INTO spare_parts (code, name, description, min_stock, current_stock, unit_price, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		part.Code, part.Name, part.Description, part.MinStock,
		part.CurrentStock, part.UnitPrice, part.Location,
	).Scan(&part.ID)
	if err != nil {
		return fmt.Errorf("failed to create spare part: %w", err)
	}

	return nil
}

func (r *partRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SparePart, error) {
	return r.get(ctx, id, false)
}

func (r *partRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.SparePart, error) {
	return r.get(ctx, id, true)
}

func (r *partRepository) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.SparePart, error) {
	q := r.db.QuerierFrom(ctx)

	query := `SELECT ` + partColumns + ` FROM spare_parts WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	part, err := scanPart(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get spare part: %w", err)
	}

	return part, nil
}

func (r *partRepository) Update(ctx context.Context, part *models.SparePart) error {
	q := r.db.QuerierFrom(ctx)

	tag, err := q.Exec(ctx, `
		UPDATE spare_parts
		SET code = $1, name = $2, description = $3, min_stock = $4,
		    current_stock = $5, unit_price = $6, location = $7
		WHERE id = $8`,
		part.Code, part.Name, part.Description, part.MinStock,
		part.CurrentStock, part.UnitPrice, part.Location, part.ID)
	if err != nil {
		return fmt.Errorf("failed to update spare part: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *partRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q := r.db.QuerierFrom(ctx)

	tag, err := q.Exec(ctx, `DELETE FROM spare_parts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete spare part: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *partRepository) List(ctx context.Context) ([]*models.SparePart, error) {
	q := r.db.QuerierFrom(ctx)

	rows, err := q.Query(ctx, `SELECT `+partColumns+` FROM spare_parts ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list spare parts: %w", err)
	}
	defer rows.Close()

	return collectParts(rows)
}

func (r *partRepository) ListBelowMinimum(ctx context.Context) ([]*models.SparePart, error) {
	q := r.db.QuerierFrom(ctx)

	rows, err := q.Query(ctx, `
		SELECT `+partColumns+`
		FROM spare_parts
		WHERE current_stock < min_stock
		ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list low-stock parts: %w", err)
	}
	defer rows.Close()

	return collectParts(rows)
}

func (r *partRepository) DeductStock(ctx context.Context, id uuid.UUID, quantity int) error {
	q := r.db.QuerierFrom(ctx)

	tag, err := q.Exec(ctx, `
		UPDATE spare_parts
		SET current_stock = current_stock - $1
		WHERE id = $2`, quantity, id)
	if err != nil {
		if isCheckViolation(err) {
			return apperrors.ErrInsufficientStock
		}
		return fmt.Errorf("failed to deduct stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *partRepository) CreateUsage(ctx context.Context, usage *models.PartUsage) error {
	q := r.db.QuerierFrom(ctx)

	err := q.QueryRow(ctx, `
		INSERT INTO part_usages (work_order_id, part_id, quantity)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		usage.WorkOrderID, usage.PartID, usage.Quantity,
	).Scan(&usage.ID, &usage.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create part usage: %w", err)
	}

	return nil
}

func (r *partRepository) ListUsages(ctx context.Context, workOrderID uuid.UUID) ([]models.PartUsage, error) {
	q := r.db.QuerierFrom(ctx)

	rows, err := q.Query(ctx, `
		SELECT id, work_order_id, part_id, quantity, created_at
		FROM part_usages
		WHERE work_order_id = $1
		ORDER BY created_at`, workOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list part usages: %w", err)
	}
	defer rows.Close()

	var usages []models.PartUsage
	for rows.Next() {
		var usage models.PartUsage
		if err := rows.Scan(
			&usage.ID, &usage.WorkOrderID, &usage.PartID,
			&usage.Quantity, &usage.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan part usage: %w", err)
		}
		usages = append(usages, usage)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating part usages: %w", err)
	}

	return usages, nil
}

func scanPart(row pgx.Row) (*models.SparePart, error) {
	var part models.SparePart
	var description, location *string

	err := row.Scan(
		&part.ID, &part.Code, &part.Name, &description, &part.MinStock,
		&part.CurrentStock, &part.UnitPrice, &location,
	)
	if err != nil {
		return nil, err
	}

	part.Description = deref(description)
	part.Location = deref(location)

	return &part, nil
}

func collectParts(rows pgx.Rows) ([]*models.SparePart, error) {
	var parts []*models.SparePart
	for rows.Next() {
		part, err := scanPart(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan spare part: %w", err)
		}
		parts = append(parts, part)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating spare parts: %w", err)
	}

	return parts, nil
}
