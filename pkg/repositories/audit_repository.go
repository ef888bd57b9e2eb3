package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/masapp-io/maintenance-engine/pkg/database"
	"github.com/masapp-io/maintenance-engine/pkg/models"
)

// AuditRepository writes and reads the append-only audit trail.
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLogEntry) error
	ListByRecord(ctx context.Context, tableName string, recordID uuid.UUID) ([]models.AuditLogEntry, error)
	ListRecent(ctx context.Context, limit int) ([]models.AuditLogEntry, error)
}

type auditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *database.DB) AuditRepository {
	return &auditRepository{db: db}
}

var _ AuditRepository = (*auditRepository)(nil)

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	q := r.db.QuerierFrom(ctx)

	err := q.QueryRow(ctx, `
		INSERT INTO audit_logs (user_id, action, table_name, record_id, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		entry.UserID, entry.Action, entry.TableName, entry.RecordID, entry.Details,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit log entry: %w", err)
	}

	return nil
}

func (r *auditRepository) ListByRecord(ctx context.Context, tableName string, recordID uuid.UUID) ([]models.AuditLogEntry, error) {
	q := r.db.QuerierFrom(ctx)

	rows, err := q.Query(ctx, `
		SELECT id, user_id, action, table_name, record_id, details, created_at
		FROM audit_logs
		WHERE table_name = $1 AND record_id = $2
		ORDER BY created_at`, tableName, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log entries: %w", err)
	}
	defer rows.Close()

	return collectAuditEntries(rows)
}

func (r *auditRepository) ListRecent(ctx context.Context, limit int) ([]models.AuditLogEntry, error) {
	q := r.db.QuerierFrom(ctx)

	if limit <= 0 {
		limit = 100
	}

	rows, err := q.Query(ctx, `
		SELECT id, user_id, action, table_name, record_id, details, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent audit log entries: %w", err)
	}
	defer rows.Close()

	return collectAuditEntries(rows)
}

func collectAuditEntries(rows pgx.Rows) ([]models.AuditLogEntry, error) {
	var entries []models.AuditLogEntry
	for rows.Next() {
		var entry models.AuditLogEntry
		var details *string
		if err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.Action, &entry.TableName,
			&entry.RecordID, &details, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit log entry: %w", err)
		}
		entry.Details = deref(details)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log entries: %w", err)
	}

	return entries, nil
}
