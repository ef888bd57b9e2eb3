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

// MachineRepository provides data access for the machine registry.
type MachineRepository interface {
	Create(ctx context.Context, machine *models.Machine) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Machine, error)
	Update(ctx context.Context, machine *models.Machine) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*models.Machine, error)

	// SetStatus flips the dashboard state without touching counters.
	SetStatus(ctx context.Context, id uuid.UUID, status models.MachineStatus) error

	// AddRunningHours bumps the operating counters used by condition
	// plans.
	AddRunningHours(ctx context.Context, id uuid.UUID, hours float64, cycles int) error
}

type machineRepository struct {
	db *database.DB
}

// NewMachineRepository creates a new MachineRepository.
func NewMachineRepository(db *database.DB) MachineRepository {
	return &machineRepository{db: db}
}

var _ MachineRepository = (*machineRepository)(nil)

const machineColumns = `id, code, name, model, serial_number, status, zone,
	responsible_person, running_hours, cycle_count, created_at`

func (r *machineRepository) Create(ctx context.Context, machine *models.Machine) error {
	q := r.db.QuerierFrom(ctx)

	err := q.QueryRow(ctx, `
		INSERT INTO machines (code, name, model, serial_number, status, zone, responsible_person)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		machine.Code, machine.Name, machine.Model, machine.SerialNumber,
		machine.Status, machine.Zone, machine.ResponsiblePerson,
	).Scan(&machine.ID, &machine.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create machine: %w", err)
	}

	return nil
}

func (r *machineRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Machine, error) {
	q := r.db.QuerierFrom(ctx)

	machine, err := scanMachine(q.QueryRow(ctx,
		`SELECT `+machineColumns+` FROM machines WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get machine: %w", err)
	}

	return machine, nil
}

func (r *machineRepository) Update(ctx context.Context, machine *models.Machine) error {
	q := r.db.QuerierFrom(ctx)

	tag, err := q.Exec(ctx, `
		UPDATE machines
		SET code = $1, name = $2, model = $3, serial_number = $4,
		    status = $5, zone = $6, responsible_person = $7
		WHERE id = $8`,
		machine.Code, machine.Name, machine.Model, machine.SerialNumber,
		machine.Status, machine.Zone, machine.ResponsiblePerson, machine.ID)
	if err != nil {
		return fmt.Errorf("failed to update machine: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *machineRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q := r.db.QuerierFrom(ctx)

	tag, err := q.Exec(ctx, `DELETE FROM machines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete machine: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *machineRepository) List(ctx context.Context) ([]*models.Machine, error) {
	q := r.db.QuerierFrom(ctx)

	rows, err := q.Query(ctx, `SELECT `+machineColumns+` FROM machines ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}
	defer rows.Close()

	var machines []*models.Machine
	for rows.Next() {
		machine, err := scanMachine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan machine: %w", err)
		}
		machines = append(machines, machine)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating machines: %w", err)
	}

	return machines, nil
}

func (r *machineRepository) SetStatus(ctx context.Context, id uuid.UUID, status models.MachineStatus) error {
	q := r.db.QuerierFrom(ctx)

	tag, err := q.Exec(ctx, `UPDATE machines SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to set machine status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *machineRepository) AddRunningHours(ctx context.Context, id uuid.UUID, hours float64, cycles int) error {
	q := r.db.QuerierFrom(ctx)

	tag, err := q.Exec(ctx, `
		UPDATE machines
		SET running_hours = running_hours + $1,
		    cycle_count = cycle_count + $2
		WHERE id = $3`, hours, cycles, id)
	if err != nil {
		return fmt.Errorf("failed to add running hours: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func scanMachine(row pgx.Row) (*models.Machine, error) {
	var machine models.Machine
	var model, serial, zone, responsible *string

	err := row.Scan(
		&machine.ID, &machine.Code, &machine.Name, &model, &serial,
		&machine.Status, &zone, &responsible, &machine.RunningHours,
		&machine.CycleCount, &machine.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	machine.Model = deref(model)
	machine.SerialNumber = deref(serial)
	machine.Zone = deref(zone)
	machine.ResponsiblePerson = deref(responsible)

	return &machine, nil
}
