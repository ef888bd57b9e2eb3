package models

import (
	"time"

	"github.com/google/uuid"
)

// MachineStatus is the operational state shown on dashboards.
type MachineStatus string

const (
	MachineRunning   MachineStatus = "Running"
	MachineWarning   MachineStatus = "Warning"
	MachineBreakdown MachineStatus = "Breakdown"
)

// Machine is a registry entry. The engine treats machines as foreign-key
// targets; machine business logic lives with the registry collaborator.
type Machine struct {
	ID                uuid.UUID     `json:"id"`
	Code              string        `json:"code"`
	Name              string        `json:"name"`
	Model             string        `json:"model,omitempty"`
	SerialNumber      string        `json:"serial_number,omitempty"`
	Status            MachineStatus `json:"status"`
	Zone              string        `json:"zone,omitempty"`
	ResponsiblePerson string        `json:"responsible_person,omitempty"`

	// Operating counters for condition-based plans.
	RunningHours float64 `json:"running_hours"`
	CycleCount   int     `json:"cycle_count"`

	CreatedAt time.Time `json:"created_at"`
}
