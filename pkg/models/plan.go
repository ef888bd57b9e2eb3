package models

import (
	"time"

	"github.com/google/uuid"
)

// PlanKind distinguishes technician-performed preventive maintenance from
// operator-performed autonomous maintenance.
type PlanKind string

const (
	PlanKindPM PlanKind = "PM"
	PlanKindAM PlanKind = "AM"
)

// ScheduleKind determines how a plan becomes due.
type ScheduleKind string

const (
	// ScheduleCalendar plans are due when next_due_date elapses.
	ScheduleCalendar ScheduleKind = "Calendar"
	// ScheduleCondition plans accumulate a trigger value (e.g. running
	// hours) instead of advancing by wall-clock date.
	ScheduleCondition ScheduleKind = "Condition"
)

// ScheduleSubtype is informational detail for calendar plans.
type ScheduleSubtype string

const (
	SubtypeInterval ScheduleSubtype = "Interval"
	SubtypeWeekly   ScheduleSubtype = "Weekly"
	SubtypeMonthly  ScheduleSubtype = "Monthly"
)

// MaintenancePlan is a recurring PM/AM plan attached to a machine.
type MaintenancePlan struct {
	ID          uuid.UUID `json:"id"`
	MachineID   uuid.UUID `json:"machine_id"`
	Title       string    `json:"title"`
	Standard    string    `json:"standard,omitempty"`
	Description string    `json:"description,omitempty"`

	Kind            PlanKind        `json:"kind"`
	ScheduleKind    ScheduleKind    `json:"schedule_kind"`
	ScheduleSubtype ScheduleSubtype `json:"schedule_subtype,omitempty"`

	// FrequencyDays drives calendar interval plans. Condition plans fall
	// back to it as an increment when ConditionIncrement is unset.
	FrequencyDays *int `json:"frequency_days,omitempty"`

	// ScheduleDay is a weekday (0-6) or day-of-month (-1 for last),
	// informational for weekly/monthly subtypes.
	ScheduleDay *int `json:"schedule_day,omitempty"`

	// TriggerValue is the accumulating threshold for condition plans,
	// e.g. target running hours.
	TriggerValue *float64 `json:"trigger_value,omitempty"`

	// ConditionIncrement, when set, is added to TriggerValue after each
	// completed cycle of a condition plan.
	ConditionIncrement *float64 `json:"condition_increment,omitempty"`

	LastDoneDate  *time.Time `json:"last_done_date,omitempty"`
	NextDueDate   *time.Time `json:"next_due_date,omitempty"`
	IsCalibration bool       `json:"is_calibration"`

	CreatedAt time.Time `json:"created_at"`

	// Checklist templates, ordered by sequence. Populated on reads that
	// request them; always snapshot-copied into generated work orders.
	Checklist []ChecklistItem `json:"checklist,omitempty"`
}

// ChecklistItem is a reusable checklist template line owned by a plan.
type ChecklistItem struct {
	ID              uuid.UUID `json:"id"`
	PlanID          uuid.UUID `json:"plan_id"`
	TaskName        string    `json:"task_name"`
	Standard        string    `json:"standard,omitempty"`
	ResponsibleRole string    `json:"responsible_role,omitempty"`
	IsParameter     bool      `json:"is_parameter"`
	ParameterUnit   string    `json:"parameter_unit,omitempty"`
	Sequence        int       `json:"sequence"`
}

// PlanUpdate is the explicit mutable surface of a plan. Nil fields are
// left untouched.
type PlanUpdate struct {
	Title              *string          `json:"title,omitempty"`
	Standard           *string          `json:"standard,omitempty"`
	Description        *string          `json:"description,omitempty"`
	Kind               *PlanKind        `json:"kind,omitempty"`
	ScheduleKind       *ScheduleKind    `json:"schedule_kind,omitempty"`
	ScheduleSubtype    *ScheduleSubtype `json:"schedule_subtype,omitempty"`
	FrequencyDays      *int             `json:"frequency_days,omitempty"`
	ScheduleDay        *int             `json:"schedule_day,omitempty"`
	TriggerValue       *float64         `json:"trigger_value,omitempty"`
	ConditionIncrement *float64         `json:"condition_increment,omitempty"`
	NextDueDate        *time.Time       `json:"next_due_date,omitempty"`
	IsCalibration      *bool            `json:"is_calibration,omitempty"`
}
