package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkOrderStatus is a work order lifecycle state.
type WorkOrderStatus string

const (
	StatusNew          WorkOrderStatus = "New"
	StatusOpen         WorkOrderStatus = "Open"
	StatusApproved     WorkOrderStatus = "Approved"
	StatusInProgress   WorkOrderStatus = "InProgress"
	StatusHold         WorkOrderStatus = "Hold"
	StatusDone         WorkOrderStatus = "Done"
	StatusWaitHandover WorkOrderStatus = "WaitHandover"
	StatusClosed       WorkOrderStatus = "Closed"
)

// ActiveStatuses are the states in which a plan-generated work order
// blocks generation of another one for the same plan.
var ActiveStatuses = []WorkOrderStatus{StatusOpen, StatusInProgress, StatusWaitHandover}

// WorkOrderKind classifies a work order.
type WorkOrderKind string

const (
	KindRepair       WorkOrderKind = "Repair"
	KindBreakdown    WorkOrderKind = "Breakdown"
	KindPM           WorkOrderKind = "PM"
	KindAM           WorkOrderKind = "AM"
	KindFabrication  WorkOrderKind = "Fabrication"
	KindModification WorkOrderKind = "Modification"
)

// Priority is a work order urgency level.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityNormal   Priority = "Normal"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// transitions encodes the legal state machine edges. The only backward
// edge is the Hold/InProgress toggle.
var transitions = map[WorkOrderStatus][]WorkOrderStatus{
	StatusNew:        {StatusApproved, StatusInProgress},
	StatusOpen:       {StatusInProgress},
	StatusApproved:   {StatusInProgress},
	StatusInProgress: {StatusHold, StatusDone},
	StatusHold:       {StatusInProgress},
	StatusDone:       {StatusClosed},
}

// CanTransition reports whether the state machine allows moving from one
// status to another. Role and precondition gates (approval, RCA, hold
// reason) are enforced by the lifecycle service on top of this.
func CanTransition(from, to WorkOrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RequiresApproval reports whether a work order kind must be approved
// before work may start.
func RequiresApproval(kind WorkOrderKind) bool {
	return kind == KindFabrication || kind == KindModification
}

// WorkOrder is a single executable maintenance or repair job.
type WorkOrder struct {
	ID        uuid.UUID  `json:"id"`
	MachineID *uuid.UUID `json:"machine_id,omitempty"`
	PlanID    *uuid.UUID `json:"plan_id,omitempty"`

	Kind        WorkOrderKind   `json:"kind"`
	Description string          `json:"description"`
	Status      WorkOrderStatus `json:"status"`
	Priority    Priority        `json:"priority"`
	Origin      string          `json:"origin,omitempty"`
	FailureCode string          `json:"failure_code,omitempty"`

	ReportedByID *uuid.UUID `json:"reported_by_id,omitempty"`
	AssignedToID *uuid.UUID `json:"assigned_to_id,omitempty"`

	ActualMinutes int    `json:"actual_minutes"`
	HoldReason    string `json:"hold_reason,omitempty"`

	// 5-Whys root cause analysis for repair work.
	RootCauseWhy1 string `json:"root_cause_why1,omitempty"`
	RootCauseWhy2 string `json:"root_cause_why2,omitempty"`
	RootCauseWhy3 string `json:"root_cause_why3,omitempty"`
	RootCauseWhy4 string `json:"root_cause_why4,omitempty"`
	RootCauseWhy5 string `json:"root_cause_why5,omitempty"`
	ActionTaken   string `json:"action_taken,omitempty"`

	SatisfactionScore *int   `json:"satisfaction_score,omitempty"`
	AcceptanceNote    string `json:"acceptance_note,omitempty"`

	SLADeadline *time.Time `json:"sla_deadline,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`

	// Checklist snapshot captured at generation time. Later plan edits
	// never alter these rows.
	ChecklistResults []ChecklistResult `json:"checklist_results,omitempty"`
}

// RequiresRootCause reports whether the order must carry at least the
// first "why" before it can be marked Done.
func (wo *WorkOrder) RequiresRootCause() bool {
	if wo.Kind != KindRepair && wo.Kind != KindBreakdown {
		return false
	}
	return wo.Priority == PriorityHigh || wo.Priority == PriorityCritical
}

// IsActive reports whether the order occupies a plan's generation slot.
func (wo *WorkOrder) IsActive() bool {
	for _, s := range ActiveStatuses {
		if wo.Status == s {
			return true
		}
	}
	return false
}

// ChecklistResult is one execution-time checklist line on a work order.
// ChecklistItemID is nullable so the originating template can be deleted
// without breaking historical records.
type ChecklistResult struct {
	ID              uuid.UUID  `json:"id"`
	WorkOrderID     uuid.UUID  `json:"work_order_id"`
	ChecklistItemID *uuid.UUID `json:"checklist_item_id,omitempty"`
	TaskName        string     `json:"task_name"`
	Standard        string     `json:"standard,omitempty"`
	ResponsibleRole string     `json:"responsible_role,omitempty"`
	IsChecked       bool       `json:"is_checked"`
	ParameterValue  string     `json:"parameter_value,omitempty"`
	DefectNoted     bool       `json:"defect_noted"`
	DefectDetails   string     `json:"defect_details,omitempty"`
}

// WorkOrderUpdate is the explicit mutable surface of a work order.
// Status is deliberately absent: state changes go through the transition
// helpers so their gates cannot be bypassed.
type WorkOrderUpdate struct {
	Description   *string    `json:"description,omitempty"`
	Priority      *Priority  `json:"priority,omitempty"`
	Origin        *string    `json:"origin,omitempty"`
	FailureCode   *string    `json:"failure_code,omitempty"`
	AssignedToID  *uuid.UUID `json:"assigned_to_id,omitempty"`
	ActualMinutes *int       `json:"actual_minutes,omitempty"`
	RootCauseWhy1 *string    `json:"root_cause_why1,omitempty"`
	RootCauseWhy2 *string    `json:"root_cause_why2,omitempty"`
	RootCauseWhy3 *string    `json:"root_cause_why3,omitempty"`
	RootCauseWhy4 *string    `json:"root_cause_why4,omitempty"`
	RootCauseWhy5 *string    `json:"root_cause_why5,omitempty"`
	ActionTaken   *string    `json:"action_taken,omitempty"`
	SLADeadline   *time.Time `json:"sla_deadline,omitempty"`
}

// ChecklistResultUpdate patches a single checklist result row.
type ChecklistResultUpdate struct {
	IsChecked      *bool   `json:"is_checked,omitempty"`
	ParameterValue *string `json:"parameter_value,omitempty"`
	DefectNoted    *bool   `json:"defect_noted,omitempty"`
	DefectDetails  *string `json:"defect_details,omitempty"`
}
