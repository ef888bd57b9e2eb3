package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to WorkOrderStatus }{
		{StatusNew, StatusApproved},
		{StatusNew, StatusInProgress},
		{StatusOpen, StatusInProgress},
		{StatusApproved, StatusInProgress},
		{StatusInProgress, StatusHold},
		{StatusInProgress, StatusDone},
		{StatusHold, StatusInProgress},
		{StatusDone, StatusClosed},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	forbidden := []struct{ from, to WorkOrderStatus }{
		{StatusNew, StatusDone},
		{StatusNew, StatusClosed},
		{StatusOpen, StatusApproved},
		{StatusDone, StatusInProgress},
		{StatusClosed, StatusInProgress},
		{StatusClosed, StatusOpen},
		{StatusHold, StatusDone},
		{StatusInProgress, StatusClosed},
	}
	for _, tc := range forbidden {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be rejected", tc.from, tc.to)
	}
}

func TestRequiresApproval(t *testing.T) {
	assert.True(t, RequiresApproval(KindFabrication))
	assert.True(t, RequiresApproval(KindModification))
	assert.False(t, RequiresApproval(KindRepair))
	assert.False(t, RequiresApproval(KindBreakdown))
	assert.False(t, RequiresApproval(KindPM))
	assert.False(t, RequiresApproval(KindAM))
}

func TestRequiresRootCause(t *testing.T) {
	cases := []struct {
		kind     WorkOrderKind
		priority Priority
		want     bool
	}{
		{KindRepair, PriorityCritical, true},
		{KindRepair, PriorityHigh, true},
		{KindBreakdown, PriorityHigh, true},
		{KindRepair, PriorityNormal, false},
		{KindBreakdown, PriorityLow, false},
		{KindPM, PriorityCritical, false},
		{KindFabrication, PriorityHigh, false},
	}
	for _, tc := range cases {
		wo := &WorkOrder{Kind: tc.kind, Priority: tc.priority}
		assert.Equal(t, tc.want, wo.RequiresRootCause(), "%s/%s", tc.kind, tc.priority)
	}
}

func TestIsActive(t *testing.T) {
	for _, s := range []WorkOrderStatus{StatusOpen, StatusInProgress, StatusWaitHandover} {
		wo := &WorkOrder{Status: s}
		assert.True(t, wo.IsActive(), "%s", s)
	}
	for _, s := range []WorkOrderStatus{StatusNew, StatusApproved, StatusHold, StatusDone, StatusClosed} {
		wo := &WorkOrder{Status: s}
		assert.False(t, wo.IsActive(), "%s", s)
	}
}
