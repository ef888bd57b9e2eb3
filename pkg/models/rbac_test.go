package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanDefaultMatrix(t *testing.T) {
	cases := []struct {
		role     Role
		resource Resource
		action   Action
		want     bool
	}{
		{RoleAdmin, ResourcePMPlan, ActionDelete, true},
		{RoleAdmin, ResourceAuditLog, ActionRead, true},
		{RoleManager, ResourceWorkOrder, ActionApprove, true},
		{RoleManager, ResourcePMPlan, ActionDelete, false},
		{RoleEngineer, ResourcePMPlan, ActionCreate, true},
		{RoleEngineer, ResourceSparePart, ActionApprove, false},
		{RoleTechnician, ResourceWorkOrder, ActionUpdate, true},
		{RoleTechnician, ResourceWorkOrder, ActionApprove, false},
		{RoleTechnician, ResourceAuditLog, ActionRead, false},
		{RoleViewer, ResourceMachine, ActionRead, true},
		{RoleViewer, ResourceWorkOrder, ActionCreate, false},
		{Role("Intruder"), ResourceMachine, ActionRead, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Can(tc.role, tc.resource, tc.action),
			"%s %s %s", tc.role, tc.action, tc.resource)
	}
}

func TestIsValidRole(t *testing.T) {
	for _, r := range AllRoles {
		assert.True(t, IsValidRole(r))
	}
	assert.False(t, IsValidRole(Role("Superuser")))
	assert.False(t, IsValidRole(Role("")))
}

func TestLoadPermissionsOverride(t *testing.T) {
	t.Cleanup(ResetPermissions)

	path := filepath.Join(t.TempDir(), "permissions.yaml")
	override := `
Viewer:
  work_order: [read, create]
Technician:
  work_order: [read]
`
	require.NoError(t, os.WriteFile(path, []byte(override), 0o644))
	require.NoError(t, LoadPermissions(path))

	assert.True(t, Can(RoleViewer, ResourceWorkOrder, ActionCreate))
	assert.True(t, Can(RoleTechnician, ResourceWorkOrder, ActionRead))
	// Roles absent from the override lose all access.
	assert.False(t, Can(RoleAdmin, ResourceWorkOrder, ActionRead))

	ResetPermissions()
	assert.False(t, Can(RoleViewer, ResourceWorkOrder, ActionCreate))
	assert.True(t, Can(RoleAdmin, ResourceWorkOrder, ActionRead))
}

func TestLoadPermissionsRejectsUnknownRole(t *testing.T) {
	t.Cleanup(ResetPermissions)

	path := filepath.Join(t.TempDir(), "permissions.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Ghost:\n  machine: [read]\n"), 0o644))

	err := LoadPermissions(path)
	assert.ErrorContains(t, err, "unknown role")
}

func TestLoadPermissionsMissingFile(t *testing.T) {
	err := LoadPermissions(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
