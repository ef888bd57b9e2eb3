package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Role is a user role in the permission matrix.
type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleManager    Role = "Manager"
	RoleEngineer   Role = "Engineer"
	RoleTechnician Role = "Technician"
	RoleViewer     Role = "Viewer"
)

// AllRoles lists every known role.
var AllRoles = []Role{RoleAdmin, RoleManager, RoleEngineer, RoleTechnician, RoleViewer}

// IsValidRole reports whether r is a known role.
func IsValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEngineer, RoleTechnician, RoleViewer:
		return true
	}
	return false
}

// Resource names a protected resource in the permission matrix.
type Resource string

const (
	ResourceMachine    Resource = "machine"
	ResourceWorkOrder  Resource = "work_order"
	ResourcePMPlan     Resource = "pm_plan"
	ResourceSparePart  Resource = "spare_part"
	ResourceWorkPermit Resource = "work_permit"
	ResourceUser       Resource = "user"
	ResourceAuditLog   Resource = "audit_log"
)

// Action is an operation on a resource.
type Action string

const (
	ActionCreate  Action = "create"
	ActionRead    Action = "read"
	ActionUpdate  Action = "update"
	ActionApprove Action = "approve"
	ActionDelete  Action = "delete"
)

// PermissionMatrix maps role -> resource -> allowed actions.
type PermissionMatrix map[Role]map[Resource][]Action

func actions(as ...Action) []Action { return as }

var defaultPermissions = PermissionMatrix{
	RoleAdmin: {
		ResourceMachine:    actions(ActionCreate, ActionRead, ActionUpdate, ActionApprove, ActionDelete),
		ResourceWorkOrder:  actions(ActionCreate, ActionRead, ActionUpdate, ActionApprove, ActionDelete),
		ResourcePMPlan:     actions(ActionCreate, ActionRead, ActionUpdate, ActionApprove, ActionDelete),
		ResourceSparePart:  actions(ActionCreate, ActionRead, ActionUpdate, ActionApprove, ActionDelete),
		ResourceWorkPermit: actions(ActionCreate, ActionRead, ActionUpdate, ActionApprove, ActionDelete),
		ResourceUser:       actions(ActionCreate, ActionRead, ActionUpdate, ActionApprove, ActionDelete),
		ResourceAuditLog:   actions(ActionRead),
	},
	RoleManager: {
		ResourceMachine:    actions(ActionCreate, ActionRead, ActionUpdate, ActionApprove),
		ResourceWorkOrder:  actions(ActionCreate, ActionRead, ActionUpdate, ActionApprove),
		ResourcePMPlan:     actions(ActionCreate, ActionRead, ActionUpdate, ActionApprove),
		ResourceSparePart:  actions(ActionCreate, ActionRead, ActionUpdate, ActionApprove),
		ResourceWorkPermit: actions(ActionRead, ActionUpdate, ActionApprove),
		ResourceUser:       actions(ActionRead),
		ResourceAuditLog:   actions(ActionRead),
	},
	RoleEngineer: {
		ResourceMachine:    actions(ActionCreate, ActionRead, ActionUpdate, ActionApprove),
		ResourceWorkOrder:  actions(ActionCreate, ActionRead, ActionUpdate, ActionApprove),
		ResourcePMPlan:     actions(ActionCreate, ActionRead, ActionUpdate, ActionApprove),
		ResourceSparePart:  actions(ActionCreate, ActionRead, ActionUpdate),
		ResourceWorkPermit: actions(ActionCreate, ActionRead, ActionUpdate, ActionApprove),
		ResourceUser:       actions(ActionRead),
		ResourceAuditLog:   actions(ActionRead),
	},
	RoleTechnician: {
		ResourceMachine:    actions(ActionCreate, ActionRead, ActionUpdate),
		ResourceWorkOrder:  actions(ActionCreate, ActionRead, ActionUpdate),
		ResourcePMPlan:     actions(ActionCreate, ActionRead, ActionUpdate),
		ResourceSparePart:  actions(ActionRead, ActionUpdate),
		ResourceWorkPermit: actions(ActionCreate, ActionRead),
	},
	RoleViewer: {
		ResourceMachine:    actions(ActionRead),
		ResourceWorkOrder:  actions(ActionRead),
		ResourcePMPlan:     actions(ActionRead),
		ResourceSparePart:  actions(ActionRead),
		ResourceWorkPermit: actions(ActionRead),
	},
}

var permissions = defaultPermissions

// Can reports whether role may perform action on resource.
func Can(role Role, resource Resource, action Action) bool {
	for _, a := range permissions[role][resource] {
		if a == action {
			return true
		}
	}
	return false
}

// LoadPermissions replaces the built-in matrix with one read from a YAML
// file. Roles or resources absent from the file fall back to no access,
// so override files must be complete.
func LoadPermissions(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read permissions file: %w", err)
	}

	var matrix PermissionMatrix
	if err := yaml.Unmarshal(data, &matrix); err != nil {
		return fmt.Errorf("failed to parse permissions file: %w", err)
	}

	for role := range matrix {
		if !IsValidRole(role) {
			return fmt.Errorf("unknown role in permissions file: %s", role)
		}
	}

	permissions = matrix
	return nil
}

// ResetPermissions restores the built-in matrix. Used by tests.
func ResetPermissions() {
	permissions = defaultPermissions
}
