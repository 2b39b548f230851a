package domain

import "time"

type AdminRole string

const (
	RoleSuperAdmin  AdminRole = "super_admin"
	RoleAdmin       AdminRole = "admin"
	RoleManager     AdminRole = "manager"
	RoleCoordinator AdminRole = "coordinator"
)

// AdminUser is a member of the admin team, or the currently authenticated
// session. JSON field names match the persisted wire format.
type AdminUser struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email,omitempty"`
	Designation string    `json:"designation"`
	Role        AdminRole `json:"role"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"createdAt"`
	IsActive    bool      `json:"isActive"`
}

// defaultPermissions maps each role to the permission tags it grants.
var defaultPermissions = map[AdminRole][]string{
	RoleSuperAdmin: {
		"manage_all_users",
		"manage_team",
		"view_all_data",
		"edit_all_data",
		"delete_all_data",
		"system_settings",
		"analytics",
		"financial_reports",
		"user_management",
		"role_management",
	},
	RoleAdmin: {
		"manage_users",
		"view_data",
		"edit_data",
		"analytics",
		"user_management",
		"reports",
	},
	RoleManager: {
		"view_data",
		"edit_data",
		"manage_assigned_users",
		"reports",
	},
	RoleCoordinator: {
		"view_data",
		"basic_edit",
		"basic_reports",
	},
}

// RolePermissions returns the permission set for a role. The second return
// value is false when the role is not in the table.
func RolePermissions(role AdminRole) ([]string, bool) {
	perms, ok := defaultPermissions[role]
	if !ok {
		return nil, false
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out, true
}

// PermissionsForRole returns the permission set for a role, falling back to
// the coordinator set for unrecognized roles so every member always carries
// a valid permission set.
func PermissionsForRole(role AdminRole) []string {
	if perms, ok := RolePermissions(role); ok {
		return perms
	}
	perms, _ := RolePermissions(RoleCoordinator)
	return perms
}

// SuperAdminPermissions returns the full permission set granted to the
// reserved super-admin identity.
func SuperAdminPermissions() []string {
	perms, _ := RolePermissions(RoleSuperAdmin)
	return perms
}

// HasPermission reports whether the user's permission set contains the tag.
func (u *AdminUser) HasPermission(permission string) bool {
	for _, p := range u.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers cannot mutate authority-owned state.
func (u *AdminUser) Clone() *AdminUser {
	if u == nil {
		return nil
	}
	out := *u
	out.Permissions = make([]string, len(u.Permissions))
	copy(out.Permissions, u.Permissions)
	return &out
}
