package user

import "fmt"

// Role is the closed set of roles a user can hold.
type Role string

const (
	RoleSuperAdmin Role = "SUPERADMIN"
	RoleClient     Role = "CLIENT"
	RoleManager    Role = "MANAGER"
	RoleMaintainer Role = "MAINTAINER"
	RoleJanitor    Role = "JANITOR"
	RoleTenant     Role = "TENANT"
	RoleProvider   Role = "PROVIDER"
)

// ValidRoles is the set of all valid user roles.
var ValidRoles = map[Role]bool{
	RoleSuperAdmin: true,
	RoleClient:     true,
	RoleManager:    true,
	RoleMaintainer: true,
	RoleJanitor:    true,
	RoleTenant:     true,
	RoleProvider:   true,
}

// ParseRole converts s into a Role, rejecting anything outside the closed set.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !ValidRoles[r] {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// IsStaff reports whether the role is one of the client's staff roles.
// Only staff roles carry a meaningful permission set and property scope.
func (r Role) IsStaff() bool {
	switch r {
	case RoleManager, RoleMaintainer, RoleJanitor:
		return true
	default:
		return false
	}
}

// Scoped reports whether users with this role belong to a client.
func (r Role) Scoped() bool {
	return r != RoleSuperAdmin
}
