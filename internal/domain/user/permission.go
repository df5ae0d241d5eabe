package user

import (
	"fmt"
	"slices"

	"github.com/goccy/go-json"
)

// Permission is a fine-grained capability granted to staff users.
type Permission string

const (
	PermReadBill          Permission = "READ_BILL"
	PermUpdateBill        Permission = "UPDATE_BILL"
	PermReadNotice        Permission = "READ_NOTICE"
	PermCreateNotice      Permission = "CREATE_NOTICE"
	PermReadMaintenance   Permission = "READ_MAINTENANCE"
	PermUpdateMaintenance Permission = "UPDATE_MAINTENANCE"
	PermReadTenant        Permission = "READ_TENANT"
	PermManageTenant      Permission = "MANAGE_TENANT"
	PermReadProperty      Permission = "READ_PROPERTY"
	PermManageProperty    Permission = "MANAGE_PROPERTY"
)

// ValidPermissions is the closed set of permissions.
var ValidPermissions = map[Permission]bool{
	PermReadBill:          true,
	PermUpdateBill:        true,
	PermReadNotice:        true,
	PermCreateNotice:      true,
	PermReadMaintenance:   true,
	PermUpdateMaintenance: true,
	PermReadTenant:        true,
	PermManageTenant:      true,
	PermReadProperty:      true,
	PermManageProperty:    true,
}

// PermissionSet is an unordered set of permissions.
// The zero value is an empty set ready to use for lookups.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from the given permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	s := make(PermissionSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// ParsePermissions converts raw strings into a set, rejecting unknown values.
func ParsePermissions(raw []string) (PermissionSet, error) {
	s := make(PermissionSet, len(raw))
	for _, r := range raw {
		p := Permission(r)
		if !ValidPermissions[p] {
			return nil, fmt.Errorf("unknown permission %q", r)
		}
		s[p] = struct{}{}
	}
	return s, nil
}

// Has reports whether p is in the set.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Strings returns the permissions sorted, for storage and tokens.
func (s PermissionSet) Strings() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, string(p))
	}
	slices.Sort(out)
	return out
}

func (s PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParsePermissions(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
