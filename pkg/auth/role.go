package auth

import (
	"errors"
	"fmt"
	"strings"
)

// Role is the closed set of user roles.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
	RoleChief   Role = "sef"
	RoleAdvisor Role = "consilier"
	RoleExpert  Role = "expert"
)

var (
	ErrUnknownRole = errors.New("unknown role")
	ErrForbidden   = errors.New("forbidden")
)

// Permission names an action gated by role.
type Permission string

const (
	// PermViewTeam allows listing the staff of one's own department.
	PermViewTeam Permission = "team:view"
	// PermManageUsers allows creating accounts and editing any profile.
	PermManageUsers Permission = "users:manage"
)

var knownRoles = map[Role]struct{}{
	RoleAdmin:   {},
	RoleManager: {},
	RoleUser:    {},
	RoleChief:   {},
	RoleAdvisor: {},
	RoleExpert:  {},
}

var policy = map[Permission][]Role{
	PermViewTeam:    {RoleChief},
	PermManageUsers: {RoleAdmin},
}

var staffRoles = []Role{RoleAdvisor, RoleExpert}

// ParseRole validates s against the known roles.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	if _, ok := knownRoles[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// Authorize returns ErrForbidden unless role holds perm.
func Authorize(role Role, perm Permission) error {
	for _, allowed := range policy[perm] {
		if allowed == role {
			return nil
		}
	}
	return fmt.Errorf("%w: role %q lacks %s", ErrForbidden, role, perm)
}

// StaffRoles lists the roles that make up a chief's team, in display order.
func StaffRoles() []Role {
	out := make([]Role, len(staffRoles))
	copy(out, staffRoles)
	return out
}

func (r Role) String() string { return string(r) }
