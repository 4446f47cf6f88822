package user

import (
	"sort"
	"strings"

	"github.com/earnyourwings/wings/core"
)

// Roles
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleEmployee  = "employee"
)

var (
	// StaffRoles may open the admin views.
	StaffRoles = []string{RoleAdmin, RoleModerator}
	AllRoles   = []string{RoleAdmin, RoleModerator, RoleEmployee}

	Roles = []Role{
		{Name: "Employee", Value: RoleEmployee},
		{Name: "Moderator", Value: RoleModerator},
		{Name: "Admin", Value: RoleAdmin},
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Capabilities is a set of named permissions granted to a session.
type Capabilities interface {
	HasRole(name string) bool
}

// HasAnyRole reports whether caps holds at least one of roles.
// A nil Capabilities holds nothing.
func HasAnyRole(caps Capabilities, roles ...string) bool {
	if caps == nil {
		return false
	}
	for _, role := range roles {
		if caps.HasRole(role) {
			return true
		}
	}
	return false
}

// User is the identity of the authenticated person, as asserted by the auth provider.
type User struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

var _ Capabilities = User{}

// HasRole does a case-insensitive match against the user's roles.
func (u User) HasRole(name string) bool {
	name = core.CleanString(name, true /* lower */)
	for _, role := range u.Roles {
		if strings.ToLower(role) == name {
			return true
		}
	}
	return false
}

func (u User) IsStaff() bool {
	return HasAnyRole(u, StaffRoles...)
}

// NormalizeRoles cleans, lowers, de-duplicates and sorts roles.
func NormalizeRoles(roles []string) []string {
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		role = core.CleanString(role, true /* lower */)
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	sort.Strings(out)
	return out
}
