package user

import (
	"strings"
	"time"
)

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleIntern   Role = "intern"
	RoleHR       Role = "hr"
	RoleDirector Role = "director"
)

// Roles is the canonical role set accepted by the users table.
var Roles = []Role{RoleEmployee, RoleManager, RoleIntern, RoleHR, RoleDirector}

// ParseRole trims and lower-cases raw and reports whether the result is a
// member of the canonical role set.
func ParseRole(raw string) (Role, bool) {
	candidate := Role(strings.ToLower(strings.TrimSpace(raw)))
	for _, role := range Roles {
		if candidate == role {
			return role, true
		}
	}
	return "", false
}

func (r Role) String() string {
	return string(r)
}

// CanonicalUser is a spreadsheet row that passed validation. All fields are
// trimmed and non-empty; Role is always a member of Roles.
type CanonicalUser struct {
	Username string
	Email    string
	Password string
	Role     Role
}

type User struct {
	ID        int64
	Username  string
	Email     string
	Role      Role
	CreatedAt *time.Time
	UpdatedAt *time.Time
}
