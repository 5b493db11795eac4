package user_test

import (
	"testing"

	domain "github.com/mohammadpnp/user-directory/internal/domain/user"
)

func TestParseRoleNormalizes(t *testing.T) {
	t.Parallel()

	cases := map[string]domain.Role{
		"employee":     domain.RoleEmployee,
		"Employee ":    domain.RoleEmployee,
		"  MANAGER":    domain.RoleManager,
		"Intern":       domain.RoleIntern,
		"hr":           domain.RoleHR,
		"\tDirector\n": domain.RoleDirector,
	}
	for raw, want := range cases {
		got, ok := domain.ParseRole(raw)
		if !ok {
			t.Fatalf("expected %q to be accepted", raw)
		}
		if got != want {
			t.Fatalf("unexpected role for %q: %s", raw, got)
		}
	}
}

func TestParseRoleRejectsUnknown(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "  ", "admin", "bogus", "human resources"} {
		if _, ok := domain.ParseRole(raw); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestUpsertResultApplied(t *testing.T) {
	t.Parallel()

	res := domain.UpsertResult{InsertedCount: 2, UpdatedCount: 3}
	if res.Applied() != 5 {
		t.Fatalf("expected applied=5, got %d", res.Applied())
	}
}
