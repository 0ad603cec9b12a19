package access

import (
	"testing"

	"github.com/zentriztech/zentriz-genesis/internal/domain"
)

func TestCanAccessProject(t *testing.T) {
	const (
		tenant  = "tenant-1"
		other   = "tenant-2"
		creator = "user-1"
	)
	cases := []struct {
		name string
		id   Identity
		want bool
	}{
		{"admin always allowed", Identity{UserID: "x", Role: domain.RoleAdmin}, true},
		{"admin allowed across tenants", Identity{UserID: "x", Role: domain.RoleAdmin, TenantID: other}, true},
		{"same tenant member", Identity{UserID: "u2", Role: domain.RoleUser, TenantID: tenant}, true},
		{"tenant admin of same tenant", Identity{UserID: "u3", Role: domain.RoleTenantAdmin, TenantID: tenant}, true},
		{"other tenant denied", Identity{UserID: "u4", Role: domain.RoleUser, TenantID: other}, false},
		{"creator without tenant", Identity{UserID: creator, Role: domain.RoleUser}, true},
		{"stranger denied", Identity{UserID: "u5", Role: domain.RoleUser}, false},
		{"empty identity denied", Identity{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanAccessProject(tc.id, tenant, creator); got != tc.want {
				t.Fatalf("CanAccessProject(%+v) = %v, want %v", tc.id, got, tc.want)
			}
		})
	}
}

func TestCanAccessProjectEmptyTenantNeverMatches(t *testing.T) {
	// A project row with an empty tenant must not match a caller with an
	// empty tenant claim.
	id := Identity{UserID: "u1", Role: domain.RoleUser}
	if CanAccessProject(id, "", "someone-else") {
		t.Fatal("empty tenant matched empty claim")
	}
}
