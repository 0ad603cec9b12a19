package access

import "github.com/zentriztech/zentriz-genesis/internal/domain"

// Identity is the authenticated caller, resolved from the bearer token and
// threaded as an explicit parameter into every project-scoped operation.
type Identity struct {
	UserID   string
	Email    string
	Role     string
	TenantID string
}

// IsAdmin reports whether the caller holds the cross-tenant admin role.
func (id Identity) IsAdmin() bool {
	return id.Role == domain.RoleAdmin
}

// CanAccessProject is the single authorization predicate for project-scoped
// operations. Every endpoint that touches a project must go through it so the
// rules cannot drift between routes.
func CanAccessProject(id Identity, projectTenantID, projectCreatedBy string) bool {
	if id.IsAdmin() {
		return true
	}
	if id.TenantID != "" && id.TenantID == projectTenantID {
		return true
	}
	return projectCreatedBy != "" && projectCreatedBy == id.UserID
}
