package tenancy

import (
	"github.com/chatvault/backend/internal/auth"
	"github.com/chatvault/backend/internal/models"
)

// Columns the guard owns. Caller-supplied clauses on these are discarded
// before the authoritative ones are merged, so a filter can never widen
// scope.
const (
	ColumnOrganizationID = "organization_id"
	ColumnOwnerID        = "owner_id"
)

// Scope merges the caller's filter with the tenancy constraint for sc.
// Superadmins without an organization are unscoped; a superadmin acting
// under an explicitly chosen organization is confined to it like anyone
// else. Every repository read and mutation goes through this (or
// ScopeOwned) before touching the store.
func Scope(sc auth.SecurityContext, f *Filter) *Filter {
	if f == nil {
		f = NewFilter()
	}
	f = f.without(ColumnOrganizationID, ColumnOwnerID)
	if sc.Superadmin() && !sc.HasOrganization() {
		return f
	}
	return f.Eq(ColumnOrganizationID, *sc.OrganizationID)
}

// ScopeOwned applies Scope and additionally confines plain users to
// resources they own. Admin and organization-key contexts see the whole
// organization.
func ScopeOwned(sc auth.SecurityContext, f *Filter) *Filter {
	f = Scope(sc, f)
	if sc.Role == models.RoleUser && sc.HasSubject() {
		f = f.Eq(ColumnOwnerID, *sc.SubjectID)
	}
	return f
}
