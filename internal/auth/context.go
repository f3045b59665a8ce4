package auth

import (
	"github.com/google/uuid"

	"github.com/chatvault/backend/internal/models"
)

// Method identifies how a request authenticated.
type Method string

const (
	MethodJWT     Method = "jwt"
	MethodUserKey Method = "user_api_key"
	MethodOrgKey  Method = "organization_api_key"
)

// SecurityContext is the resolved identity of a request. It is created
// once per request by the Resolver, attached to the gin context, and never
// persisted. SubjectID is nil for organization-key contexts; OrganizationID
// is nil only for superadmins acting without a tenant.
type SecurityContext struct {
	SubjectID      *uuid.UUID
	OrganizationID *uuid.UUID
	Role           models.Role
	Method         Method
}

// Superadmin reports whether the context bypasses tenancy filters.
func (sc SecurityContext) Superadmin() bool {
	return sc.Role == models.RoleSuperadmin
}

// HasSubject reports whether the context carries a concrete user subject.
func (sc SecurityContext) HasSubject() bool {
	return sc.SubjectID != nil
}

// HasOrganization reports whether the context is bound to a tenant.
func (sc SecurityContext) HasOrganization() bool {
	return sc.OrganizationID != nil
}
