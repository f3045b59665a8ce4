package auth

import (
	"context"

	"github.com/chatvault/backend/internal/models"
	"github.com/chatvault/backend/pkg/apperr"
)

// Resolver turns a verified credential into a SecurityContext, enforcing
// active-status checks and the JWT organization cross-check.
type Resolver struct {
	users UserStore
	orgs  OrganizationStore
}

// NewResolver creates an identity resolver.
func NewResolver(users UserStore, orgs OrganizationStore) *Resolver {
	return &Resolver{users: users, orgs: orgs}
}

// Resolve builds the SecurityContext for cred, or fails with a typed error.
func (r *Resolver) Resolve(ctx context.Context, cred *Credential) (SecurityContext, error) {
	switch cred.Method {
	case MethodJWT:
		return r.resolveJWT(ctx, cred.Claims)
	case MethodUserKey:
		return r.resolveUser(ctx, cred.User, MethodUserKey, nil)
	case MethodOrgKey:
		return r.resolveOrg(cred.Org)
	default:
		return SecurityContext{}, apperr.Unauthenticated("missing credentials")
	}
}

func (r *Resolver) resolveJWT(ctx context.Context, claims *Claims) (SecurityContext, error) {
	user, err := r.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return SecurityContext{}, apperr.Internal("identity lookup failed", err)
	}
	if user == nil {
		return SecurityContext{}, apperr.Unauthenticated("invalid or expired token")
	}
	return r.resolveUser(ctx, user, MethodJWT, claims)
}

func (r *Resolver) resolveUser(ctx context.Context, user *models.User, method Method, claims *Claims) (SecurityContext, error) {
	if !user.IsActive {
		return SecurityContext{}, apperr.AccountDisabled("account is disabled")
	}

	orgID := user.OrganizationID
	if user.Role == models.RoleSuperadmin {
		// A superadmin may act without an organization, or explicitly
		// carry one in the token.
		if claims != nil && claims.OrganizationID != nil {
			orgID = claims.OrganizationID
		}
	} else {
		if orgID == nil {
			return SecurityContext{}, apperr.Unauthenticated("account has no organization")
		}
		// Reject stale or forged tokens claiming a different tenant.
		if claims != nil && (claims.OrganizationID == nil || *claims.OrganizationID != *orgID) {
			return SecurityContext{}, apperr.Unauthenticated("invalid or expired token")
		}
	}

	if orgID != nil {
		org, err := r.orgs.GetByID(ctx, *orgID)
		if err != nil {
			return SecurityContext{}, apperr.Internal("identity lookup failed", err)
		}
		if org == nil || !org.IsActive {
			return SecurityContext{}, apperr.AccountDisabled("organization is disabled")
		}
	}

	subject := user.ID
	return SecurityContext{
		SubjectID:      &subject,
		OrganizationID: orgID,
		Role:           user.Role,
		Method:         method,
	}, nil
}

func (r *Resolver) resolveOrg(org *models.Organization) (SecurityContext, error) {
	if !org.IsActive {
		return SecurityContext{}, apperr.AccountDisabled("organization is disabled")
	}
	orgID := org.ID
	// Org-level context: no subject. Endpoints that need a concrete owner
	// reject this context with OwnerRequired.
	return SecurityContext{
		SubjectID:      nil,
		OrganizationID: &orgID,
		Role:           models.RoleAdmin,
		Method:         MethodOrgKey,
	}, nil
}
