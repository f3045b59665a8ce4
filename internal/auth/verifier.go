package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/chatvault/backend/internal/models"
	"github.com/chatvault/backend/pkg/apperr"
	"github.com/chatvault/backend/pkg/utils"
)

const (
	// HeaderUserKey carries a user API key.
	HeaderUserKey = "x-api-key"
	// HeaderOrgKey carries an organization API key.
	HeaderOrgKey = "x-organization-api-key"
)

// UserStore looks up users for credential verification and resolution.
// Implementations return (nil, nil) on a clean miss.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByAPIKeyHash(ctx context.Context, hash string) (*models.User, error)
}

// OrganizationStore looks up organizations for credential verification
// and resolution. Implementations return (nil, nil) on a clean miss.
type OrganizationStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	GetByAPIKeyHash(ctx context.Context, hash string) (*models.Organization, error)
}

// Credential is the tagged result of verification: exactly one of Claims,
// User, or Org is set, matching Method.
type Credential struct {
	Method Method
	Claims *Claims              // MethodJWT
	User   *models.User         // MethodUserKey
	Org    *models.Organization // MethodOrgKey
}

// Verifier validates a request's credential headers. Verification is
// attempted in a fixed priority order (bearer token, organization key,
// user key); only the first header present is tried, and a present header
// that fails verification fails the request outright. Falling through to
// a weaker method on failure would let one credential type masquerade as
// another.
type Verifier struct {
	jwt   *JWTService
	users UserStore
	orgs  OrganizationStore
}

// NewVerifier creates a credential verifier.
func NewVerifier(jwtService *JWTService, users UserStore, orgs OrganizationStore) *Verifier {
	return &Verifier{jwt: jwtService, users: users, orgs: orgs}
}

// Verify inspects headers and returns the verified credential.
func (v *Verifier) Verify(ctx context.Context, header http.Header) (*Credential, error) {
	if raw := header.Get("Authorization"); raw != "" {
		parts := strings.SplitN(raw, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return nil, apperr.Unauthenticated("invalid authorization header")
		}
		claims, err := v.jwt.Validate(parts[1])
		if err != nil {
			return nil, apperr.Unauthenticated("invalid or expired token")
		}
		return &Credential{Method: MethodJWT, Claims: claims}, nil
	}

	if raw := header.Get(HeaderOrgKey); raw != "" {
		org, err := v.orgs.GetByAPIKeyHash(ctx, utils.HashAPIKey(raw))
		if err != nil {
			return nil, apperr.Internal("credential lookup failed", err)
		}
		if org == nil {
			return nil, apperr.Unauthenticated("invalid organization API key")
		}
		return &Credential{Method: MethodOrgKey, Org: org}, nil
	}

	if raw := header.Get(HeaderUserKey); raw != "" {
		user, err := v.users.GetByAPIKeyHash(ctx, utils.HashAPIKey(raw))
		if err != nil {
			return nil, apperr.Internal("credential lookup failed", err)
		}
		if user == nil {
			return nil, apperr.Unauthenticated("invalid API key")
		}
		return &Credential{Method: MethodUserKey, User: user}, nil
	}

	return nil, apperr.Unauthenticated("missing credentials")
}
