package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatvault/backend/internal/models"
	"github.com/chatvault/backend/pkg/apperr"
)

func activeOrg(id uuid.UUID) *models.Organization {
	return &models.Organization{ID: id, Name: "acme", IsActive: true}
}

func TestResolveUserKey(t *testing.T) {
	orgID := uuid.New()
	user := newTestUser(models.RoleUser, &orgID, true)
	orgs := &fakeOrgStore{byID: map[uuid.UUID]*models.Organization{orgID: activeOrg(orgID)}}

	r := NewResolver(&fakeUserStore{}, orgs)
	sc, err := r.Resolve(context.Background(), &Credential{Method: MethodUserKey, User: user})
	require.NoError(t, err)
	require.NotNil(t, sc.SubjectID)
	assert.Equal(t, user.ID, *sc.SubjectID)
	require.NotNil(t, sc.OrganizationID)
	assert.Equal(t, orgID, *sc.OrganizationID)
	assert.Equal(t, models.RoleUser, sc.Role)
	assert.Equal(t, MethodUserKey, sc.Method)
}

func TestResolveDisabledUser(t *testing.T) {
	orgID := uuid.New()
	user := newTestUser(models.RoleUser, &orgID, false)

	r := NewResolver(&fakeUserStore{}, &fakeOrgStore{})
	_, err := r.Resolve(context.Background(), &Credential{Method: MethodUserKey, User: user})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeAccountDisabled, apperr.CodeOf(err))
}

func TestResolveDisabledOrganization(t *testing.T) {
	orgID := uuid.New()
	user := newTestUser(models.RoleUser, &orgID, true)
	disabled := activeOrg(orgID)
	disabled.IsActive = false
	orgs := &fakeOrgStore{byID: map[uuid.UUID]*models.Organization{orgID: disabled}}

	r := NewResolver(&fakeUserStore{}, orgs)
	_, err := r.Resolve(context.Background(), &Credential{Method: MethodUserKey, User: user})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeAccountDisabled, apperr.CodeOf(err))
}

func TestResolveJWT(t *testing.T) {
	orgID := uuid.New()
	user := newTestUser(models.RoleAdmin, &orgID, true)
	users := &fakeUserStore{byID: map[uuid.UUID]*models.User{user.ID: user}}
	orgs := &fakeOrgStore{byID: map[uuid.UUID]*models.Organization{orgID: activeOrg(orgID)}}

	r := NewResolver(users, orgs)
	claims := &Claims{UserID: user.ID, OrganizationID: &orgID, Role: user.Role}
	sc, err := r.Resolve(context.Background(), &Credential{Method: MethodJWT, Claims: claims})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, sc.Role)
	assert.Equal(t, MethodJWT, sc.Method)
	require.NotNil(t, sc.OrganizationID)
	assert.Equal(t, orgID, *sc.OrganizationID)
}

func TestResolveJWTUnknownUser(t *testing.T) {
	r := NewResolver(&fakeUserStore{}, &fakeOrgStore{})
	claims := &Claims{UserID: uuid.New()}
	_, err := r.Resolve(context.Background(), &Credential{Method: MethodJWT, Claims: claims})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))
}

func TestResolveJWTOrganizationMismatch(t *testing.T) {
	orgID := uuid.New()
	otherOrg := uuid.New()
	user := newTestUser(models.RoleUser, &orgID, true)
	users := &fakeUserStore{byID: map[uuid.UUID]*models.User{user.ID: user}}
	orgs := &fakeOrgStore{byID: map[uuid.UUID]*models.Organization{orgID: activeOrg(orgID)}}

	r := NewResolver(users, orgs)

	// Token minted before the user moved tenants must not resolve.
	claims := &Claims{UserID: user.ID, OrganizationID: &otherOrg, Role: user.Role}
	_, err := r.Resolve(context.Background(), &Credential{Method: MethodJWT, Claims: claims})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))
}

func TestResolveSuperadminUnbound(t *testing.T) {
	super := newTestUser(models.RoleSuperadmin, nil, true)
	users := &fakeUserStore{byID: map[uuid.UUID]*models.User{super.ID: super}}

	r := NewResolver(users, &fakeOrgStore{})
	claims := &Claims{UserID: super.ID, Role: models.RoleSuperadmin}
	sc, err := r.Resolve(context.Background(), &Credential{Method: MethodJWT, Claims: claims})
	require.NoError(t, err)
	assert.True(t, sc.Superadmin())
	assert.Nil(t, sc.OrganizationID)
}

func TestResolveSuperadminWithChosenOrganization(t *testing.T) {
	orgID := uuid.New()
	super := newTestUser(models.RoleSuperadmin, nil, true)
	users := &fakeUserStore{byID: map[uuid.UUID]*models.User{super.ID: super}}
	orgs := &fakeOrgStore{byID: map[uuid.UUID]*models.Organization{orgID: activeOrg(orgID)}}

	r := NewResolver(users, orgs)
	claims := &Claims{UserID: super.ID, OrganizationID: &orgID, Role: models.RoleSuperadmin}
	sc, err := r.Resolve(context.Background(), &Credential{Method: MethodJWT, Claims: claims})
	require.NoError(t, err)
	assert.True(t, sc.Superadmin())
	require.NotNil(t, sc.OrganizationID)
	assert.Equal(t, orgID, *sc.OrganizationID)
}

func TestResolveOrganizationKey(t *testing.T) {
	org := activeOrg(uuid.New())

	r := NewResolver(&fakeUserStore{}, &fakeOrgStore{})
	sc, err := r.Resolve(context.Background(), &Credential{Method: MethodOrgKey, Org: org})
	require.NoError(t, err)
	assert.Nil(t, sc.SubjectID)
	assert.False(t, sc.HasSubject())
	require.NotNil(t, sc.OrganizationID)
	assert.Equal(t, org.ID, *sc.OrganizationID)
	assert.Equal(t, models.RoleAdmin, sc.Role)
	assert.Equal(t, MethodOrgKey, sc.Method)
}

func TestResolveOrganizationKeyDisabled(t *testing.T) {
	org := activeOrg(uuid.New())
	org.IsActive = false

	r := NewResolver(&fakeUserStore{}, &fakeOrgStore{})
	_, err := r.Resolve(context.Background(), &Credential{Method: MethodOrgKey, Org: org})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeAccountDisabled, apperr.CodeOf(err))
}
