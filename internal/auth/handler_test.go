package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chatvault/backend/internal/models"
	"github.com/chatvault/backend/pkg/utils"
)

type fakeAccounts struct {
	users    []*models.User
	emailErr error
}

func (s *fakeAccounts) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if s.emailErr != nil {
		return nil, s.emailErr
	}
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (s *fakeAccounts) Create(_ context.Context, u *models.User) error {
	u.ID = uuid.New()
	s.users = append(s.users, u)
	return nil
}

type fakeOrgCreator struct {
	orgs    []*models.Organization
	slugErr error
}

func (s *fakeOrgCreator) GetBySlug(_ context.Context, slug string) (*models.Organization, error) {
	if s.slugErr != nil {
		return nil, s.slugErr
	}
	for _, org := range s.orgs {
		if org.Slug == slug {
			return org, nil
		}
	}
	return nil, nil
}

func (s *fakeOrgCreator) Create(_ context.Context, org *models.Organization) error {
	org.ID = uuid.New()
	s.orgs = append(s.orgs, org)
	return nil
}

func authRouter(accounts AccountStore, orgs OrganizationCreator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(accounts, orgs, NewJWTService("test-secret", 1), 365, zap.NewNop())
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	return rec
}

func registerBody() map[string]string {
	return map[string]string{
		"organization_name": "Acme Logs",
		"email":             "admin@acme.test",
		"password":          "password123",
		"full_name":         "Acme Admin",
	}
}

func TestRegisterCreatesOrganizationAndAdmin(t *testing.T) {
	accounts := &fakeAccounts{}
	orgs := &fakeOrgCreator{}
	rec := postJSON(t, authRouter(accounts, orgs), "/auth/register", registerBody())

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp RegisterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.OrganizationAPIKey, "organization key is returned once at signup")
	assert.Equal(t, "acme-logs", resp.Organization.Slug)

	require.Len(t, accounts.users, 1)
	admin := accounts.users[0]
	assert.Equal(t, models.RoleAdmin, admin.Role)
	require.NotNil(t, admin.OrganizationID)
	assert.Equal(t, resp.Organization.ID, *admin.OrganizationID)
	assert.Equal(t, utils.HashAPIKey(resp.OrganizationAPIKey), orgs.orgs[0].APIKeyHash)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	accounts := &fakeAccounts{users: []*models.User{{Email: "admin@acme.test"}}}
	orgs := &fakeOrgCreator{}
	rec := postJSON(t, authRouter(accounts, orgs), "/auth/register", registerBody())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, orgs.orgs)
}

func TestRegisterSlugTaken(t *testing.T) {
	accounts := &fakeAccounts{}
	orgs := &fakeOrgCreator{orgs: []*models.Organization{{Slug: "acme-logs"}}}
	rec := postJSON(t, authRouter(accounts, orgs), "/auth/register", registerBody())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, orgs.orgs, 1)
	assert.Empty(t, accounts.users)
}

func TestRegisterSlugLookupFailureDoesNotCreate(t *testing.T) {
	accounts := &fakeAccounts{}
	orgs := &fakeOrgCreator{slugErr: errors.New("connection reset")}
	rec := postJSON(t, authRouter(accounts, orgs), "/auth/register", registerBody())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, orgs.orgs, "a failed slug check must not fall through to the insert")
	assert.Empty(t, accounts.users)
}

func TestLogin(t *testing.T) {
	hash, err := utils.HashPassword("password123")
	require.NoError(t, err)
	orgID := uuid.New()
	accounts := &fakeAccounts{users: []*models.User{{
		ID:             uuid.New(),
		OrganizationID: &orgID,
		Email:          "admin@acme.test",
		Password:       hash,
		Role:           models.RoleAdmin,
		IsActive:       true,
	}}}
	r := authRouter(accounts, &fakeOrgCreator{})

	rec := postJSON(t, r, "/auth/login", map[string]string{
		"email":    "admin@acme.test",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)

	rec = postJSON(t, r, "/auth/login", map[string]string{
		"email":    "admin@acme.test",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
