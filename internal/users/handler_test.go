package users

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

	"github.com/chatvault/backend/internal/auth"
	"github.com/chatvault/backend/internal/middleware"
	"github.com/chatvault/backend/internal/models"
	"github.com/chatvault/backend/internal/tenancy"
	"github.com/chatvault/backend/pkg/pagination"
)

// fakeUserStore keeps users in memory. emailErr simulates a store fault
// during the duplicate-email lookup.
type fakeUserStore struct {
	users    []*models.User
	emailErr error
}

func (s *fakeUserStore) Create(_ context.Context, u *models.User) error {
	u.ID = uuid.New()
	s.users = append(s.users, u)
	return nil
}

func (s *fakeUserStore) GetOne(_ context.Context, _ *tenancy.Filter) (*models.User, error) {
	return nil, nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, _ *tenancy.Filter, email string) (*models.User, error) {
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

func (s *fakeUserStore) List(_ context.Context, _ *tenancy.Filter, _ pagination.Params) ([]models.User, int64, error) {
	return nil, 0, nil
}

func (s *fakeUserStore) Update(_ context.Context, _ *tenancy.Filter, _ UserUpdate) (*models.User, error) {
	return nil, nil
}

func (s *fakeUserStore) UpdateAPIKeyHash(_ context.Context, _ *tenancy.Filter, _ string) (*models.User, error) {
	return nil, nil
}

func (s *fakeUserStore) Delete(_ context.Context, _ *tenancy.Filter) (bool, error) {
	return false, nil
}

func userRouter(store Store, sc auth.SecurityContext) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, zap.NewNop())
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(middleware.ContextSecurity, sc) })
	r.POST("/users", h.Create)
	return r
}

func adminContext(orgID uuid.UUID) auth.SecurityContext {
	subject := uuid.New()
	return auth.SecurityContext{
		SubjectID:      &subject,
		OrganizationID: &orgID,
		Role:           models.RoleAdmin,
		Method:         auth.MethodJWT,
	}
}

func postUser(t *testing.T, r *gin.Engine, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateUserScopedToCallerOrganization(t *testing.T) {
	orgID := uuid.New()
	store := &fakeUserStore{}
	r := userRouter(store, adminContext(orgID))

	otherOrg := uuid.New()
	rec := postUser(t, r, map[string]interface{}{
		"email":           "new@example.com",
		"password":        "password123",
		"full_name":       "New User",
		"organization_id": otherOrg,
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.users, 1)
	created := store.users[0]
	assert.Equal(t, models.RoleUser, created.Role, "role defaults to user")
	require.NotNil(t, created.OrganizationID)
	assert.Equal(t, orgID, *created.OrganizationID, "caller-supplied organization is ignored for bound contexts")
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	orgID := uuid.New()
	store := &fakeUserStore{users: []*models.User{{Email: "taken@example.com"}}}
	r := userRouter(store, adminContext(orgID))

	rec := postUser(t, r, map[string]interface{}{
		"email":     "taken@example.com",
		"password":  "password123",
		"full_name": "Dup",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, store.users, 1)
}

func TestCreateUserEmailLookupFailureDoesNotInsert(t *testing.T) {
	orgID := uuid.New()
	store := &fakeUserStore{emailErr: errors.New("connection reset")}
	r := userRouter(store, adminContext(orgID))

	rec := postUser(t, r, map[string]interface{}{
		"email":     "new@example.com",
		"password":  "password123",
		"full_name": "New User",
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, store.users, "a failed duplicate check must not fall through to the insert")
}

func TestCreateUserSuperadminGrantForbidden(t *testing.T) {
	orgID := uuid.New()
	store := &fakeUserStore{}
	r := userRouter(store, adminContext(orgID))

	rec := postUser(t, r, map[string]interface{}{
		"email":     "new@example.com",
		"password":  "password123",
		"full_name": "New User",
		"role":      "superadmin",
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, store.users)
}
