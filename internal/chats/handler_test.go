package chats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
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
	"github.com/chatvault/backend/pkg/queue"
)

// fakeStore keeps chats in memory and interprets scoped filters the way
// the SQL repository renders them.
type fakeStore struct {
	chats []*models.Chat
}

func (s *fakeStore) matches(ch *models.Chat, f *tenancy.Filter) bool {
	for _, cond := range f.Conditions() {
		switch {
		case cond.Column == "id" && cond.Op == tenancy.OpEq:
			if ch.ID != cond.Value.(uuid.UUID) {
				return false
			}
		case cond.Column == tenancy.ColumnOrganizationID && cond.Op == tenancy.OpEq:
			if ch.OrganizationID != cond.Value.(uuid.UUID) {
				return false
			}
		case cond.Column == tenancy.ColumnOwnerID && cond.Op == tenancy.OpEq:
			if ch.OwnerID == nil || *ch.OwnerID != cond.Value.(uuid.UUID) {
				return false
			}
		case cond.Column == "is_active" && cond.Op == tenancy.OpEq:
			if ch.IsActive != cond.Value.(bool) {
				return false
			}
		case cond.Column == "title" && cond.Op == tenancy.OpILike:
			if !strings.Contains(strings.ToLower(ch.Title), strings.ToLower(cond.Value.(string))) {
				return false
			}
		case cond.Column == "tags" && cond.Op == tenancy.OpAnyElem:
			found := false
			for _, tag := range ch.Tags {
				if tag == cond.Value.(string) {
					found = true
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func (s *fakeStore) Create(_ context.Context, ch *models.Chat) error {
	ch.ID = uuid.New()
	s.chats = append(s.chats, ch)
	return nil
}

func (s *fakeStore) GetOne(_ context.Context, f *tenancy.Filter) (*models.Chat, error) {
	for _, ch := range s.chats {
		if s.matches(ch, f) {
			return ch, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) List(_ context.Context, f *tenancy.Filter, p pagination.Params) ([]models.Chat, int64, error) {
	var all []models.Chat
	for _, ch := range s.chats {
		if s.matches(ch, f) {
			all = append(all, *ch)
		}
	}
	total := int64(len(all))
	start := p.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + p.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (s *fakeStore) Update(_ context.Context, f *tenancy.Filter, upd ChatUpdate) (*models.Chat, error) {
	for _, ch := range s.chats {
		if s.matches(ch, f) {
			if upd.Title != nil {
				ch.Title = *upd.Title
			}
			if upd.IsActive != nil {
				ch.IsActive = *upd.IsActive
			}
			return ch, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) Delete(_ context.Context, f *tenancy.Filter) (*models.Chat, error) {
	for i, ch := range s.chats {
		if s.matches(ch, f) {
			s.chats = append(s.chats[:i], s.chats[i+1:]...)
			return ch, nil
		}
	}
	return nil, nil
}

type fakePurger struct {
	payloads []queue.ChatPurgePayload
}

func (p *fakePurger) EnqueueChatPurge(_ context.Context, payload queue.ChatPurgePayload) error {
	p.payloads = append(p.payloads, payload)
	return nil
}

func chatRouter(store Store, purger PurgeEnqueuer, sc auth.SecurityContext) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, purger, zap.NewNop())
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(middleware.ContextSecurity, sc) })
	r.GET("/chats", h.List)
	r.POST("/chats", h.Create)
	r.GET("/chats/:id", h.GetByID)
	r.PATCH("/chats/:id", h.Update)
	r.DELETE("/chats/:id", h.Delete)
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

func seedChat(store *fakeStore, orgID uuid.UUID, ownerID *uuid.UUID, title string, tags ...string) *models.Chat {
	ch := &models.Chat{
		ID:             uuid.New(),
		OrganizationID: orgID,
		OwnerID:        ownerID,
		Title:          title,
		Tags:           tags,
		IsActive:       true,
	}
	store.chats = append(store.chats, ch)
	return ch
}

func TestListScopedToOrganization(t *testing.T) {
	store := &fakeStore{}
	orgA := uuid.New()
	orgB := uuid.New()
	seedChat(store, orgA, nil, "support thread")
	seedChat(store, orgA, nil, "billing thread")
	seedChat(store, orgB, nil, "other tenant thread")

	r := chatRouter(store, nil, adminContext(orgA))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/chats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var env pagination.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, int64(2), env.TotalResults)
}

func TestListPlainUserSeesOnlyOwned(t *testing.T) {
	store := &fakeStore{}
	orgID := uuid.New()
	me := uuid.New()
	other := uuid.New()
	seedChat(store, orgID, &me, "mine")
	seedChat(store, orgID, &other, "theirs")

	sc := auth.SecurityContext{
		SubjectID:      &me,
		OrganizationID: &orgID,
		Role:           models.RoleUser,
		Method:         auth.MethodUserKey,
	}
	r := chatRouter(store, nil, sc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/chats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var env pagination.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, int64(1), env.TotalResults)
}

func TestListPaginationEnvelope(t *testing.T) {
	store := &fakeStore{}
	orgID := uuid.New()
	for i := 0; i < 25; i++ {
		seedChat(store, orgID, nil, fmt.Sprintf("chat %d", i))
	}

	r := chatRouter(store, nil, adminContext(orgID))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/chats?page=2&limit=10", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var env struct {
		Results      []models.Chat `json:"results"`
		Page         int           `json:"page"`
		TotalResults int64         `json:"totalResults"`
		TotalPages   int           `json:"totalPages"`
		HasNext      bool          `json:"hasNext"`
		HasPrev      bool          `json:"hasPrev"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Len(t, env.Results, 10)
	assert.Equal(t, 2, env.Page)
	assert.Equal(t, int64(25), env.TotalResults)
	assert.Equal(t, 3, env.TotalPages)
	assert.True(t, env.HasNext)
	assert.True(t, env.HasPrev)
}

func TestListFilters(t *testing.T) {
	store := &fakeStore{}
	orgID := uuid.New()
	seedChat(store, orgID, nil, "incident review", "prod")
	seedChat(store, orgID, nil, "standup notes", "internal")

	r := chatRouter(store, nil, adminContext(orgID))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/chats?query=incident", nil))
	var env pagination.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, int64(1), env.TotalResults)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/chats?tag=internal", nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, int64(1), env.TotalResults)
}

func TestGetByIDCrossTenantIsNotFound(t *testing.T) {
	store := &fakeStore{}
	orgA := uuid.New()
	orgB := uuid.New()
	foreign := seedChat(store, orgB, nil, "foreign")

	r := chatRouter(store, nil, adminContext(orgA))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/chats/"+foreign.ID.String(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetByIDOwnTenant(t *testing.T) {
	store := &fakeStore{}
	orgID := uuid.New()
	ch := seedChat(store, orgID, nil, "ours")

	r := chatRouter(store, nil, adminContext(orgID))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/chats/"+ch.ID.String(), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), ch.ID.String())
}

func TestCreateUsesCallerOrganization(t *testing.T) {
	store := &fakeStore{}
	orgID := uuid.New()
	foreign := uuid.New()

	r := chatRouter(store, nil, adminContext(orgID))
	body, _ := json.Marshal(map[string]interface{}{
		"title":           "new chat",
		"organization_id": foreign,
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/chats", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	// The caller-supplied organization must be ignored for bound contexts.
	require.Len(t, store.chats, 1)
	assert.Equal(t, orgID, store.chats[0].OrganizationID)
}

func TestCreateUnboundSuperadminRequiresOrganization(t *testing.T) {
	store := &fakeStore{}
	subject := uuid.New()
	sc := auth.SecurityContext{
		SubjectID: &subject,
		Role:      models.RoleSuperadmin,
		Method:    auth.MethodJWT,
	}

	r := chatRouter(store, nil, sc)
	body, _ := json.Marshal(map[string]string{"title": "orphan"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/chats", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateCrossTenantIsNotFound(t *testing.T) {
	store := &fakeStore{}
	orgA := uuid.New()
	orgB := uuid.New()
	foreign := seedChat(store, orgB, nil, "foreign")

	r := chatRouter(store, nil, adminContext(orgA))
	body, _ := json.Marshal(map[string]string{"title": "hijacked"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("PATCH", "/chats/"+foreign.ID.String(), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "foreign", foreign.Title)
}

func TestDeleteEnqueuesPurge(t *testing.T) {
	store := &fakeStore{}
	purger := &fakePurger{}
	orgID := uuid.New()
	ch := seedChat(store, orgID, nil, "doomed")

	r := chatRouter(store, purger, adminContext(orgID))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("DELETE", "/chats/"+ch.ID.String(), nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Empty(t, store.chats)
	require.Len(t, purger.payloads, 1)
	assert.Equal(t, ch.ID, purger.payloads[0].ChatID)
	assert.Equal(t, orgID, purger.payloads[0].OrganizationID)
}
