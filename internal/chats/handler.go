package chats

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chatvault/backend/internal/auth"
	"github.com/chatvault/backend/internal/middleware"
	"github.com/chatvault/backend/internal/models"
	"github.com/chatvault/backend/internal/tenancy"
	"github.com/chatvault/backend/pkg/apperr"
	"github.com/chatvault/backend/pkg/pagination"
	"github.com/chatvault/backend/pkg/queue"
	"github.com/chatvault/backend/pkg/response"
)

// chatSortable maps sortable API fields to columns.
var chatSortable = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"title":     "title",
}

// PurgeEnqueuer schedules asynchronous cleanup of a deleted chat.
type PurgeEnqueuer interface {
	EnqueueChatPurge(ctx context.Context, payload queue.ChatPurgePayload) error
}

// CreateRequest is the body for POST /v1/chats. OrganizationID is honored
// only for contexts without a tenant (superadmins), which must name their
// target organization explicitly.
type CreateRequest struct {
	Title          string          `json:"title" binding:"required"`
	Source         string          `json:"source"`
	Tags           []string        `json:"tags"`
	Metadata       json.RawMessage `json:"metadata"`
	OrganizationID *uuid.UUID      `json:"organization_id"`
}

// UpdateRequest is the body for PATCH /v1/chats/:id.
type UpdateRequest struct {
	Title    *string         `json:"title"`
	Source   *string         `json:"source"`
	Tags     []string        `json:"tags"`
	Metadata json.RawMessage `json:"metadata"`
	IsActive *bool           `json:"is_active"`
}

// Handler handles chat HTTP endpoints.
type Handler struct {
	store  Store
	purger PurgeEnqueuer
	logger *zap.Logger
}

// NewHandler creates a chats handler.
func NewHandler(store Store, purger PurgeEnqueuer, logger *zap.Logger) *Handler {
	return &Handler{store: store, purger: purger, logger: logger}
}

// List handles GET /v1/chats.
func (h *Handler) List(c *gin.Context) {
	sc := middleware.Security(c)

	p, err := pagination.Parse(c, chatSortable)
	if err != nil {
		response.Error(c, err)
		return
	}

	f := tenancy.NewFilter()
	if q := c.Query("query"); q != "" {
		f.Search("title", q)
	}
	if tag := c.Query("tag"); tag != "" {
		f.HasElem("tags", tag)
	}
	if raw := c.Query("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, apperr.InvalidQuery("invalid is_active parameter"))
			return
		}
		f.Eq("is_active", active)
	}

	items, total, err := h.store.List(c.Request.Context(), tenancy.ScopeOwned(sc, f), p)
	if err != nil {
		response.Error(c, apperr.Internal("failed to list chats", err))
		return
	}
	response.OK(c, pagination.NewResult(items, total, p))
}

// Create handles POST /v1/chats.
func (h *Handler) Create(c *gin.Context) {
	sc := middleware.Security(c)

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperr.InvalidQuery("invalid request: "+err.Error()))
		return
	}

	orgID, err := targetOrganization(sc, req.OrganizationID)
	if err != nil {
		response.Error(c, err)
		return
	}

	ch := &models.Chat{
		OrganizationID: orgID,
		OwnerID:        sc.SubjectID,
		Title:          req.Title,
		Source:         req.Source,
		Tags:           req.Tags,
		Metadata:       req.Metadata,
		IsActive:       true,
	}
	if err := h.store.Create(c.Request.Context(), ch); err != nil {
		response.Error(c, apperr.Internal("failed to create chat", err))
		return
	}
	response.Created(c, ch)
}

// GetByID handles GET /v1/chats/:id.
func (h *Handler) GetByID(c *gin.Context) {
	sc := middleware.Security(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperr.InvalidQuery("invalid chat id"))
		return
	}

	ch, err := h.store.GetOne(c.Request.Context(), scopedByID(sc, id))
	if err != nil {
		response.Error(c, apperr.Internal("failed to fetch chat", err))
		return
	}
	if ch == nil {
		response.Error(c, apperr.NotFound("chat not found"))
		return
	}
	response.OK(c, ch)
}

// Update handles PATCH /v1/chats/:id.
func (h *Handler) Update(c *gin.Context) {
	sc := middleware.Security(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperr.InvalidQuery("invalid chat id"))
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperr.InvalidQuery("invalid request: "+err.Error()))
		return
	}

	ch, err := h.store.Update(c.Request.Context(), scopedByID(sc, id), ChatUpdate{
		Title:    req.Title,
		Source:   req.Source,
		Tags:     req.Tags,
		Metadata: req.Metadata,
		IsActive: req.IsActive,
	})
	if err != nil {
		response.Error(c, apperr.Internal("failed to update chat", err))
		return
	}
	if ch == nil {
		response.Error(c, apperr.NotFound("chat not found"))
		return
	}
	response.OK(c, ch)
}

// Delete handles DELETE /v1/chats/:id. The row is removed synchronously;
// messages and S3 attachments are purged by the background worker.
func (h *Handler) Delete(c *gin.Context) {
	sc := middleware.Security(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperr.InvalidQuery("invalid chat id"))
		return
	}

	ch, err := h.store.Delete(c.Request.Context(), scopedByID(sc, id))
	if err != nil {
		response.Error(c, apperr.Internal("failed to delete chat", err))
		return
	}
	if ch == nil {
		response.Error(c, apperr.NotFound("chat not found"))
		return
	}

	if h.purger != nil {
		if err := h.purger.EnqueueChatPurge(c.Request.Context(), queue.ChatPurgePayload{
			ChatID:         ch.ID,
			OrganizationID: ch.OrganizationID,
		}); err != nil {
			h.logger.Error("enqueue chat purge failed",
				zap.String("chat_id", ch.ID.String()), zap.Error(err))
		}
	}
	response.NoContent(c)
}

// scopedByID builds the tenancy-scoped single-resource filter. A chat that
// exists under another organization misses this filter and surfaces as
// NotFound, never Forbidden.
func scopedByID(sc auth.SecurityContext, id uuid.UUID) *tenancy.Filter {
	return tenancy.ScopeOwned(sc, tenancy.NewFilter().Eq("id", id))
}

// targetOrganization picks the organization a new resource belongs to.
// Tenant-bound contexts always use their own organization; an unbound
// superadmin must name one explicitly.
func targetOrganization(sc auth.SecurityContext, explicit *uuid.UUID) (uuid.UUID, error) {
	if sc.HasOrganization() {
		return *sc.OrganizationID, nil
	}
	if explicit == nil {
		return uuid.Nil, apperr.InvalidQuery("organization_id is required")
	}
	return *explicit, nil
}
