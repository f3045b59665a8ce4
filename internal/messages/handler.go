package messages

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/chatvault/backend/internal/auth"
	"github.com/chatvault/backend/internal/middleware"
	"github.com/chatvault/backend/internal/models"
	"github.com/chatvault/backend/internal/tenancy"
	"github.com/chatvault/backend/pkg/apperr"
	"github.com/chatvault/backend/pkg/pagination"
	"github.com/chatvault/backend/pkg/response"
)

var messageSortable = map[string]string{
	"createdAt": "created_at",
}

// ChatGetter resolves the parent chat through the tenancy guard; a scoped
// miss means the caller has no business knowing whether the chat exists.
type ChatGetter interface {
	GetOne(ctx context.Context, f *tenancy.Filter) (*models.Chat, error)
}

// Broadcaster pushes a realtime event to a chat's live subscribers.
type Broadcaster interface {
	BroadcastToChat(chatID uuid.UUID, event string, payload interface{})
}

// CreateRequest is the body for POST /v1/chats/:id/messages.
type CreateRequest struct {
	Role    models.MessageRole `json:"role" binding:"required"`
	Content string             `json:"content" binding:"required"`
	Tokens  int                `json:"tokens"`
}

// Handler handles message HTTP endpoints.
type Handler struct {
	store Store
	chats ChatGetter
	hub   Broadcaster
}

// NewHandler creates a messages handler.
func NewHandler(store Store, chats ChatGetter, hub Broadcaster) *Handler {
	return &Handler{store: store, chats: chats, hub: hub}
}

// resolveChat fetches the parent chat through the scoped filter.
func (h *Handler) resolveChat(c *gin.Context, sc auth.SecurityContext) (*models.Chat, bool) {
	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperr.InvalidQuery("invalid chat id"))
		return nil, false
	}
	ch, err := h.chats.GetOne(c.Request.Context(), tenancy.ScopeOwned(sc, tenancy.NewFilter().Eq("id", chatID)))
	if err != nil {
		response.Error(c, apperr.Internal("failed to fetch chat", err))
		return nil, false
	}
	if ch == nil {
		response.Error(c, apperr.NotFound("chat not found"))
		return nil, false
	}
	return ch, true
}

// Create handles POST /v1/chats/:id/messages.
func (h *Handler) Create(c *gin.Context) {
	sc := middleware.Security(c)
	ch, ok := h.resolveChat(c, sc)
	if !ok {
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperr.InvalidQuery("invalid request: "+err.Error()))
		return
	}
	if !req.Role.Valid() {
		response.Error(c, apperr.InvalidQuery("invalid message role"))
		return
	}

	// Tenancy columns come from the parent chat, never from the request.
	m := &models.Message{
		ChatID:         ch.ID,
		OrganizationID: ch.OrganizationID,
		OwnerID:        ch.OwnerID,
		Role:           req.Role,
		Content:        req.Content,
		Tokens:         req.Tokens,
	}
	if err := h.store.Create(c.Request.Context(), m); err != nil {
		response.Error(c, apperr.Internal("failed to log message", err))
		return
	}

	if h.hub != nil {
		h.hub.BroadcastToChat(ch.ID, "message.created", m)
	}
	response.Created(c, m)
}

// ListByChat handles GET /v1/chats/:id/messages.
func (h *Handler) ListByChat(c *gin.Context) {
	sc := middleware.Security(c)
	ch, ok := h.resolveChat(c, sc)
	if !ok {
		return
	}

	p, err := pagination.Parse(c, messageSortable)
	if err != nil {
		response.Error(c, err)
		return
	}

	f := tenancy.NewFilter().Eq("chat_id", ch.ID)
	if role := c.Query("role"); role != "" {
		if !models.MessageRole(role).Valid() {
			response.Error(c, apperr.InvalidQuery("invalid role parameter"))
			return
		}
		f.Eq("role", role)
	}

	items, total, err := h.store.List(c.Request.Context(), tenancy.Scope(sc, f), p)
	if err != nil {
		response.Error(c, apperr.Internal("failed to list messages", err))
		return
	}
	response.OK(c, pagination.NewResult(items, total, p))
}

// GetByID handles GET /v1/messages/:id.
func (h *Handler) GetByID(c *gin.Context) {
	sc := middleware.Security(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperr.InvalidQuery("invalid message id"))
		return
	}

	m, err := h.store.GetOne(c.Request.Context(), tenancy.ScopeOwned(sc, tenancy.NewFilter().Eq("id", id)))
	if err != nil {
		response.Error(c, apperr.Internal("failed to fetch message", err))
		return
	}
	if m == nil {
		response.Error(c, apperr.NotFound("message not found"))
		return
	}
	response.OK(c, m)
}
