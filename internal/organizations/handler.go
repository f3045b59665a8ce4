package organizations

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chatvault/backend/internal/middleware"
	"github.com/chatvault/backend/internal/models"
	"github.com/chatvault/backend/internal/tenancy"
	"github.com/chatvault/backend/pkg/apperr"
	"github.com/chatvault/backend/pkg/pagination"
	"github.com/chatvault/backend/pkg/response"
	"github.com/chatvault/backend/pkg/utils"
)

var orgSortable = map[string]string{
	"createdAt": "created_at",
	"name":      "name",
}

// CreateRequest is the body for POST /v1/organizations (superadmin).
type CreateRequest struct {
	Name          string `json:"name" binding:"required"`
	Slug          string `json:"slug" binding:"required"`
	RetentionDays int    `json:"retention_days"`
}

// UpdateRequest is the body for PATCH /v1/organizations/:id.
type UpdateRequest struct {
	Name          *string `json:"name"`
	RetentionDays *int    `json:"retention_days"`
	IsActive      *bool   `json:"is_active"`
}

// CreateResponse returns the new organization and its API key, shown once.
type CreateResponse struct {
	Organization models.Organization `json:"organization"`
	APIKey       string              `json:"api_key"`
}

// Handler handles organization management endpoints. All routes except Me
// are superadmin-only; organizations are the tenants themselves, so these
// are the only endpoints that legitimately cross tenant lines.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates an organizations handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /v1/organizations (superadmin).
func (h *Handler) List(c *gin.Context) {
	p, err := pagination.Parse(c, orgSortable)
	if err != nil {
		response.Error(c, err)
		return
	}

	f := tenancy.NewFilter()
	if q := c.Query("query"); q != "" {
		f.Search("name", q)
	}
	if raw := c.Query("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, apperr.InvalidQuery("invalid is_active parameter"))
			return
		}
		f.Eq("is_active", active)
	}

	items, total, err := h.repo.List(c.Request.Context(), f, p)
	if err != nil {
		response.Error(c, apperr.Internal("failed to list organizations", err))
		return
	}
	response.OK(c, pagination.NewResult(items, total, p))
}

// Create handles POST /v1/organizations (superadmin).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperr.InvalidQuery("invalid request: "+err.Error()))
		return
	}

	taken, err := h.repo.GetBySlug(c.Request.Context(), req.Slug)
	if err != nil {
		response.Error(c, apperr.Internal("failed to check slug", err))
		return
	}
	if taken != nil {
		response.Error(c, apperr.InvalidQuery("slug already taken"))
		return
	}

	key, err := utils.GenerateAPIKey()
	if err != nil {
		response.Error(c, apperr.Internal("failed to generate API key", err))
		return
	}
	org := &models.Organization{
		Name:          req.Name,
		Slug:          req.Slug,
		APIKeyHash:    utils.HashAPIKey(key),
		RetentionDays: req.RetentionDays,
		IsActive:      true,
	}
	if err := h.repo.Create(c.Request.Context(), org); err != nil {
		response.Error(c, apperr.Internal("failed to create organization", err))
		return
	}

	h.logger.Info("organization created", zap.String("organization_id", org.ID.String()))
	response.Created(c, CreateResponse{Organization: *org, APIKey: key})
}

// GetByID handles GET /v1/organizations/:id (superadmin).
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperr.InvalidQuery("invalid organization id"))
		return
	}
	org, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, apperr.Internal("failed to fetch organization", err))
		return
	}
	if org == nil {
		response.Error(c, apperr.NotFound("organization not found"))
		return
	}
	response.OK(c, org)
}

// Update handles PATCH /v1/organizations/:id (superadmin).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperr.InvalidQuery("invalid organization id"))
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperr.InvalidQuery("invalid request: "+err.Error()))
		return
	}
	org, err := h.repo.Update(c.Request.Context(), id, OrgUpdate{
		Name:          req.Name,
		RetentionDays: req.RetentionDays,
		IsActive:      req.IsActive,
	})
	if err != nil {
		response.Error(c, apperr.Internal("failed to update organization", err))
		return
	}
	if org == nil {
		response.Error(c, apperr.NotFound("organization not found"))
		return
	}
	response.OK(c, org)
}

// Delete handles DELETE /v1/organizations/:id (superadmin).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperr.InvalidQuery("invalid organization id"))
		return
	}
	ok, err := h.repo.Delete(c.Request.Context(), id)
	if err != nil {
		response.Error(c, apperr.Internal("failed to delete organization", err))
		return
	}
	if !ok {
		response.Error(c, apperr.NotFound("organization not found"))
		return
	}
	response.NoContent(c)
}

// RotateAPIKey handles POST /v1/organizations/:id/api-key (superadmin).
// The old key stops working immediately.
func (h *Handler) RotateAPIKey(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperr.InvalidQuery("invalid organization id"))
		return
	}
	key, err := utils.GenerateAPIKey()
	if err != nil {
		response.Error(c, apperr.Internal("failed to generate API key", err))
		return
	}
	org, err := h.repo.UpdateAPIKeyHash(c.Request.Context(), id, utils.HashAPIKey(key))
	if err != nil {
		response.Error(c, apperr.Internal("failed to rotate API key", err))
		return
	}
	if org == nil {
		response.Error(c, apperr.NotFound("organization not found"))
		return
	}

	h.logger.Info("organization API key rotated", zap.String("organization_id", org.ID.String()))
	response.OK(c, CreateResponse{Organization: *org, APIKey: key})
}

// Me handles GET /v1/organizations/me: the caller's own organization.
func (h *Handler) Me(c *gin.Context) {
	sc := middleware.Security(c)
	if !sc.HasOrganization() {
		response.Error(c, apperr.NotFound("organization not found"))
		return
	}
	org, err := h.repo.GetByID(c.Request.Context(), *sc.OrganizationID)
	if err != nil {
		response.Error(c, apperr.Internal("failed to fetch organization", err))
		return
	}
	if org == nil {
		response.Error(c, apperr.NotFound("organization not found"))
		return
	}
	response.OK(c, org)
}
