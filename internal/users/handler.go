package users

import (
	"context"
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
	"github.com/chatvault/backend/pkg/response"
	"github.com/chatvault/backend/pkg/utils"
)

var userSortable = map[string]string{
	"createdAt": "created_at",
	"email":     "email",
	"fullName":  "full_name",
}

// CreateRequest is the body for POST /v1/users.
type CreateRequest struct {
	Email          string      `json:"email" binding:"required,email"`
	Password       string      `json:"password" binding:"required,min=8"`
	FullName       string      `json:"full_name" binding:"required"`
	Role           models.Role `json:"role"`
	OrganizationID *uuid.UUID  `json:"organization_id"`
}

// UpdateRequest is the body for PATCH /v1/users/:id.
type UpdateRequest struct {
	FullName *string      `json:"full_name"`
	Role     *models.Role `json:"role"`
	IsActive *bool        `json:"is_active"`
}

// RotateResponse returns a freshly rotated API key, shown once.
type RotateResponse struct {
	User   models.UserPublic `json:"user"`
	APIKey string            `json:"api_key"`
}

// Store is the persistence interface the handler needs. Implemented by
// Repository.
type Store interface {
	Create(ctx context.Context, u *models.User) error
	GetOne(ctx context.Context, f *tenancy.Filter) (*models.User, error)
	GetByEmail(ctx context.Context, f *tenancy.Filter, email string) (*models.User, error)
	List(ctx context.Context, f *tenancy.Filter, p pagination.Params) ([]models.User, int64, error)
	Update(ctx context.Context, f *tenancy.Filter, upd UserUpdate) (*models.User, error)
	UpdateAPIKeyHash(ctx context.Context, f *tenancy.Filter, hash string) (*models.User, error)
	Delete(ctx context.Context, f *tenancy.Filter) (bool, error)
}

// Handler handles user management endpoints. All admin routes are scoped
// to the caller's organization; only an unbound superadmin sees across
// tenants.
type Handler struct {
	repo   Store
	logger *zap.Logger
}

// NewHandler creates a users handler.
func NewHandler(repo Store, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /v1/users (admin).
func (h *Handler) List(c *gin.Context) {
	sc := middleware.Security(c)
	p, err := pagination.Parse(c, userSortable)
	if err != nil {
		response.Error(c, err)
		return
	}

	f := tenancy.NewFilter()
	if q := c.Query("query"); q != "" {
		f.Search("email", q)
	}
	if raw := c.Query("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, apperr.InvalidQuery("invalid is_active parameter"))
			return
		}
		f.Eq("is_active", active)
	}
	if role := c.Query("role"); role != "" {
		if !models.Role(role).Valid() {
			response.Error(c, apperr.InvalidQuery("invalid role parameter"))
			return
		}
		f.Eq("role", role)
	}

	items, total, err := h.repo.List(c.Request.Context(), tenancy.Scope(sc, f), p)
	if err != nil {
		response.Error(c, apperr.Internal("failed to list users", err))
		return
	}
	public := make([]models.UserPublic, 0, len(items))
	for i := range items {
		public = append(public, items[i].ToPublic())
	}
	response.OK(c, pagination.NewResult(public, total, p))
}

// Create handles POST /v1/users (admin).
func (h *Handler) Create(c *gin.Context) {
	sc := middleware.Security(c)
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperr.InvalidQuery("invalid request: "+err.Error()))
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		response.Error(c, apperr.InvalidQuery("invalid role"))
		return
	}
	if role == models.RoleSuperadmin && !sc.Superadmin() {
		response.Error(c, apperr.Forbidden("only superadmins can create superadmins"))
		return
	}

	orgID, err := targetOrganization(sc, req.OrganizationID)
	if err != nil {
		response.Error(c, err)
		return
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Error(c, apperr.Internal("failed to hash password", err))
		return
	}

	existing, err := h.repo.GetByEmail(c.Request.Context(), tenancy.NewFilter(), req.Email)
	if err != nil {
		response.Error(c, apperr.Internal("failed to check email", err))
		return
	}
	if existing != nil {
		response.Error(c, apperr.InvalidQuery("email already registered"))
		return
	}

	u := &models.User{
		OrganizationID: orgID,
		Email:          req.Email,
		Password:       hashed,
		FullName:       req.FullName,
		Role:           role,
		IsActive:       true,
	}
	if err := h.repo.Create(c.Request.Context(), u); err != nil {
		response.Error(c, apperr.Internal("failed to create user", err))
		return
	}

	h.logger.Info("user created", zap.String("user_id", u.ID.String()))
	response.Created(c, u.ToPublic())
}

// GetByID handles GET /v1/users/:id (admin).
func (h *Handler) GetByID(c *gin.Context) {
	sc := middleware.Security(c)
	f, err := scopedByID(sc, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	u, err := h.repo.GetOne(c.Request.Context(), f)
	if err != nil {
		response.Error(c, apperr.Internal("failed to fetch user", err))
		return
	}
	if u == nil {
		response.Error(c, apperr.NotFound("user not found"))
		return
	}
	response.OK(c, u.ToPublic())
}

// Update handles PATCH /v1/users/:id (admin).
func (h *Handler) Update(c *gin.Context) {
	sc := middleware.Security(c)
	f, err := scopedByID(sc, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperr.InvalidQuery("invalid request: "+err.Error()))
		return
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			response.Error(c, apperr.InvalidQuery("invalid role"))
			return
		}
		if *req.Role == models.RoleSuperadmin && !sc.Superadmin() {
			response.Error(c, apperr.Forbidden("only superadmins can grant the superadmin role"))
			return
		}
	}
	u, err := h.repo.Update(c.Request.Context(), f, UserUpdate{
		FullName: req.FullName,
		Role:     req.Role,
		IsActive: req.IsActive,
	})
	if err != nil {
		response.Error(c, apperr.Internal("failed to update user", err))
		return
	}
	if u == nil {
		response.Error(c, apperr.NotFound("user not found"))
		return
	}
	response.OK(c, u.ToPublic())
}

// Delete handles DELETE /v1/users/:id (admin).
func (h *Handler) Delete(c *gin.Context) {
	sc := middleware.Security(c)
	f, err := scopedByID(sc, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	ok, err := h.repo.Delete(c.Request.Context(), f)
	if err != nil {
		response.Error(c, apperr.Internal("failed to delete user", err))
		return
	}
	if !ok {
		response.Error(c, apperr.NotFound("user not found"))
		return
	}
	response.NoContent(c)
}

// RotateAPIKey handles POST /v1/users/:id/api-key (admin). The old key
// stops working immediately.
func (h *Handler) RotateAPIKey(c *gin.Context) {
	sc := middleware.Security(c)
	f, err := scopedByID(sc, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.rotate(c, f)
}

// Me handles GET /v1/users/me: the caller's own record. Requires a
// subject, so organization keys are rejected upstream.
func (h *Handler) Me(c *gin.Context) {
	sc := middleware.Security(c)
	u, err := h.repo.GetOne(c.Request.Context(), tenancy.NewFilter().Eq("id", *sc.SubjectID))
	if err != nil {
		response.Error(c, apperr.Internal("failed to fetch user", err))
		return
	}
	if u == nil {
		response.Error(c, apperr.NotFound("user not found"))
		return
	}
	response.OK(c, u.ToPublic())
}

// RotateMyAPIKey handles POST /v1/users/me/api-key.
func (h *Handler) RotateMyAPIKey(c *gin.Context) {
	sc := middleware.Security(c)
	h.rotate(c, tenancy.NewFilter().Eq("id", *sc.SubjectID))
}

func (h *Handler) rotate(c *gin.Context, f *tenancy.Filter) {
	key, err := utils.GenerateAPIKey()
	if err != nil {
		response.Error(c, apperr.Internal("failed to generate API key", err))
		return
	}
	u, err := h.repo.UpdateAPIKeyHash(c.Request.Context(), f, utils.HashAPIKey(key))
	if err != nil {
		response.Error(c, apperr.Internal("failed to rotate API key", err))
		return
	}
	if u == nil {
		response.Error(c, apperr.NotFound("user not found"))
		return
	}
	h.logger.Info("user API key rotated", zap.String("user_id", u.ID.String()))
	response.OK(c, RotateResponse{User: u.ToPublic(), APIKey: key})
}

func scopedByID(sc auth.SecurityContext, raw string) (*tenancy.Filter, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.InvalidQuery("invalid user id")
	}
	return tenancy.Scope(sc, tenancy.NewFilter().Eq("id", id)), nil
}

func targetOrganization(sc auth.SecurityContext, requested *uuid.UUID) (*uuid.UUID, error) {
	if sc.HasOrganization() {
		return sc.OrganizationID, nil
	}
	if requested == nil {
		return nil, apperr.InvalidQuery("organization_id is required")
	}
	return requested, nil
}
