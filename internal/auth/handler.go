package auth

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chatvault/backend/internal/models"
	"github.com/chatvault/backend/pkg/apperr"
	"github.com/chatvault/backend/pkg/response"
	"github.com/chatvault/backend/pkg/utils"
)

// OrganizationCreator persists new organizations during signup.
type OrganizationCreator interface {
	Create(ctx context.Context, org *models.Organization) error
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)
}

// AccountStore persists and looks up user accounts for signup and login.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
}

// RegisterRequest is the body for POST /v1/auth/register. Registration
// creates an organization and its first admin user.
type RegisterRequest struct {
	OrganizationName string `json:"organization_name" binding:"required"`
	Email            string `json:"email" binding:"required,email"`
	Password         string `json:"password" binding:"required,min=8"`
	FullName         string `json:"full_name" binding:"required"`
}

// LoginRequest is the body for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// RegisterResponse includes the organization API key, returned exactly
// once at signup.
type RegisterResponse struct {
	Token              string              `json:"token"`
	User               models.UserPublic   `json:"user"`
	Organization       models.Organization `json:"organization"`
	OrganizationAPIKey string              `json:"organization_api_key"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo          AccountStore
	orgs          OrganizationCreator
	jwt           *JWTService
	retentionDays int
	logger        *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo AccountStore, orgs OrganizationCreator, jwtService *JWTService, retentionDays int, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, orgs: orgs, jwt: jwtService, retentionDays: retentionDays, logger: logger}
}

// Register handles POST /v1/auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperr.InvalidQuery("invalid request: "+err.Error()))
		return
	}

	ctx := c.Request.Context()

	existing, err := h.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		response.Error(c, apperr.Internal("failed to check email", err))
		return
	}
	if existing != nil {
		response.Error(c, apperr.InvalidQuery("email already registered"))
		return
	}

	slug := slugify(req.OrganizationName)
	taken, err := h.orgs.GetBySlug(ctx, slug)
	if err != nil {
		response.Error(c, apperr.Internal("failed to check organization name", err))
		return
	}
	if taken != nil {
		response.Error(c, apperr.InvalidQuery("organization name already taken"))
		return
	}

	orgKey, err := utils.GenerateAPIKey()
	if err != nil {
		response.Error(c, apperr.Internal("failed to generate organization key", err))
		return
	}
	org := &models.Organization{
		Name:          req.OrganizationName,
		Slug:          slug,
		APIKeyHash:    utils.HashAPIKey(orgKey),
		RetentionDays: h.retentionDays,
		IsActive:      true,
	}
	if err := h.orgs.Create(ctx, org); err != nil {
		response.Error(c, apperr.Internal("failed to create organization", err))
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Error(c, apperr.Internal("failed to hash password", err))
		return
	}
	orgID := org.ID
	user := &models.User{
		OrganizationID: &orgID,
		Email:          req.Email,
		Password:       hash,
		FullName:       req.FullName,
		Role:           models.RoleAdmin,
		IsActive:       true,
	}
	if err := h.repo.Create(ctx, user); err != nil {
		response.Error(c, apperr.Internal("failed to create user", err))
		return
	}

	token, err := h.jwt.Generate(user)
	if err != nil {
		response.Error(c, apperr.Internal("failed to generate token", err))
		return
	}

	h.logger.Info("organization registered",
		zap.String("organization_id", org.ID.String()),
		zap.String("user_id", user.ID.String()))

	response.Created(c, RegisterResponse{
		Token:              token,
		User:               user.ToPublic(),
		Organization:       *org,
		OrganizationAPIKey: orgKey,
	})
}

// Login handles POST /v1/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperr.InvalidQuery("invalid request: "+err.Error()))
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Error(c, apperr.Internal("failed to look up user", err))
		return
	}
	if user == nil || !utils.CheckPassword(req.Password, user.Password) {
		response.Error(c, apperr.Unauthenticated("invalid email or password"))
		return
	}
	if !user.IsActive {
		response.Error(c, apperr.AccountDisabled("account is disabled"))
		return
	}

	token, err := h.jwt.Generate(user)
	if err != nil {
		response.Error(c, apperr.Internal("failed to generate token", err))
		return
	}

	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
