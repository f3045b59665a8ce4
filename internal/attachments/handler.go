package attachments

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chatvault/backend/internal/auth"
	"github.com/chatvault/backend/internal/middleware"
	"github.com/chatvault/backend/internal/models"
	"github.com/chatvault/backend/internal/tenancy"
	"github.com/chatvault/backend/pkg/apperr"
	"github.com/chatvault/backend/pkg/response"
	"github.com/chatvault/backend/pkg/storage"
)

// MessageGetter resolves the parent message within the caller's scope.
type MessageGetter interface {
	GetOne(ctx context.Context, f *tenancy.Filter) (*models.Message, error)
}

// Presigner is the object-storage surface the handler needs.
type Presigner interface {
	GeneratePresignedUploadURL(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
	GeneratePresignedDownloadURL(ctx context.Context, key string, expires time.Duration) (string, error)
	PresignExpire() time.Duration
	DeleteObject(ctx context.Context, key string) error
}

// CreateRequest is the body for POST /v1/messages/:id/attachments.
type CreateRequest struct {
	FileName    string `json:"file_name" binding:"required"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes" binding:"required"`
}

// CreateResponse returns the attachment record plus a one-shot upload URL.
type CreateResponse struct {
	Attachment models.Attachment `json:"attachment"`
	UploadURL  string            `json:"upload_url"`
	ExpiresIn  int               `json:"expires_in"`
}

// URLResponse returns a pre-signed download URL.
type URLResponse struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

// Handler handles attachment endpoints. Clients upload and download
// straight to S3; the API only mints pre-signed URLs.
type Handler struct {
	store    Store
	messages MessageGetter
	s3       Presigner
	logger   *zap.Logger
}

// NewHandler creates an attachments handler.
func NewHandler(store Store, messages MessageGetter, s3 Presigner, logger *zap.Logger) *Handler {
	return &Handler{store: store, messages: messages, s3: s3, logger: logger}
}

// Create handles POST /v1/messages/:id/attachments.
func (h *Handler) Create(c *gin.Context) {
	sc := middleware.Security(c)
	msg, err := h.resolveMessage(c, sc)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperr.InvalidQuery("invalid request: "+err.Error()))
		return
	}
	if req.SizeBytes <= 0 || req.SizeBytes > storage.MaxAttachmentSize {
		response.Error(c, apperr.InvalidQuery("attachment size out of range"))
		return
	}
	if !storage.ValidateAttachmentType(req.ContentType, req.FileName) {
		response.Error(c, apperr.InvalidQuery("unsupported attachment type"))
		return
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(req.FileName)
	}

	id := uuid.New()
	a := &models.Attachment{
		ID:             id,
		MessageID:      msg.ID,
		ChatID:         msg.ChatID,
		OrganizationID: msg.OrganizationID,
		OwnerID:        msg.OwnerID,
		FileName:       req.FileName,
		ContentType:    contentType,
		SizeBytes:      req.SizeBytes,
		S3Key: storage.AttachmentKey(
			msg.OrganizationID.String(), msg.ChatID.String(), id.String(), req.FileName),
	}
	if err := h.store.Create(c.Request.Context(), a); err != nil {
		response.Error(c, apperr.Internal("failed to create attachment", err))
		return
	}

	expire := h.s3.PresignExpire()
	url, err := h.s3.GeneratePresignedUploadURL(c.Request.Context(), a.S3Key, contentType, expire)
	if err != nil {
		response.Error(c, apperr.Internal("failed to presign upload", err))
		return
	}
	response.Created(c, CreateResponse{
		Attachment: *a,
		UploadURL:  url,
		ExpiresIn:  int(expire.Seconds()),
	})
}

// ListByMessage handles GET /v1/messages/:id/attachments.
func (h *Handler) ListByMessage(c *gin.Context) {
	sc := middleware.Security(c)
	msg, err := h.resolveMessage(c, sc)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.store.ListByMessage(c.Request.Context(),
		tenancy.Scope(sc, tenancy.NewFilter().Eq("message_id", msg.ID)))
	if err != nil {
		response.Error(c, apperr.Internal("failed to list attachments", err))
		return
	}
	response.OK(c, items)
}

// DownloadURL handles GET /v1/attachments/:id/url.
func (h *Handler) DownloadURL(c *gin.Context) {
	sc := middleware.Security(c)
	a, err := h.scopedAttachment(c, sc)
	if err != nil {
		response.Error(c, err)
		return
	}

	expire := h.s3.PresignExpire()
	url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), a.S3Key, expire)
	if err != nil {
		response.Error(c, apperr.Internal("failed to presign download", err))
		return
	}
	response.OK(c, URLResponse{URL: url, ExpiresIn: int(expire.Seconds())})
}

// Delete handles DELETE /v1/attachments/:id. The S3 object goes first so a
// failed delete leaves the row pointing at a real object.
func (h *Handler) Delete(c *gin.Context) {
	sc := middleware.Security(c)
	a, err := h.scopedAttachment(c, sc)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.s3.DeleteObject(c.Request.Context(), a.S3Key); err != nil {
		response.Error(c, apperr.Internal("failed to delete attachment object", err))
		return
	}
	if _, err := h.store.DeleteWhere(c.Request.Context(),
		tenancy.NewFilter().Eq("id", a.ID)); err != nil {
		response.Error(c, apperr.Internal("failed to delete attachment", err))
		return
	}
	h.logger.Info("attachment deleted",
		zap.String("attachment_id", a.ID.String()),
		zap.String("chat_id", a.ChatID.String()))
	response.NoContent(c)
}

func (h *Handler) resolveMessage(c *gin.Context, sc auth.SecurityContext) (*models.Message, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, apperr.InvalidQuery("invalid message id")
	}
	msg, err := h.messages.GetOne(c.Request.Context(),
		tenancy.ScopeOwned(sc, tenancy.NewFilter().Eq("id", id)))
	if err != nil {
		return nil, apperr.Internal("failed to fetch message", err)
	}
	if msg == nil {
		return nil, apperr.NotFound("message not found")
	}
	return msg, nil
}

func (h *Handler) scopedAttachment(c *gin.Context, sc auth.SecurityContext) (*models.Attachment, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, apperr.InvalidQuery("invalid attachment id")
	}
	a, err := h.store.GetOne(c.Request.Context(),
		tenancy.ScopeOwned(sc, tenancy.NewFilter().Eq("id", id)))
	if err != nil {
		return nil, apperr.Internal("failed to fetch attachment", err)
	}
	if a == nil {
		return nil, apperr.NotFound("attachment not found")
	}
	return a, nil
}
