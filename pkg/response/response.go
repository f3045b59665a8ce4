// Package response writes JSON responses and centralizes the mapping from
// the application error taxonomy to HTTP statuses and the error envelope.
package response

import (
	"net/http"
	"runtime/debug"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/chatvault/backend/pkg/apperr"
)

// exposeStack controls whether error responses include a stack trace.
// Disabled in production via SetProduction.
var exposeStack = true

// SetProduction toggles production mode: error bodies carry the message
// only, never a stack.
func SetProduction(prod bool) {
	exposeStack = !prod
}

// ErrorBody is the error envelope. Stack is populated outside production
// for 500-class errors only.
type ErrorBody struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// OK sends 200 with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created sends 201 with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// statusOf maps a taxonomy code to its HTTP status.
func statusOf(code apperr.Code) int {
	switch code {
	case apperr.CodeUnauthenticated, apperr.CodeAccountDisabled:
		return http.StatusUnauthorized
	case apperr.CodeOwnerRequired, apperr.CodeForbidden:
		return http.StatusForbidden
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeInvalidQuery:
		return http.StatusBadRequest
	case apperr.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error translates err per the taxonomy and writes the error envelope.
func Error(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	body := ErrorBody{Message: apperr.MessageOf(err)}
	if code == apperr.CodeInternal && exposeStack {
		body.Stack = string(debug.Stack())
	}
	c.JSON(statusOf(code), body)
}

// RateLimited writes the 429 envelope with a Retry-After hint in seconds.
func RateLimited(c *gin.Context, retryAfterSeconds int) {
	if retryAfterSeconds < 1 {
		retryAfterSeconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
	c.JSON(http.StatusTooManyRequests, ErrorBody{Message: "rate limit exceeded"})
}
