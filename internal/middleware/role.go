package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/chatvault/backend/internal/models"
	"github.com/chatvault/backend/pkg/apperr"
	"github.com/chatvault/backend/pkg/response"
)

// RequireRole allows only the given roles. Call after Authenticate.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		sc := Security(c)
		if _, ok := allowed[sc.Role]; !ok {
			response.Error(c, apperr.Forbidden("insufficient permissions"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSubject rejects organization-key contexts on endpoints that need
// a concrete user subject. This is a structural mismatch, not a tenancy
// miss, so it surfaces as 403 rather than 404.
func RequireSubject() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Security(c).HasSubject() {
			response.Error(c, apperr.OwnerRequired("endpoint requires a user credential"))
			c.Abort()
			return
		}
		c.Next()
	}
}
