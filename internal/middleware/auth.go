package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/chatvault/backend/internal/auth"
	"github.com/chatvault/backend/pkg/response"
)

// ContextSecurity is the gin context key for the resolved SecurityContext.
const ContextSecurity = "security_context"

// Authenticate verifies the request credential and resolves it into a
// SecurityContext attached to the gin context. No context is created on
// failure; the request is aborted through the central error translator.
func Authenticate(verifier *auth.Verifier, resolver *auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, err := verifier.Verify(c.Request.Context(), c.Request.Header)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		sc, err := resolver.Resolve(c.Request.Context(), cred)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(ContextSecurity, sc)
		c.Next()
	}
}

// Security returns the request's SecurityContext. It panics when called
// on a route that is not behind Authenticate.
func Security(c *gin.Context) auth.SecurityContext {
	return c.MustGet(ContextSecurity).(auth.SecurityContext)
}
