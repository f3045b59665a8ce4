package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chatvault/backend/internal/auth"
)

// Logger returns a zap-based request logging middleware. When the request
// authenticated, the resolved organization is included so per-tenant
// traffic can be filtered in log queries.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		clientIP := c.ClientIP()
		method := c.Request.Method

		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("method", method),
			zap.String("path", path),
			zap.String("client_ip", clientIP),
		}
		if v, ok := c.Get(ContextSecurity); ok {
			sc := v.(auth.SecurityContext)
			if sc.OrganizationID != nil {
				fields = append(fields, zap.String("organization_id", sc.OrganizationID.String()))
			}
			fields = append(fields, zap.String("auth_method", string(sc.Method)))
		}
		logger.Info("request", fields...)
	}
}
