package middleware

import (
	"math"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chatvault/backend/internal/ratelimit"
	"github.com/chatvault/backend/pkg/response"
)

// RateLimitConfig configures one fixed-window limiter instance.
type RateLimitConfig struct {
	// Class separates counters per route group (e.g. "api", "auth") so
	// auth bruteforce limits don't consume the general quota.
	Class       string
	WindowSecs  int
	MaxRequests int
}

// RateLimit counts requests per (client IP, route class) in fixed windows
// and rejects with 429 once the window maximum is exceeded. It runs before
// credential verification: the increment happens before any downstream
// work, so a client disconnect mid-request can never skew the counter.
// Store errors fail open: a broken counter store must not take the API
// down with it.
func RateLimit(store ratelimit.Store, cfg RateLimitConfig, logger *zap.Logger) gin.HandlerFunc {
	window := windowDuration(cfg.WindowSecs)
	return func(c *gin.Context) {
		key := cfg.Class + ":" + c.ClientIP()
		count, ttl, err := store.Incr(c.Request.Context(), key, window)
		if err != nil {
			logger.Warn("rate limit store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if count > int64(cfg.MaxRequests) {
			response.RateLimited(c, int(math.Ceil(ttl.Seconds())))
			c.Abort()
			return
		}
		c.Next()
	}
}

func windowDuration(secs int) time.Duration {
	if secs < 1 {
		secs = 60
	}
	return time.Duration(secs) * time.Second
}
