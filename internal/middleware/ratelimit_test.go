package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/chatvault/backend/internal/ratelimit"
)

type stubStore struct {
	count int64
	ttl   time.Duration
	err   error
	calls int
}

func (s *stubStore) Incr(context.Context, string, time.Duration) (int64, time.Duration, error) {
	s.calls++
	if s.err != nil {
		return 0, 0, s.err
	}
	s.count++
	return s.count, s.ttl, nil
}

func limitedRouter(store ratelimit.Store, max int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(store, RateLimitConfig{Class: "api", WindowSecs: 60, MaxRequests: max}, zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestRateLimitUnderLimit(t *testing.T) {
	r := limitedRouter(&stubStore{ttl: time.Minute}, 3)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimitExceeded(t *testing.T) {
	r := limitedRouter(&stubStore{ttl: 42 * time.Second}, 2)

	var w *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))
	}
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "42", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
}

func TestRateLimitRetryAfterAtLeastOneSecond(t *testing.T) {
	r := limitedRouter(&stubStore{ttl: 100 * time.Millisecond}, 0)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestRateLimitFailsOpen(t *testing.T) {
	store := &stubStore{err: errors.New("redis down")}
	r := limitedRouter(store, 1)

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, 5, store.calls)
}

func TestRateLimitCountsBeforeHandler(t *testing.T) {
	store := &stubStore{ttl: time.Minute}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(store, RateLimitConfig{Class: "api", WindowSecs: 60, MaxRequests: 10}, zap.NewNop()))
	r.GET("/boom", func(c *gin.Context) { c.AbortWithStatus(http.StatusBadRequest) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/boom", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, store.calls)
}
