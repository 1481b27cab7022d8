package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/gst/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, requests int, window time.Duration, burst int) *RateLimiter {
	t.Helper()
	limiter := NewRateLimiter(requests, window, burst)
	t.Cleanup(limiter.Close)
	return limiter
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows requests within limit", func(t *testing.T) {
		limiter := newLimiter(t, 5, time.Minute, 0)

		for i := 0; i < 5; i++ {
			assert.True(t, limiter.Allow("client1"), "request %d should be allowed", i+1)
		}
	})

	t.Run("blocks requests exceeding limit", func(t *testing.T) {
		limiter := newLimiter(t, 3, time.Minute, 0)

		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow("client2"))
		}
		assert.False(t, limiter.Allow("client2"))
	})

	t.Run("explicit burst caps immediate requests", func(t *testing.T) {
		limiter := newLimiter(t, 60, time.Minute, 2)

		assert.True(t, limiter.Allow("client"))
		assert.True(t, limiter.Allow("client"))
		assert.False(t, limiter.Allow("client"))
	})

	t.Run("separate limits per client", func(t *testing.T) {
		limiter := newLimiter(t, 2, time.Minute, 0)

		assert.True(t, limiter.Allow("clientA"))
		assert.True(t, limiter.Allow("clientA"))
		assert.False(t, limiter.Allow("clientA"))

		assert.True(t, limiter.Allow("clientB"))
		assert.True(t, limiter.Allow("clientB"))
	})

	t.Run("refills over the window", func(t *testing.T) {
		limiter := newLimiter(t, 2, 50*time.Millisecond, 0)

		assert.True(t, limiter.Allow("client3"))
		assert.True(t, limiter.Allow("client3"))
		assert.False(t, limiter.Allow("client3"))

		time.Sleep(60 * time.Millisecond)

		assert.True(t, limiter.Allow("client3"))
	})

	t.Run("remaining returns whole tokens", func(t *testing.T) {
		limiter := newLimiter(t, 5, time.Minute, 0)

		assert.Equal(t, 5, limiter.Remaining("newclient"))

		limiter.Allow("newclient")
		limiter.Allow("newclient")

		assert.Equal(t, 3, limiter.Remaining("newclient"))
	})

	t.Run("concurrent access is safe", func(t *testing.T) {
		limiter := newLimiter(t, 100, time.Minute, 0)
		var wg sync.WaitGroup
		var allowed atomic.Int64

		for i := 0; i < 150; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if limiter.Allow("concurrent-client") {
					allowed.Add(1)
				}
			}()
		}

		wg.Wait()
		assert.InDelta(t, 100, allowed.Load(), 1)
	})

	t.Run("evicts idle clients", func(t *testing.T) {
		limiter := newLimiter(t, 1, time.Minute, 0)
		limiter.Allow("idle")
		limiter.Allow("active")

		limiter.mu.Lock()
		limiter.clients["idle"].lastSeen = time.Now().Add(-3 * time.Minute)
		limiter.mu.Unlock()

		limiter.evictIdle(time.Now())

		limiter.mu.Lock()
		defer limiter.mu.Unlock()
		assert.NotContains(t, limiter.clients, "idle")
		assert.Contains(t, limiter.clients, "active")
	})

	t.Run("close is idempotent", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Minute, 0)
		limiter.Close()
		assert.NotPanics(t, limiter.Close)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	newRouter := func(limiter *RateLimiter) *gin.Engine {
		router := gin.New()
		router.Use(RequestID())
		router.Use(RateLimit(limiter))
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})
		return router
	}

	t.Run("sets rate limit headers", func(t *testing.T) {
		router := newRouter(newLimiter(t, 3, time.Minute, 0))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("returns 429 when limit exceeded", func(t *testing.T) {
		router := newRouter(newLimiter(t, 2, time.Minute, 0))

		for i := 0; i < 2; i++ {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		}

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "limited-req")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeRateLimited, resp.Error.Code)
		assert.Equal(t, "limited-req", resp.Error.RequestID)
	})

	t.Run("limits per client IP", func(t *testing.T) {
		router := newRouter(newLimiter(t, 1, time.Minute, 0))

		req1 := httptest.NewRequest(http.MethodGet, "/test", nil)
		req1.RemoteAddr = "10.0.0.1:1234"
		w1 := httptest.NewRecorder()
		router.ServeHTTP(w1, req1)
		assert.Equal(t, http.StatusOK, w1.Code)

		req2 := httptest.NewRequest(http.MethodGet, "/test", nil)
		req2.RemoteAddr = "10.0.0.1:5678"
		w2 := httptest.NewRecorder()
		router.ServeHTTP(w2, req2)
		assert.Equal(t, http.StatusTooManyRequests, w2.Code)

		req3 := httptest.NewRequest(http.MethodGet, "/test", nil)
		req3.RemoteAddr = "10.0.0.2:1234"
		w3 := httptest.NewRecorder()
		router.ServeHTTP(w3, req3)
		assert.Equal(t, http.StatusOK, w3.Code)
	})
}

func TestRateLimitByKey(t *testing.T) {
	limiter := newLimiter(t, 1, time.Minute, 0)
	keyFunc := func(c *gin.Context) string {
		return c.GetHeader("X-Api-Key")
	}

	router := gin.New()
	router.Use(RateLimitByKey(limiter, keyFunc))
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	send := func(key string) int {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Api-Key", key)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("key1"))
	assert.Equal(t, http.StatusTooManyRequests, send("key1"))
	assert.Equal(t, http.StatusOK, send("key2"))
}
