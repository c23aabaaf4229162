package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leadcrm/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frozenLimiter returns a limiter whose clock only moves when advance is called
func frozenLimiter(rps float64, burst int) (*RateLimiter, func(time.Duration)) {
	rl := NewRateLimiter(rps, burst)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	rl.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	return rl, func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows burst then blocks", func(t *testing.T) {
		limiter, _ := frozenLimiter(1, 3)

		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow("client1"), "request %d should be allowed", i+1)
		}
		assert.False(t, limiter.Allow("client1"))
	})

	t.Run("separate buckets per client", func(t *testing.T) {
		limiter, _ := frozenLimiter(1, 2)

		assert.True(t, limiter.Allow("clientA"))
		assert.True(t, limiter.Allow("clientA"))
		assert.False(t, limiter.Allow("clientA"))

		assert.True(t, limiter.Allow("clientB"))
		assert.True(t, limiter.Allow("clientB"))
	})

	t.Run("refills at the configured rate", func(t *testing.T) {
		limiter, advance := frozenLimiter(2, 1)

		assert.True(t, limiter.Allow("client3"))
		assert.False(t, limiter.Allow("client3"))

		advance(500 * time.Millisecond)
		assert.True(t, limiter.Allow("client3"))
	})

	t.Run("remaining reports whole tokens", func(t *testing.T) {
		limiter, _ := frozenLimiter(1, 5)

		assert.Equal(t, 5, limiter.Remaining("newclient"))
		limiter.Allow("newclient")
		limiter.Allow("newclient")
		assert.Equal(t, 3, limiter.Remaining("newclient"))
	})

	t.Run("sweep drops idle clients", func(t *testing.T) {
		limiter, advance := frozenLimiter(1, 1)

		limiter.Allow("idle")
		advance(defaultVisitorTTL / 2)
		limiter.Allow("active")
		advance(defaultVisitorTTL/2 + time.Second)

		limiter.Sweep()
		assert.Equal(t, 1, limiter.Len())
	})

	t.Run("concurrent access is safe", func(t *testing.T) {
		limiter, _ := frozenLimiter(1, 100)
		var wg sync.WaitGroup
		var allowed atomic.Int32

		for i := 0; i < 150; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if limiter.Allow("shared") {
					allowed.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(100), allowed.Load())
	})
}

func TestRateLimiter_Run(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	limiter.ttl = 0
	limiter.Allow("gone")

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		limiter.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return limiter.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter, _ := frozenLimiter(1, 2)

	router := gin.New()
	router.Use(RequestID(), RateLimit(limiter))
	router.POST("/leads", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/leads", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := send()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, send().Code)

	blocked := send()
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "0", blocked.Header().Get("X-RateLimit-Remaining"))

	var resp dto.Response
	require.NoError(t, json.Unmarshal(blocked.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeRateLimited, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.RequestID)
}

func TestRateLimitByKey(t *testing.T) {
	limiter, _ := frozenLimiter(1, 1)

	router := gin.New()
	router.Use(RateLimitByKey(limiter, func(c *gin.Context) string {
		return c.GetHeader("X-Site")
	}))
	router.POST("/leads", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	send := func(site string) int {
		req := httptest.NewRequest(http.MethodPost, "/leads", nil)
		req.Header.Set("X-Site", site)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("a"))
	assert.Equal(t, http.StatusTooManyRequests, send("a"))
	assert.Equal(t, http.StatusOK, send("b"))
}
