package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newLimiterForTest(window time.Duration, now func() time.Time) *rateLimiter {
	return &rateLimiter{
		window:        window,
		last:          make(map[string]time.Time),
		sweepInterval: window,
		now:           now,
	}
}

func doRequest(t *testing.T, limiter *rateLimiter, userID string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/chat", nil)
	c.Request.RemoteAddr = "10.0.0.1:12345"
	if userID != "" {
		c.Set(ContextUserIDKey, userID)
	}
	limiter.handle(c)
	return c
}

func TestRateLimit_BlocksWithinWindow(t *testing.T) {
	current := time.Unix(1000, 0)
	limiter := newLimiterForTest(10*time.Second, func() time.Time { return current })

	c := doRequest(t, limiter, "u1")
	require.False(t, c.IsAborted())

	current = current.Add(3 * time.Second)
	c = doRequest(t, limiter, "u1")
	require.True(t, c.IsAborted())
}

func TestRateLimit_AllowsAfterWindow(t *testing.T) {
	current := time.Unix(1000, 0)
	limiter := newLimiterForTest(10*time.Second, func() time.Time { return current })

	c := doRequest(t, limiter, "u1")
	require.False(t, c.IsAborted())

	current = current.Add(11 * time.Second)
	c = doRequest(t, limiter, "u1")
	require.False(t, c.IsAborted())
}

func TestRateLimit_KeyedPerUser(t *testing.T) {
	current := time.Unix(1000, 0)
	limiter := newLimiterForTest(10*time.Second, func() time.Time { return current })

	c := doRequest(t, limiter, "u1")
	require.False(t, c.IsAborted())

	c = doRequest(t, limiter, "u2")
	require.False(t, c.IsAborted())
}

func TestRateLimit_DisabledWhenZeroWindow(t *testing.T) {
	limiter := newLimiterForTest(0, time.Now)
	for i := 0; i < 3; i++ {
		c := doRequest(t, limiter, "u1")
		require.False(t, c.IsAborted())
	}
}

func TestRateLimit_CleanupExpired(t *testing.T) {
	current := time.Unix(1000, 0)
	limiter := newLimiterForTest(10*time.Second, func() time.Time { return current })

	doRequest(t, limiter, "u1")
	doRequest(t, limiter, "u2")
	require.Len(t, limiter.last, 2)

	current = current.Add(time.Minute)
	limiter.mu.Lock()
	limiter.cleanupExpiredLocked(current)
	limiter.mu.Unlock()
	require.Empty(t, limiter.last)
	require.Equal(t, current, limiter.lastSweep)
}

func TestRateLimit_ConcurrentAccess(t *testing.T) {
	limiter := newLimiterForTest(time.Millisecond, time.Now)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doRequest(t, limiter, "u1")
		}()
	}
	wg.Wait()
}
