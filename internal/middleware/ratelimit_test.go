package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/sosrelay/internal/cache"
)

func serveRateLimited(r *gin.Engine) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimit(NewMemoryRateStore(), 2, 100*time.Millisecond))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	require.Equal(t, http.StatusOK, serveRateLimited(r))
	require.Equal(t, http.StatusOK, serveRateLimited(r))
	require.Equal(t, http.StatusTooManyRequests, serveRateLimited(r))

	time.Sleep(120 * time.Millisecond)

	require.Equal(t, http.StatusOK, serveRateLimited(r))
}

func TestRateLimitWithRedisStore(t *testing.T) {
	gin.SetMode(gin.TestMode)

	srv := miniredis.RunT(t)
	store, err := cache.NewRedisStore(context.Background(), cache.RedisConfig{Address: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	r := gin.New()
	r.Use(RateLimit(NewCacheRateStore(store), 1, time.Minute))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	require.Equal(t, http.StatusOK, serveRateLimited(r))
	require.Equal(t, http.StatusTooManyRequests, serveRateLimited(r))
}

type failingRateStore struct{}

func (failingRateStore) Increment(context.Context, string, time.Duration) (int, time.Duration, error) {
	return 0, 0, errors.New("store down")
}

func TestRateLimitFailsOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimit(failingRateStore{}, 1, time.Minute))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	require.Equal(t, http.StatusOK, serveRateLimited(r))
	require.Equal(t, http.StatusOK, serveRateLimited(r))
}

func TestMemoryRateStoreWindows(t *testing.T) {
	store := NewMemoryRateStore()
	clock := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }
	ctx := context.Background()

	count, ttl, err := store.Increment(ctx, "a", time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, time.Minute, ttl)

	clock = clock.Add(45 * time.Second)
	count, ttl, _ = store.Increment(ctx, "a", time.Minute)
	require.Equal(t, 2, count)
	require.Equal(t, 15*time.Second, ttl)

	count, _, _ = store.Increment(ctx, "b", time.Minute)
	require.Equal(t, 1, count)

	clock = clock.Add(15 * time.Second)
	count, ttl, _ = store.Increment(ctx, "a", time.Minute)
	require.Equal(t, 1, count)
	require.Equal(t, time.Minute, ttl)
}

func TestMemoryRateStorePrunesClosedWindows(t *testing.T) {
	store := NewMemoryRateStore()
	clock := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }
	ctx := context.Background()

	_, _, _ = store.Increment(ctx, "stale", time.Second)
	clock = clock.Add(time.Minute)
	for i := 1; i < pruneEvery; i++ {
		_, _, _ = store.Increment(ctx, "live", time.Hour)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	require.NotContains(t, store.windows, "stale")
	require.Contains(t, store.windows, "live")
}
