package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), RedisConfig{Address: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, srv
}

func TestNewRedisStoreRequiresAddress(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisConfig{})
	require.EqualError(t, err, "redis: address is required")
}

func TestRedisStoreIncrementWithTTL(t *testing.T) {
	store, srv := newTestRedisStore(t)
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "rl|1.2.3.4|/api/alerts", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Greater(t, ttl, time.Duration(0))

	count, _, err = store.IncrementWithTTL(ctx, "rl|1.2.3.4|/api/alerts", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	srv.FastForward(2 * time.Minute)

	count, _, err = store.IncrementWithTTL(ctx, "rl|1.2.3.4|/api/alerts", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestRedisStoreSetGetDelete(t *testing.T) {
	store, srv := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "contacts:user-1", []byte("payload"), time.Minute))
	require.True(t, srv.Exists("sosrelay:contacts:user-1"))

	value, ok, err := store.Get(ctx, "contacts:user-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("payload"), value)

	require.NoError(t, store.Delete(ctx, "contacts:user-1"))

	_, ok, err = store.Get(ctx, "contacts:user-1")
	require.NoError(t, err)
	require.False(t, ok)
}
