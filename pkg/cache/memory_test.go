package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string  `json:"name"`
	Total float64 `json:"total"`
}

func TestMemoryCacheRoundTripsStructs(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, Key("summary", 7), payload{Name: "food", Total: 12.5}, time.Minute))

	var got payload
	require.NoError(t, mc.Get(ctx, "summary:7", &got))
	assert.Equal(t, payload{Name: "food", Total: 12.5}, got)

	err := mc.Get(ctx, "summary:8", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpires(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", 1, time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	var v int
	assert.ErrorIs(t, mc.Get(ctx, "k", &v), ErrCacheMiss)
	ok, err := mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	for _, k := range []string{"forecast:1:a", "forecast:1:b", "forecast:2:a", "summary:1"} {
		require.NoError(t, mc.Set(ctx, k, k, time.Minute))
	}
	require.NoError(t, mc.DeleteByPattern(ctx, Pattern("forecast", 1)))

	ok, _ := mc.Exists(ctx, "forecast:1:a", "forecast:1:b")
	assert.False(t, ok)
	ok, _ = mc.Exists(ctx, "forecast:2:a")
	assert.True(t, ok)
	ok, _ = mc.Exists(ctx, "summary:1")
	assert.True(t, ok)

	assert.Error(t, mc.DeleteByPattern(ctx, "["))
}

func TestMemoryCacheDeleteByPatternCrossesSeparators(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	keys := []string{
		Key("resp", 7, "month", "food/drinks", 3),
		Key("resp", 7, "forecast", "a/b/c", 6),
		Key("resp", 7, "month", "rent", 3),
		Key("resp", 8, "month", "food/drinks", 3),
	}
	for _, k := range keys {
		require.NoError(t, mc.Set(ctx, k, 1, time.Minute))
	}
	require.NoError(t, mc.DeleteByPattern(ctx, Pattern("resp", 7)))

	ok, _ := mc.Exists(ctx, keys[0], keys[1], keys[2])
	assert.False(t, ok)
	ok, _ = mc.Exists(ctx, keys[3])
	assert.True(t, ok)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", 1, time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", 2, time.Minute))
	time.Sleep(time.Millisecond)

	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "c", 3, time.Minute))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "a", &v))
}

func TestMemoryCacheTryLock(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	ok, err := mc.TryLock(ctx, "retrain:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = mc.TryLock(ctx, "retrain:1", time.Minute)
	assert.False(t, ok)

	require.NoError(t, mc.Unlock(ctx, "retrain:1"))
	ok, _ = mc.TryLock(ctx, "retrain:1", time.Minute)
	assert.True(t, ok)
}

func TestMemoryCacheCleanupSweepsExpired(t *testing.T) {
	mc := NewMemoryCache(WithMemoryCleanup(5*time.Millisecond), WithMemoryMaxSize(0))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "short", 1, time.Millisecond))
	require.NoError(t, mc.Set(ctx, "long", 1, time.Minute))

	assert.Eventually(t, func() bool { return mc.Len() == 1 }, time.Second, 5*time.Millisecond)
	ok, _ := mc.Exists(ctx, "long")
	assert.True(t, ok)
}

func TestRedisOptions(t *testing.T) {
	cfg := &RedisConfig{PoolSize: 10, MinIdleConns: 2, PoolTimeout: 30 * time.Second}
	for _, opt := range []RedisOption{
		WithRedisAddr("cache.internal", 6380),
		WithRedisAuth("secret", 3),
		WithRedisPool(25, 0, 0),
		WithRedisPrefix("bc"),
	} {
		opt(cfg)
	}

	assert.Equal(t, "cache.internal:6380", cfg.Addr())
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, 3, cfg.DB)
	assert.Equal(t, 25, cfg.PoolSize)
	assert.Equal(t, 2, cfg.MinIdleConns)
	assert.Equal(t, 30*time.Second, cfg.PoolTimeout)
	assert.Equal(t, "bc", cfg.Prefix)
}
