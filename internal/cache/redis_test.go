package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, newRedisCache(client, "", zerolog.Nop())
}

func TestRedisCacheSetGet(t *testing.T) {
	ctx := context.Background()
	mr, c := setupMiniRedis(t)

	c.Set(ctx, "7", "encoded", 5*time.Minute)
	v, ok := c.Get(ctx, "7")
	require.True(t, ok)
	assert.Equal(t, "encoded", v)

	stored, err := mr.Get(DefaultKeyPrefix + "7")
	require.NoError(t, err)
	assert.Equal(t, "encoded", stored)
	assert.Equal(t, 5*time.Minute, mr.TTL(DefaultKeyPrefix+"7"))

	assert.Equal(t, Stats{Hits: 1, Sets: 1}, c.Stats())
}

func TestRedisCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mr, c := setupMiniRedis(t)

	c.Set(ctx, "7", "encoded", time.Minute)
	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, "7")
	assert.False(t, ok)
}

func TestRedisCacheDelete(t *testing.T) {
	ctx := context.Background()
	mr, c := setupMiniRedis(t)

	c.Set(ctx, "7", "encoded", time.Minute)
	c.Delete(ctx, "7")
	assert.False(t, mr.Exists(DefaultKeyPrefix+"7"))
}

func TestRedisCacheUnavailableIsMiss(t *testing.T) {
	ctx := context.Background()
	mr, c := setupMiniRedis(t)
	mr.Close()

	c.Set(ctx, "7", "encoded", time.Minute)
	_, ok := c.Get(ctx, "7")
	assert.False(t, ok)
	assert.Equal(t, int64(0), c.Stats().Sets)
	assert.Error(t, c.HealthCheck(ctx))
}

func TestNewRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), RedisConfig{Addr: mr.Addr(), KeyPrefix: "t:"}, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	c.Set(context.Background(), "1", "x", 0)
	assert.True(t, mr.Exists("t:1"))
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisCache(context.Background(), RedisConfig{Addr: addr}, zerolog.Nop())
	assert.Error(t, err)
}
