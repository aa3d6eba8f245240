package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCacheSetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	c.Set(ctx, "7", "encoded", time.Minute)
	v, ok := c.Get(ctx, "7")
	assert.True(t, ok)
	assert.Equal(t, "encoded", v)

	_, ok = c.Get(ctx, "8")
	assert.False(t, ok)

	assert.Equal(t, Stats{Hits: 1, Misses: 1, Sets: 1}, c.Stats())
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	c.Set(ctx, "short", "a", time.Second)
	c.Set(ctx, "forever", "b", 0)

	now = now.Add(2 * time.Second)
	_, ok := c.Get(ctx, "short")
	assert.False(t, ok)
	v, ok := c.Get(ctx, "forever")
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestMemoryCacheDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	c.Set(ctx, "k", "v", time.Minute)
	c.Delete(ctx, "k")
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryCacheConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Set(ctx, "k", "v", time.Minute)
			c.Get(ctx, "k")
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(16), c.Stats().Sets)
}
