package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCacheBasicOperations(t *testing.T) {
	c := NewLRUCache(10, time.Minute)

	c.Set("a", "alpha", 0)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "alpha", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestLRUCacheSharesInstances(t *testing.T) {
	c := NewLRUCache(10, time.Minute)

	type state struct{ n int }
	c.Set("s", &state{n: 1}, 0)

	v1, ok := c.Get("s")
	require.True(t, ok)
	v2, ok := c.Get("s")
	require.True(t, ok)

	v1.(*state).n = 42
	assert.Equal(t, 42, v2.(*state).n, "readers of one key must share the instance")
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache(3, time.Minute)

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), i, 0)
	}
	// Touch k0 so k1 becomes the oldest.
	_, ok := c.Get("k0")
	require.True(t, ok)

	c.Set("k3", 3, 0)

	_, ok = c.Get("k1")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get("k0")
	assert.True(t, ok)
	assert.Equal(t, 3, c.Size())
}

func TestLRUCacheTTLExpiry(t *testing.T) {
	c := NewLRUCache(10, time.Minute)

	c.Set("short", "v", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get("short")
	assert.False(t, ok)
}

func TestLRUCacheInvalidate(t *testing.T) {
	c := NewLRUCache(10, time.Minute)
	c.Set("memory:s1", 1, 0)
	c.Set("memory:s2", 2, 0)
	c.Set("other:s1", 3, 0)

	t.Run("ExactKey", func(t *testing.T) {
		assert.Equal(t, 1, c.Invalidate("other:s1"))
		_, ok := c.Get("other:s1")
		assert.False(t, ok)
	})

	t.Run("PrefixWildcard", func(t *testing.T) {
		assert.Equal(t, 2, c.Invalidate("memory:*"))
		assert.Equal(t, 0, c.Size())
	})
}

func TestLRUCacheCleanupExpired(t *testing.T) {
	c := NewLRUCache(10, time.Minute)
	c.Set("stale", 1, 5*time.Millisecond)
	c.Set("fresh", 2, time.Minute)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 1, c.CleanupExpired())
	assert.Equal(t, 1, c.Size())
}
