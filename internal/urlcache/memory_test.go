package urlcache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := NewMemoryCache()

	_, ok, err := cache.Get(ctx, "https://cdn.shop.in/1.jpg")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.Set(ctx, "https://cdn.shop.in/1.jpg", "memory://products/1.jpg"))
	stored, ok, err := cache.Get(ctx, "https://cdn.shop.in/1.jpg")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "memory://products/1.jpg", stored)

	// Last write wins.
	require.NoError(t, cache.Set(ctx, "https://cdn.shop.in/1.jpg", "memory://products/2.jpg"))
	stored, _, _ = cache.Get(ctx, "https://cdn.shop.in/1.jpg")
	require.Equal(t, "memory://products/2.jpg", stored)
}

func TestMemoryCacheConcurrentWrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := NewMemoryCache()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, cache.Set(ctx, "key", "value"))
			_, _, err := cache.Get(ctx, "key")
			require.NoError(t, err)
		}()
	}
	wg.Wait()
}
