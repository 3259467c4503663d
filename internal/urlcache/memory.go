package urlcache

import (
	"context"
	"sync"
)

// MemoryCache is an in-process Cache for development and tests.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]string)}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, originalURL string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stored, ok := c.entries[originalURL]
	return stored, ok, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, originalURL, storedURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[originalURL] = storedURL
	return nil
}
