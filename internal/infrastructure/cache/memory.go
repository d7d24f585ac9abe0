package cache

import (
	"context"
	"sync"
	"time"
)

// cacheItem represents a single item in the cache with expiration
type cacheItem[V any] struct {
	value      V
	expiration time.Time
}

// MemoryCache is a thread-safe in-memory cache with TTL support
type MemoryCache[V any] struct {
	data  map[string]cacheItem[V]
	mutex sync.RWMutex
	now   func() time.Time
}

// NewMemoryCache creates a new in-memory cache. Expired entries are only
// dropped by Purge; call Run to purge periodically.
func NewMemoryCache[V any]() *MemoryCache[V] {
	return &MemoryCache[V]{
		data: make(map[string]cacheItem[V]),
		now:  time.Now,
	}
}

// Get retrieves a live value from the cache
func (c *MemoryCache[V]) Get(key string) (V, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists || c.now().After(item.expiration) {
		var zero V
		return zero, false
	}
	return item.value, true
}

// Set stores a value in the cache with TTL
func (c *MemoryCache[V]) Set(key string, value V, ttl time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = cacheItem[V]{value: value, expiration: c.now().Add(ttl)}
}

// Purge removes expired entries and returns how many were removed
func (c *MemoryCache[V]) Purge() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	removed := 0
	for key, item := range c.data {
		if now.After(item.expiration) {
			delete(c.data, key)
			removed++
		}
	}
	return removed
}

// Run purges expired entries every interval until ctx is cancelled
func (c *MemoryCache[V]) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Purge()
		}
	}
}
