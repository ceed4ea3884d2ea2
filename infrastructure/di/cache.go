package di

import (
	"context"
	"sync"
	"time"

	"github.com/pmacom/fivethirtynews-relate/application/ports"
	"github.com/pmacom/fivethirtynews-relate/application/services"
)

// InMemoryCache is a TTL cache with an injected clock, so expiry is
// deterministic under test. Expired entries are dropped lazily on read and
// swept by a janitor.
type InMemoryCache struct {
	mu    sync.RWMutex
	clock services.Clock
	items map[string]cacheItem
}

type cacheItem struct {
	value     interface{}
	expiresAt time.Time
}

// NewInMemoryCache creates a cache reading time from clock.
func NewInMemoryCache(clock services.Clock) *InMemoryCache {
	cache := &InMemoryCache{
		clock: clock,
		items: make(map[string]cacheItem),
	}

	go cache.cleanupExpired()

	return cache
}

var _ ports.Cache = (*InMemoryCache)(nil)

// Get retrieves a value from cache
func (c *InMemoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists {
		return nil, false
	}

	if c.clock().After(item.expiresAt) {
		return nil, false
	}

	return item.value, true
}

// Set stores a value in cache with a TTL
func (c *InMemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = cacheItem{
		value:     value,
		expiresAt: c.clock().Add(ttl),
	}
}

// Delete removes a value from cache
func (c *InMemoryCache) Delete(ctx context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// cleanupExpired periodically removes expired items
func (c *InMemoryCache) cleanupExpired() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		now := c.clock()
		for key, item := range c.items {
			if now.After(item.expiresAt) {
				delete(c.items, key)
			}
		}
		c.mu.Unlock()
	}
}
