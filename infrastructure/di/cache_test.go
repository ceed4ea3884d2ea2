package di

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestInMemoryCacheExpiresByClock(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewInMemoryCache(clock.Now)
	ctx := context.Background()

	cache.Set(ctx, "k", "v", 30*time.Second)

	v, ok := cache.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	clock.Advance(29 * time.Second)
	_, ok = cache.Get(ctx, "k")
	assert.True(t, ok)

	clock.Advance(2 * time.Second)
	_, ok = cache.Get(ctx, "k")
	assert.False(t, ok)
}

func TestInMemoryCacheDelete(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cache := NewInMemoryCache(clock.Now)
	ctx := context.Background()

	cache.Set(ctx, "k", 42, time.Minute)
	cache.Delete(ctx, "k")

	_, ok := cache.Get(ctx, "k")
	assert.False(t, ok)
}

func TestInMemoryCacheMissingKey(t *testing.T) {
	cache := NewInMemoryCache(time.Now)

	_, ok := cache.Get(context.Background(), "absent")
	assert.False(t, ok)
}
