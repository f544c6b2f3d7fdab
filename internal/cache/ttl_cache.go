// Package cache holds a minimal in-memory TTL cache for hot-path lookups.
package cache

import (
	"sync"
	"time"
)

// Cache is the lookup contract used by rate-card reads.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Delete(key K)
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache stores values in-memory with a fixed TTL per cache.
type TTLCache[K comparable, V any] struct {
	ttl   time.Duration
	mu    sync.Mutex
	items map[K]entry[V]
}

// New constructs a TTLCache. A non-positive ttl yields a cache that never
// expires entries; callers wanting no caching use Noop instead.
func New[K comparable, V any](ttl time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{ttl: ttl, items: make(map[K]entry[V])}
}

func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(c.items, key)
		return zero, false
	}
	return e.value, true
}

func (c *TTLCache[K, V]) Set(key K, value V) {
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl)
	}
	c.mu.Lock()
	c.items[key] = entry[V]{value: value, expiresAt: expiresAt}
	c.mu.Unlock()
}

func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Noop always misses and ignores writes.
type Noop[K comparable, V any] struct{}

func (Noop[K, V]) Get(key K) (V, bool) {
	var zero V
	return zero, false
}

func (Noop[K, V]) Set(key K, value V) {}

func (Noop[K, V]) Delete(key K) {}
