package cache

import (
	"sync"
	"time"
)

// entry pairs a value with its storage timestamp.
type entry[V any] struct {
	value    V
	storedAt time.Time
}

// TTL is a generic time-bounded key→value map. It underpins the in-memory
// tenant cache and is reusable for other lookups with the same freshness
// contract.
type TTL[V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry[V]
	now     func() time.Time
}

// NewTTL constructs a TTL cache. The clock is injectable for tests.
func NewTTL[V any](ttl time.Duration) *TTL[V] {
	return &TTL[V]{
		ttl:     ttl,
		entries: make(map[string]entry[V]),
		now:     time.Now,
	}
}

// WithClock overrides the clock. Test use only.
func (c *TTL[V]) WithClock(now func() time.Time) *TTL[V] {
	c.now = now
	return c
}

// Get returns the value and true only when the entry is younger than the TTL.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put stores or overwrites an entry, restarting its TTL.
func (c *TTL[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, storedAt: c.now()}
}

// DeleteMatching removes every entry satisfying match. The predicate sees
// both key and value so callers can match entries whose key does not encode
// the identity they are purging.
func (c *TTL[V]) DeleteMatching(match func(key string, value V) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if match(key, e.value) {
			delete(c.entries, key)
		}
	}
}

// Clear removes everything.
func (c *TTL[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}

// Len reports the number of entries, expired ones included.
func (c *TTL[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
