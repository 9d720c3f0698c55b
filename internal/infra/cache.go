package infra

import (
	"sync"
	"time"
)

// Entry is one cached value together with its freshness stamp.
type Entry[V any] struct {
	Value    V
	StoredAt time.Time
}

// TTLCache is a thread-safe in-memory cache whose entries expire ttl after
// they were stored. Entries are replaced whole, so a reader never observes
// a value from one fetch paired with the timestamp of another.
type TTLCache[V any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[V]
	ttl     time.Duration
	now     Clock
}

// NewTTLCache creates a cache with the given TTL. A nil clock means the
// wall clock.
func NewTTLCache[V any](ttl time.Duration, now Clock) *TTLCache[V] {
	if now == nil {
		now = SystemClock
	}
	return &TTLCache[V]{
		entries: make(map[string]Entry[V]),
		ttl:     ttl,
		now:     now,
	}
}

// TTL returns the configured time-to-live.
func (c *TTLCache[V]) TTL() time.Duration { return c.ttl }

// Get returns the value for key if present and not older than the TTL.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	e, ok := c.Lookup(key)
	return e.Value, ok
}

// Lookup is Get returning the whole entry.
func (c *TTLCache[V]) Lookup(key string) (Entry[V], bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.expired(e) {
		return Entry[V]{}, false
	}
	return e, true
}

// Set stores value under key stamped with the current clock reading and
// returns the stored entry.
func (c *TTLCache[V]) Set(key string, value V) Entry[V] {
	e := Entry[V]{Value: value, StoredAt: c.now()}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return e
}

// Invalidate removes a key from the cache.
func (c *TTLCache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Cleanup removes expired entries and returns how many were dropped.
func (c *TTLCache[V]) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, fresh or not.
func (c *TTLCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *TTLCache[V]) expired(e Entry[V]) bool {
	return c.now().Sub(e.StoredAt) > c.ttl
}
