package cache

import (
	"container/list"
	"sync"
	"time"
)

// Cache is a bounded in-memory key/value store with per-entry TTL and
// least-recently-used eviction. All methods are safe for concurrent use;
// a single mutex guards the entry map, the access order, and the counters.
type Cache[V any] struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]*list.Element
	order      *list.List // front = most recently accessed
	hits       uint64
	misses     uint64
	now        func() time.Time
}

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time // zero = never expires
}

// New constructs a Cache holding at most maxEntries entries.
func New[V any](maxEntries int) *Cache[V] {
	return NewWithClock[V](maxEntries, time.Now)
}

// NewWithClock constructs a Cache with an injectable clock (used in tests).
func NewWithClock[V any](maxEntries int, now func() time.Time) *Cache[V] {
	return &Cache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		now:        now,
	}
}

// Get returns the value for key and whether it was found. An absent or
// expired key is a miss; an expired entry is evicted on the spot. A hit
// refreshes the entry's position in the access order.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		return zero, false
	}

	ent := elem.Value.(*entry[V])
	if !ent.expiresAt.IsZero() && c.now().After(ent.expiresAt) {
		c.removeLocked(elem)
		c.misses++
		return zero, false
	}

	c.order.MoveToFront(elem)
	c.hits++
	return ent.value, true
}

// Set inserts or replaces the entry for key with the given TTL. A ttl <= 0
// means the entry never expires. When the cache is full the least recently
// accessed entry is evicted to make room.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	if elem, ok := c.entries[key]; ok {
		ent := elem.Value.(*entry[V])
		ent.value = value
		ent.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return
	}

	if c.maxEntries > 0 && c.order.Len() >= c.maxEntries {
		if oldest := c.order.Back(); oldest != nil {
			c.removeLocked(oldest)
		}
	}

	c.entries[key] = c.order.PushFront(&entry[V]{key: key, value: value, expiresAt: expiresAt})
}

// Delete removes the entry for key if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.removeLocked(elem)
	}
}

// Clear drops all entries. Hit/miss counters are retained.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Len returns the current number of entries, including any not yet evicted
// expired ones.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats reports cumulative hit/miss counts for this cache instance.
type Stats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Stats returns a snapshot of the cache's hit/miss counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{Hits: c.hits, Misses: c.misses}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

func (c *Cache[V]) removeLocked(elem *list.Element) {
	ent := elem.Value.(*entry[V])
	c.order.Remove(elem)
	delete(c.entries, ent.key)
}
