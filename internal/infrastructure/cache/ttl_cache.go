package cache

import (
	"container/list"
	"sync"
	"time"
)

// ttlEntry is one stored value with its expiry and recency-list element.
type ttlEntry struct {
	key       string
	value     any
	expiresAt time.Time
}

// TTLCache is a bounded in-memory cache with per-entry expiry and
// least-recently-touched eviction. Both Get and Set count as a touch.
// Expired entries are treated as absent and removed lazily on access.
type TTLCache struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List               // front = most recently touched
	entries map[string]*list.Element // key -> element holding *ttlEntry
	now     func() time.Time
}

// NewTTLCache creates a cache holding at most maxSize entries. A maxSize
// of zero or less disables the bound.
func NewTTLCache(maxSize int) *TTLCache {
	return &TTLCache{
		maxSize: maxSize,
		order:   list.New(),
		entries: make(map[string]*list.Element),
		now:     time.Now,
	}
}

// Get returns the value for key, or ok=false when absent or expired.
// A hit moves the entry to the front of the recency order.
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*ttlEntry)
	if c.now().After(entry.expiresAt) {
		c.removeElement(el)
		return nil, false
	}
	c.order.MoveToFront(el)
	return entry.value, true
}

// Set stores value under key for ttl. An existing entry is replaced and
// refreshed; when the bound is exceeded the least-recently-touched entry
// is evicted.
func (c *TTLCache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl)
	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*ttlEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&ttlEntry{key: key, value: value, expiresAt: expiresAt})
	c.entries[key] = el

	if c.maxSize > 0 && c.order.Len() > c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// Delete removes key if present.
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.removeElement(el)
	}
}

// Len returns the number of stored entries, including not-yet-collected
// expired ones.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *TTLCache) removeElement(el *list.Element) {
	entry := el.Value.(*ttlEntry)
	c.order.Remove(el)
	delete(c.entries, entry.key)
}
