package forecast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/sivem-incident-service/internal/domain"
)

// Service computes forecasts. Both Forecaster and Cache implement it.
type Service interface {
	Forecast(ctx context.Context, req Request) (*Forecast, error)
}

// Cache wraps a Service with an in-memory LRU cache whose entries expire
// after a TTL, so a reloaded store or model is picked up without a restart.
// Cached forecasts are shared between callers and must not be modified.
type Cache struct {
	inner Service
	ttl   time.Duration
	clock clockwork.Clock
	lru   *lruCache
}

// NewCache creates a cache decorator around inner holding up to maxEntries
// forecasts for ttl each.
func NewCache(inner Service, maxEntries int, ttl time.Duration, clock clockwork.Clock) *Cache {
	return &Cache{
		inner: inner,
		ttl:   ttl,
		clock: clock,
		lru:   newLRUCache(maxEntries),
	}
}

// Forecast returns a cached forecast for the same province and year, or asks
// the inner service. Errors are never cached.
func (c *Cache) Forecast(ctx context.Context, req Request) (*Forecast, error) {
	key := fmt.Sprintf("%s|%d", domain.NormalizeName(req.Province), req.Year)
	now := c.clock.Now()
	if f, ok := c.lru.get(key, now); ok {
		return f, nil
	}
	f, err := c.inner.Forecast(ctx, req)
	if err != nil {
		return nil, err
	}
	c.lru.put(key, f, now.Add(c.ttl))
	return f, nil
}

// lruCache is a thread-safe LRU cache of forecasts with per-entry expiry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key     string
	value   *Forecast
	expires time.Time
	prev    *entry
	next    *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: max(1, maxEntries),
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string, now time.Time) (*Forecast, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !now.Before(e.expires) {
		delete(c.entries, key)
		c.unlink(e)
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value *Forecast, expires time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value, e.expires = value, expires
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expires: expires}
	c.entries[key] = e
	c.pushFront(e)

	if len(c.entries) > c.maxEntries {
		oldest := c.tail
		delete(c.entries, oldest.key)
		c.unlink(oldest)
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}

func (c *lruCache) pushFront(e *entry) {
	e.prev, e.next = nil, c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev, e.next = nil, nil
}
