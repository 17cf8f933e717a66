package cache

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vtabsquare/officetool/internal/metrics"
)

// TTL presets shared by every caller; arbitrary positive TTLs are also
// accepted by Set.
const (
	TTLShort    = 30 * time.Second
	TTLMedium   = 60 * time.Second
	TTLLong     = 5 * time.Minute
	TTLVeryLong = 15 * time.Minute
)

type entry struct {
	data      any
	cachedAt  time.Time
	expiresAt time.Time
}

// Cache is the process-wide keyed value cache. Reads evict expired entries;
// concurrent misses on one key share a single producer run.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	flight  singleflight.Group
	metrics *metrics.Collector
	now     func() time.Time
}

func New(collector *metrics.Collector) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		metrics: collector,
		now:     time.Now,
	}
}

func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		c.metrics.RecordCacheMiss()
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		c.metrics.RecordCacheMiss()
		return nil, false
	}
	c.metrics.RecordCacheHit()
	return e.data, true
}

func (c *Cache) Set(key string, data any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.entries[key] = entry{data: data, cachedAt: now, expiresAt: now.Add(ttl)}
}

func (c *Cache) Clear(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

func (c *Cache) ClearByPrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// CachedFetch returns the cached value for key, or runs producer once and
// caches its result. A failed producer is never cached, and overlapping
// misses on the same key share one in-flight producer call.
func (c *Cache) CachedFetch(key string, ttl time.Duration, producer func() (any, error)) (any, error) {
	if data, ok := c.Get(key); ok {
		return data, nil
	}
	data, err, _ := c.flight.Do(key, func() (any, error) {
		if data, ok := c.Get(key); ok {
			return data, nil
		}
		data, err := producer()
		if err != nil {
			return nil, err
		}
		c.Set(key, data, ttl)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Fetch is the typed convenience wrapper over CachedFetch.
func Fetch[T any](c *Cache, key string, ttl time.Duration, producer func() (T, error)) (T, error) {
	var zero T
	data, err := c.CachedFetch(key, ttl, func() (any, error) {
		return producer()
	})
	if err != nil {
		return zero, err
	}
	typed, ok := data.(T)
	if !ok {
		// A colliding key cached a different type; rebuild rather than hand
		// back a zero value.
		fresh, err := producer()
		if err != nil {
			return zero, err
		}
		c.Set(key, fresh, ttl)
		return fresh, nil
	}
	return typed, nil
}
