package geo

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

type cacheEntry struct {
	ip        string
	location  Location
	expiresAt time.Time
}

// Cache is a thread-safe LRU cache of lookups with TTL expiration.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time

	// front is most recently used
	lru   *list.List
	items map[string]*list.Element

	hits   atomic.Uint64
	misses atomic.Uint64
	evicts atomic.Uint64
}

// CacheConfig holds configuration for a Cache.
type CacheConfig struct {
	// Capacity is the maximum number of entries. Default: 10000
	Capacity int
	// TTL is how long entries remain valid. Default: 1 hour
	TTL time.Duration
}

// DefaultCacheConfig returns the default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Capacity: 10000,
		TTL:      time.Hour,
	}
}

// NewCache creates an LRU cache with the given configuration.
func NewCache(cfg CacheConfig) *Cache {
	def := DefaultCacheConfig()
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}

	return &Cache{
		capacity: cfg.Capacity,
		ttl:      cfg.TTL,
		now:      time.Now,
		lru:      list.New(),
		items:    make(map[string]*list.Element, cfg.Capacity),
	}
}

// Get returns the cached location for ip, if present and not expired.
func (c *Cache) Get(ip string) (Location, bool) {
	if ip == "" {
		return Location{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[ip]
	if !ok {
		c.misses.Add(1)
		return Location{}, false
	}

	entry := elem.Value.(*cacheEntry)
	if c.now().After(entry.expiresAt) {
		c.lru.Remove(elem)
		delete(c.items, ip)
		c.misses.Add(1)
		return Location{}, false
	}

	c.lru.MoveToFront(elem)
	c.hits.Add(1)
	return entry.location, true
}

// Set stores loc for ip. Empty IPs are ignored.
func (c *Cache) Set(ip string, loc Location) {
	if ip == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[ip]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.location = loc
		entry.expiresAt = c.now().Add(c.ttl)
		c.lru.MoveToFront(elem)
		return
	}

	for c.lru.Len() >= c.capacity {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		delete(c.items, oldest.Value.(*cacheEntry).ip)
		c.lru.Remove(oldest)
		c.evicts.Add(1)
	}

	elem := c.lru.PushFront(&cacheEntry{
		ip:        ip,
		location:  loc,
		expiresAt: c.now().Add(c.ttl),
	})
	c.items[ip] = elem
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Size     int
	Capacity int
	Hits     uint64
	Misses   uint64
	Evicts   uint64
	HitRate  float64 // 0.0 to 1.0
}

// Stats returns current cache statistics.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	size := c.lru.Len()
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStats{
		Size:     size,
		Capacity: c.capacity,
		Hits:     hits,
		Misses:   misses,
		Evicts:   c.evicts.Load(),
		HitRate:  hitRate,
	}
}

// Clear removes all entries. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}
