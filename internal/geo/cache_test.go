package geo

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCache_BasicOperations(t *testing.T) {
	cache := NewCache(CacheConfig{Capacity: 100, TTL: time.Hour})

	if _, ok := cache.Get("192.0.2.1"); ok {
		t.Error("expected cache miss on empty cache")
	}

	cache.Set("192.0.2.1", Location{Country: "US", Region: "California", City: "San Francisco"})

	loc, ok := cache.Get("192.0.2.1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if loc.Country != "US" || loc.Region != "California" || loc.City != "San Francisco" {
		t.Errorf("unexpected location %+v", loc)
	}
}

func TestCache_UpdateExisting(t *testing.T) {
	cache := NewCache(CacheConfig{Capacity: 100, TTL: time.Hour})

	cache.Set("10.0.0.1", Location{Country: "DE", Region: "Bavaria"})
	cache.Set("10.0.0.1", Location{Country: "DE", Region: "Berlin"})

	loc, ok := cache.Get("10.0.0.1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if loc.Region != "Berlin" {
		t.Errorf("expected updated region 'Berlin', got '%s'", loc.Region)
	}
	if stats := cache.Stats(); stats.Size != 1 {
		t.Errorf("expected size 1 after update, got %d", stats.Size)
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	cache := NewCache(CacheConfig{Capacity: 100, TTL: time.Minute})
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	cache.Set("203.0.113.4", Location{Country: "JP"})

	if _, ok := cache.Get("203.0.113.4"); !ok {
		t.Error("expected cache hit before TTL expiry")
	}

	now = now.Add(2 * time.Minute)

	if _, ok := cache.Get("203.0.113.4"); ok {
		t.Error("expected cache miss after TTL expiry")
	}
	if stats := cache.Stats(); stats.Size != 0 {
		t.Errorf("expired entry should be removed, size = %d", stats.Size)
	}
}

func TestCache_LRUEviction(t *testing.T) {
	cache := NewCache(CacheConfig{Capacity: 3, TTL: time.Hour})

	cache.Set("ip1", Location{Country: "A"})
	cache.Set("ip2", Location{Country: "B"})
	cache.Set("ip3", Location{Country: "C"})

	// ip1 becomes most recently used, so ip2 is evicted next
	cache.Get("ip1")
	cache.Set("ip4", Location{Country: "D"})

	for _, ip := range []string{"ip1", "ip3", "ip4"} {
		if _, ok := cache.Get(ip); !ok {
			t.Errorf("%s should still be in cache", ip)
		}
	}
	if _, ok := cache.Get("ip2"); ok {
		t.Error("ip2 should have been evicted")
	}
	if stats := cache.Stats(); stats.Evicts != 1 {
		t.Errorf("expected 1 eviction, got %d", stats.Evicts)
	}
}

func TestCache_Stats(t *testing.T) {
	cache := NewCache(CacheConfig{Capacity: 100, TTL: time.Hour})

	stats := cache.Stats()
	if stats.Size != 0 || stats.Hits != 0 || stats.Misses != 0 || stats.HitRate != 0 {
		t.Errorf("unexpected initial stats %+v", stats)
	}
	if stats.Capacity != 100 {
		t.Errorf("expected capacity 100, got %d", stats.Capacity)
	}

	cache.Set("ip1", Location{Country: "US"})
	cache.Set("ip2", Location{Country: "GB"})
	cache.Get("ip1")
	cache.Get("ip2")
	cache.Get("ip3")
	cache.Get("ip4")

	stats = cache.Stats()
	if stats.Size != 2 {
		t.Errorf("expected size 2, got %d", stats.Size)
	}
	if stats.Hits != 2 || stats.Misses != 2 {
		t.Errorf("expected 2 hits and 2 misses, got %d/%d", stats.Hits, stats.Misses)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("expected hit rate 0.5, got %v", stats.HitRate)
	}
}

func TestCache_EmptyIP(t *testing.T) {
	cache := NewCache(CacheConfig{})

	cache.Set("", Location{Country: "US"})
	if _, ok := cache.Get(""); ok {
		t.Error("empty IP should never hit")
	}
	stats := cache.Stats()
	if stats.Size != 0 || stats.Misses != 0 {
		t.Errorf("empty IP should not touch the cache, got %+v", stats)
	}
}

func TestCache_Defaults(t *testing.T) {
	cache := NewCache(CacheConfig{Capacity: -1, TTL: 0})
	def := DefaultCacheConfig()
	if cache.capacity != def.Capacity {
		t.Errorf("capacity = %d, want %d", cache.capacity, def.Capacity)
	}
	if cache.ttl != def.TTL {
		t.Errorf("ttl = %v, want %v", cache.ttl, def.TTL)
	}
}

func TestCache_Clear(t *testing.T) {
	cache := NewCache(CacheConfig{Capacity: 10, TTL: time.Hour})
	cache.Set("ip1", Location{Country: "US"})
	cache.Get("ip1")

	cache.Clear()

	if _, ok := cache.Get("ip1"); ok {
		t.Error("expected miss after Clear")
	}
	stats := cache.Stats()
	if stats.Size != 0 {
		t.Errorf("expected size 0 after Clear, got %d", stats.Size)
	}
	if stats.Hits != 1 {
		t.Errorf("Clear should keep counters, hits = %d", stats.Hits)
	}
}

func TestCache_Concurrent(t *testing.T) {
	cache := NewCache(CacheConfig{Capacity: 50, TTL: time.Hour})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				ip := fmt.Sprintf("10.%d.0.%d", g, i%100)
				cache.Set(ip, Location{Country: "US"})
				cache.Get(ip)
			}
		}(g)
	}
	wg.Wait()

	if stats := cache.Stats(); stats.Size > 50 {
		t.Errorf("size %d exceeds capacity", stats.Size)
	}
}
