// Package geo resolves client IP addresses to countries using a MaxMind
// database. A nil *Locator is valid and resolves nothing.
package geo

import (
	"fmt"
	"net"

	"github.com/oschwald/maxminddb-golang"
)

// Location is the result of a lookup. Empty fields mean unknown.
type Location struct {
	Country string `json:"country,omitempty"` // ISO 3166-1 alpha-2
	Region  string `json:"region,omitempty"`
	City    string `json:"city,omitempty"`
}

type record struct {
	Country struct {
		ISO string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	Subdivisions []struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"subdivisions"`
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
}

// Locator looks up IP addresses with a cache in front of the database.
type Locator struct {
	db    *maxminddb.Reader
	cache *Cache
}

// Open opens the MaxMind database at path. An empty path disables lookups
// and returns a nil Locator without error.
func Open(path string, cfg CacheConfig) (*Locator, error) {
	if path == "" {
		return nil, nil
	}
	db, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geo database %s: %w", path, err)
	}
	return &Locator{db: db, cache: NewCache(cfg)}, nil
}

// Lookup resolves ip. Unparseable addresses and lookup failures yield an
// empty Location; failures are cached too.
func (l *Locator) Lookup(ip string) Location {
	if l == nil || l.db == nil || ip == "" {
		return Location{}
	}
	if loc, ok := l.cache.Get(ip); ok {
		return loc
	}

	loc := l.lookupDB(ip)
	l.cache.Set(ip, loc)
	return loc
}

// Country is shorthand for Lookup(ip).Country.
func (l *Locator) Country(ip string) string {
	return l.Lookup(ip).Country
}

func (l *Locator) lookupDB(ip string) Location {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Location{}
	}
	var rec record
	if err := l.db.Lookup(parsed, &rec); err != nil {
		return Location{}
	}
	loc := Location{
		Country: rec.Country.ISO,
		City:    rec.City.Names["en"],
	}
	if len(rec.Subdivisions) > 0 {
		loc.Region = rec.Subdivisions[0].Names["en"]
	}
	return loc
}

// CacheStats reports cache statistics. ok is false when lookups are disabled.
func (l *Locator) CacheStats() (stats CacheStats, ok bool) {
	if l == nil || l.cache == nil {
		return CacheStats{}, false
	}
	return l.cache.Stats(), true
}

// Close releases the database.
func (l *Locator) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}
