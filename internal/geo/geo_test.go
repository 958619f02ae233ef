package geo

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_EmptyPathDisablesLookups(t *testing.T) {
	loc, err := Open("", DefaultCacheConfig())
	if err != nil {
		t.Fatalf("Open(\"\") error = %v", err)
	}
	if loc != nil {
		t.Fatal("Open(\"\") should return a nil Locator")
	}

	if got := loc.Lookup("8.8.8.8"); got != (Location{}) {
		t.Errorf("nil Locator Lookup = %+v, want empty", got)
	}
	if got := loc.Country("8.8.8.8"); got != "" {
		t.Errorf("nil Locator Country = %q, want empty", got)
	}
	if _, ok := loc.CacheStats(); ok {
		t.Error("nil Locator should report no cache stats")
	}
	if err := loc.Close(); err != nil {
		t.Errorf("nil Locator Close = %v", err)
	}
}

func TestOpen_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.mmdb")
	if _, err := Open(path, DefaultCacheConfig()); err == nil {
		t.Fatal("expected error for missing database")
	}
}

func TestOpen_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.mmdb")
	if err := os.WriteFile(path, []byte("not a maxmind database"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path, DefaultCacheConfig()); err == nil {
		t.Fatal("expected error for invalid database")
	}
}
