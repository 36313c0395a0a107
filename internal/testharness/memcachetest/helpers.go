package memcachetest

import (
	"errors"
	"os"
	"testing"

	"github.com/bradfitz/gomemcache/memcache"
)

// GetMemcachedAddress returns the Memcached address, defaulting to "localhost:11211".
// If MEMCACHED_ADDR environment variable is set, it's used.
// If CI environment variable is "true", it defaults to "memcached:11211".
func GetMemcachedAddress() string {
	if addr := os.Getenv("MEMCACHED_ADDR"); addr != "" {
		return addr
	}
	if os.Getenv("CI") == "true" {
		return "memcached:11211"
	}
	return "localhost:11211"
}

// SetupMemcachedClient returns a client for integration tests, skipping the
// test when no Memcached server answers.
func SetupMemcachedClient(t *testing.T) *memcache.Client {
	t.Helper()
	addr := GetMemcachedAddress()
	t.Logf("Connecting to Memcached for integration tests at %s", addr)

	mc := memcache.New(addr)
	if err := mc.Ping(); err != nil {
		t.Skipf("Memcached not reachable at %s: %v", addr, err)
	}
	return mc
}

// CleanupMemcachedKeys deletes the given keys, ignoring ones already gone.
func CleanupMemcachedKeys(t *testing.T, client *memcache.Client, keys []string) {
	t.Helper()
	for _, key := range keys {
		if err := client.Delete(key); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
			t.Logf("Warning: Failed to delete Memcached key '%s': %v", key, err)
		}
	}
}
