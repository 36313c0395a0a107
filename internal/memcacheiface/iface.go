package memcacheiface

import "github.com/bradfitz/gomemcache/memcache"

// Client is the subset of *memcache.Client the stats recorder needs, so unit
// tests can swap in a mock.
type Client interface {
	Get(key string) (*memcache.Item, error)
	Add(item *memcache.Item) error
	Increment(key string, delta uint64) (newValue uint64, err error)
}

var _ Client = (*memcache.Client)(nil)
