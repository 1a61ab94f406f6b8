// Package ttlcache memoizes filesystem metadata for a short time so that a
// burst of lookups during a folder rescan costs one syscall per path.
package ttlcache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a metadata result stays fresh.
const DefaultTTL = 2 * time.Second

// LoadFunc computes the value for key.
type LoadFunc[V any] func(key string) (V, error)

type item[V any] struct {
	value     V
	fetchedAt time.Time
}

// Cache is a concurrent map of short-lived values. Concurrent callers that
// find a key missing or expired share a single load; a failed load leaves the
// slot empty so that the next caller retries.
type Cache[V any] struct {
	ttl   time.Duration
	now   func() time.Time
	items sync.Map // string -> *item[V]
	group singleflight.Group
}

// New creates a cache whose entries expire after ttl. A nil clock uses
// time.Now.
func New[V any](ttl time.Duration, clock func() time.Time) *Cache[V] {
	if clock == nil {
		clock = time.Now
	}
	return &Cache[V]{ttl: ttl, now: clock}
}

// Get returns the fresh value for key, calling load at most once per
// concurrent burst when the slot is missing or expired.
func (c *Cache[V]) Get(key string, load LoadFunc[V]) (V, error) {
	if v, ok := c.fresh(key); ok {
		return v, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		// A flight that finished between our check and Do already stored it.
		if v, ok := c.fresh(key); ok {
			return v, nil
		}

		v, err := load(key)
		if err != nil {
			c.items.Delete(key)
			return nil, err
		}
		c.items.Store(key, &item[V]{value: v, fetchedAt: c.now()})
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return result.(V), nil
}

func (c *Cache[V]) fresh(key string) (V, bool) {
	if raw, ok := c.items.Load(key); ok {
		it := raw.(*item[V])
		if c.now().Sub(it.fetchedAt) < c.ttl {
			return it.value, true
		}
		c.items.CompareAndDelete(key, raw)
	}
	var zero V
	return zero, false
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	c.items.Clear()
}

// Len counts stored entries, fresh or not.
func (c *Cache[V]) Len() int {
	n := 0
	c.items.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
