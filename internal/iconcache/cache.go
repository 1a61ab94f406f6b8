// Package iconcache holds the last icon produced for each shortcut together
// with the timestamps that produced it.
package iconcache

import (
	"sync"

	"golang.org/x/text/cases"
)

// Key normalizes a source path into a cache key. Paths are compared
// case-insensitively, as the shortcut folder lives on a case-insensitive
// filesystem.
func Key(path string) string {
	return cases.Fold().String(path)
}

// Cache is a concurrent map from folded source path to Entry.
type Cache struct {
	entries sync.Map // string -> Entry
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{}
}

// Get returns the entry stored for path.
func (c *Cache) Get(path string) (Entry, bool) {
	raw, ok := c.entries.Load(Key(path))
	if !ok {
		return Entry{}, false
	}
	return raw.(Entry), true
}

// Put replaces the entry stored for path.
func (c *Cache) Put(path string, entry Entry) {
	c.entries.Store(Key(path), entry)
}

// Prune removes every entry whose key is not among active and returns how
// many were removed.
func (c *Cache) Prune(active []string) int {
	keep := make(map[string]struct{}, len(active))
	for _, p := range active {
		keep[Key(p)] = struct{}{}
	}

	removed := 0
	c.entries.Range(func(k, _ any) bool {
		if _, ok := keep[k.(string)]; !ok {
			c.entries.Delete(k)
			removed++
		}
		return true
	})
	return removed
}

// Len counts cached entries.
func (c *Cache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
