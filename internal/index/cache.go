package index

import (
	"encoding/json"
	"time"
)

// ResultCache is a short-lived cache of search results, keyed by the
// serialized query. It stores ids only; results are re-materialised from
// the store so retrieval side effects stay visible. Any record-store
// mutation must Clear the cache wholesale; that is the simplest policy that
// can never serve stale pages.
type ResultCache struct {
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	ids     []string
	expires time.Time
}

// NewResultCache creates a cache with the given entry TTL.
func NewResultCache(ttl time.Duration) *ResultCache {
	return &ResultCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Key serialises a query into its cache key.
func Key(q Query) string {
	raw, err := json.Marshal(q)
	if err != nil {
		return ""
	}
	return string(raw)
}

// Get returns the cached result ids for key, if present and fresh.
func (c *ResultCache) Get(key string, now time.Time) ([]string, bool) {
	if key == "" {
		return nil, false
	}
	e, ok := c.entries[key]
	if !ok || now.After(e.expires) {
		return nil, false
	}
	return e.ids, true
}

// Put stores result ids for key.
func (c *ResultCache) Put(key string, ids []string, now time.Time) {
	if key == "" {
		return
	}
	c.entries[key] = cacheEntry{ids: ids, expires: now.Add(c.ttl)}
}

// Clear drops every entry.
func (c *ResultCache) Clear() {
	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of cached entries.
func (c *ResultCache) Len() int { return len(c.entries) }
