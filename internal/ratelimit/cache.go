package ratelimit

import (
	"sync"
	"time"
)

type cacheEntry struct {
	bucket     *Bucket
	lastAccess time.Time
}

// Cache holds buckets keyed by (subject, route class). Buckets are created
// lazily on first access and evicted by Prune after sitting idle; state is
// process-local, so limits are per instance.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	idleTTL time.Duration
}

func NewCache(idleTTL time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]*cacheEntry),
		idleTTL: idleTTL,
	}
}

// GetOrCreate returns the bucket for key, creating it with create on first
// observation. Concurrent first accesses for the same key resolve to a
// single bucket instance.
func (c *Cache) GetOrCreate(key string, create func() *Bucket) *Bucket {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		entry = &cacheEntry{bucket: create()}
		c.entries[key] = entry
	}
	entry.lastAccess = time.Now()

	return entry.bucket
}

// Prune evicts buckets idle longer than the configured TTL and returns the
// number removed.
func (c *Cache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-c.idleTTL)
	removed := 0
	for key, entry := range c.entries {
		if entry.lastAccess.Before(cutoff) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
