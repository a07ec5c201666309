package catalog

import (
	"slices"
	"sync"
	"time"

	"github.com/liamcoop/quoting/insurance"
)

type cacheEntry struct {
	snap     Snapshot
	cachedAt time.Time
}

// InMemoryCache is a Cache kept in process memory.
// Thread-safe for concurrent access
type InMemoryCache struct {
	entries map[insurance.InsuranceType]cacheEntry
	config  CacheConfig
	now     func() time.Time
	mu      sync.RWMutex
}

// NewInMemoryCache creates an empty cache.
func NewInMemoryCache(config CacheConfig) *InMemoryCache {
	return &InMemoryCache{
		entries: make(map[insurance.InsuranceType]cacheEntry),
		config:  config,
		now:     time.Now,
	}
}

func (c *InMemoryCache) Get(typ insurance.InsuranceType) (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[typ]
	if !ok {
		return Snapshot{}, false
	}
	if c.config.TTL > 0 && c.now().Sub(e.cachedAt) > c.config.TTL {
		return Snapshot{}, false
	}

	// Return copy to prevent external modifications
	return copySnapshot(e.snap), true
}

func (c *InMemoryCache) Set(typ insurance.InsuranceType, snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[typ] = cacheEntry{snap: copySnapshot(snap), cachedAt: c.now()}
}

func (c *InMemoryCache) Invalidate(typ insurance.InsuranceType) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, typ)
}

func (c *InMemoryCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
}

func copySnapshot(s Snapshot) Snapshot {
	out := Snapshot{
		Products: slices.Clone(s.Products),
		Factors:  slices.Clone(s.Factors),
	}
	for i := range out.Products {
		out.Products[i] = cloneProduct(out.Products[i])
	}
	return out
}
