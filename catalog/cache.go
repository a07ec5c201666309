package catalog

import (
	"time"

	"github.com/liamcoop/quoting/insurance"
	"github.com/liamcoop/quoting/rating"
)

// Snapshot is the active catalog of one insurance type.
type Snapshot struct {
	Products []rating.Product
	Factors  []rating.RatingFactor
}

// Cache holds catalog snapshots per insurance type.
// This allows swapping the in-memory implementation for a shared one.
type Cache interface {
	// Get returns the cached snapshot of typ, or false on a miss or expiry.
	Get(typ insurance.InsuranceType) (Snapshot, bool)

	Set(typ insurance.InsuranceType, snap Snapshot)

	// Invalidate drops typ, forcing a reload on the next read.
	Invalidate(typ insurance.InsuranceType)

	InvalidateAll()
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL is the time-to-live for cached snapshots.
	// Set to 0 for no expiration (invalidation on writes only).
	TTL time.Duration
}

// DefaultCacheConfig returns the cache settings used when none are configured.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{TTL: 5 * time.Minute}
}
