package catalog

import (
	"context"
	"sync"

	"github.com/liamcoop/quoting/insurance"
	"github.com/liamcoop/quoting/rating"
)

// CachedStore serves active listings from a Cache and drops the affected
// insurance type on every write.
//
// Every write bumps a per-type generation. A snapshot loaded while the
// generation moved is returned to its caller but never cached.
type CachedStore struct {
	Store
	cache Cache

	mu          sync.Mutex
	generations map[insurance.InsuranceType]uint64
}

// NewCachedStore wraps store with cache.
func NewCachedStore(store Store, cache Cache) *CachedStore {
	return &CachedStore{
		Store:       store,
		cache:       cache,
		generations: make(map[insurance.InsuranceType]uint64),
	}
}

func (s *CachedStore) generation(typ insurance.InsuranceType) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[typ]
}

// invalidate must run after the backing write has completed.
func (s *CachedStore) invalidate(types ...insurance.InsuranceType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, typ := range types {
		s.generations[typ]++
		s.cache.Invalidate(typ)
	}
}

func (s *CachedStore) snapshot(ctx context.Context, typ insurance.InsuranceType) (Snapshot, error) {
	if snap, ok := s.cache.Get(typ); ok {
		return snap, nil
	}

	gen := s.generation(typ)
	products, err := s.Store.ListActiveProducts(ctx, typ)
	if err != nil {
		return Snapshot{}, err
	}
	factors, err := s.Store.ListActiveFactors(ctx, typ)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{Products: products, Factors: factors}
	s.mu.Lock()
	if s.generations[typ] == gen {
		s.cache.Set(typ, snap)
	}
	s.mu.Unlock()
	return snap, nil
}

func (s *CachedStore) ListActiveProducts(ctx context.Context, typ insurance.InsuranceType) ([]rating.Product, error) {
	snap, err := s.snapshot(ctx, typ)
	if err != nil {
		return nil, err
	}
	return snap.Products, nil
}

func (s *CachedStore) ListActiveFactors(ctx context.Context, typ insurance.InsuranceType) ([]rating.RatingFactor, error) {
	snap, err := s.snapshot(ctx, typ)
	if err != nil {
		return nil, err
	}
	return snap.Factors, nil
}

func (s *CachedStore) AddProduct(ctx context.Context, p *rating.Product) error {
	if err := s.Store.AddProduct(ctx, p); err != nil {
		return err
	}
	s.invalidate(p.InsuranceType)
	return nil
}

func (s *CachedStore) AddFactor(ctx context.Context, f *rating.RatingFactor) error {
	if err := s.Store.AddFactor(ctx, f); err != nil {
		return err
	}
	s.invalidate(f.InsuranceType)
	return nil
}

// UpdateFactor also drops the factor's previous insurance type when it moves.
func (s *CachedStore) UpdateFactor(ctx context.Context, f *rating.RatingFactor) error {
	prev, err := s.Store.GetFactor(ctx, f.ID)
	if err != nil {
		return err
	}
	if err := s.Store.UpdateFactor(ctx, f); err != nil {
		return err
	}
	s.invalidate(prev.InsuranceType, f.InsuranceType)
	return nil
}

func (s *CachedStore) DeleteFactor(ctx context.Context, id string) error {
	prev, err := s.Store.GetFactor(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Store.DeleteFactor(ctx, id); err != nil {
		return err
	}
	s.invalidate(prev.InsuranceType)
	return nil
}
