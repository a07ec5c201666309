package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/quoting/insurance"
	"github.com/liamcoop/quoting/rating"
)

func TestInMemoryCache_TTL(t *testing.T) {
	c := NewInMemoryCache(CacheConfig{TTL: time.Minute})
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, ok := c.Get(insurance.CyberLiability)
	assert.False(t, ok)

	c.Set(insurance.CyberLiability, Snapshot{Products: []rating.Product{*testProduct("p1", insurance.CyberLiability, true)}})

	snap, ok := c.Get(insurance.CyberLiability)
	require.True(t, ok)
	assert.Len(t, snap.Products, 1)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(insurance.CyberLiability)
	assert.False(t, ok)
}

func TestInMemoryCache_NoTTL(t *testing.T) {
	c := NewInMemoryCache(CacheConfig{})
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set(insurance.CyberLiability, Snapshot{})
	now = now.Add(24 * time.Hour)

	_, ok := c.Get(insurance.CyberLiability)
	assert.True(t, ok)
}

func TestInMemoryCache_Invalidate(t *testing.T) {
	c := NewInMemoryCache(DefaultCacheConfig())

	c.Set(insurance.CyberLiability, Snapshot{})
	c.Set(insurance.EventLiability, Snapshot{})

	c.Invalidate(insurance.CyberLiability)
	_, ok := c.Get(insurance.CyberLiability)
	assert.False(t, ok)
	_, ok = c.Get(insurance.EventLiability)
	assert.True(t, ok)

	c.InvalidateAll()
	_, ok = c.Get(insurance.EventLiability)
	assert.False(t, ok)
}

func TestInMemoryCache_ReturnsCopies(t *testing.T) {
	c := NewInMemoryCache(DefaultCacheConfig())
	c.Set(insurance.CyberLiability, Snapshot{Products: []rating.Product{*testProduct("p1", insurance.CyberLiability, true)}})

	snap, _ := c.Get(insurance.CyberLiability)
	snap.Products[0].InsurerName = "changed"
	snap.Products[0].Features[0] = "changed"

	again, _ := c.Get(insurance.CyberLiability)
	assert.Equal(t, "Insurer p1", again.Products[0].InsurerName)
	assert.Equal(t, "24/7 claims line", again.Products[0].Features[0])
}

// countingStore counts listing calls on the wrapped store.
type countingStore struct {
	Store
	listCalls int
	failList  bool
}

func (s *countingStore) ListActiveProducts(ctx context.Context, typ insurance.InsuranceType) ([]rating.Product, error) {
	s.listCalls++
	if s.failList {
		return nil, errors.New("connection refused")
	}
	return s.Store.ListActiveProducts(ctx, typ)
}

func TestCachedStore_ServesFromCache(t *testing.T) {
	ctx := context.Background()
	backend := &countingStore{Store: NewInMemoryStore()}
	store := NewCachedStore(backend, NewInMemoryCache(DefaultCacheConfig()))

	require.NoError(t, store.AddProduct(ctx, testProduct("p1", insurance.CyberLiability, true)))

	for i := 0; i < 3; i++ {
		products, err := store.ListActiveProducts(ctx, insurance.CyberLiability)
		require.NoError(t, err)
		assert.Len(t, products, 1)
		_, err = store.ListActiveFactors(ctx, insurance.CyberLiability)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, backend.listCalls)
}

func TestCachedStore_FactorWritesInvalidate(t *testing.T) {
	ctx := context.Background()
	store := NewCachedStore(NewInMemoryStore(), NewInMemoryCache(DefaultCacheConfig()))

	factors, err := store.ListActiveFactors(ctx, insurance.CyberLiability)
	require.NoError(t, err)
	assert.Empty(t, factors)

	require.NoError(t, store.AddFactor(ctx, testFactor("f1", insurance.CyberLiability, 0, true)))
	factors, err = store.ListActiveFactors(ctx, insurance.CyberLiability)
	require.NoError(t, err)
	assert.Len(t, factors, 1)

	moved := testFactor("f1", insurance.EventLiability, 0, true)
	require.NoError(t, store.UpdateFactor(ctx, moved))
	factors, err = store.ListActiveFactors(ctx, insurance.CyberLiability)
	require.NoError(t, err)
	assert.Empty(t, factors)

	factors, err = store.ListActiveFactors(ctx, insurance.EventLiability)
	require.NoError(t, err)
	assert.Len(t, factors, 1)

	require.NoError(t, store.DeleteFactor(ctx, "f1"))
	factors, err = store.ListActiveFactors(ctx, insurance.EventLiability)
	require.NoError(t, err)
	assert.Empty(t, factors)
}

func TestCachedStore_BackendErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	backend := &countingStore{Store: NewInMemoryStore(), failList: true}
	store := NewCachedStore(backend, NewInMemoryCache(DefaultCacheConfig()))

	_, err := store.ListActiveProducts(ctx, insurance.CyberLiability)
	require.Error(t, err)

	backend.failList = false
	_, err = store.ListActiveProducts(ctx, insurance.CyberLiability)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.listCalls)
}

// pausingStore holds its first factor listing, after reading, until release is closed.
type pausingStore struct {
	Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *pausingStore) ListActiveFactors(ctx context.Context, typ insurance.InsuranceType) ([]rating.RatingFactor, error) {
	factors, err := s.Store.ListActiveFactors(ctx, typ)
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	return factors, err
}

func TestCachedStore_WriteDuringLoadDropsLoadedSnapshot(t *testing.T) {
	ctx := context.Background()
	backend := &pausingStore{
		Store:   NewInMemoryStore(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	cache := NewInMemoryCache(CacheConfig{TTL: time.Hour})
	store := NewCachedStore(backend, cache)

	loaded := make(chan []rating.RatingFactor, 1)
	go func() {
		factors, _ := store.ListActiveFactors(ctx, insurance.CyberLiability)
		loaded <- factors
	}()

	<-backend.entered
	require.NoError(t, store.AddFactor(ctx, testFactor("f1", insurance.CyberLiability, 0, true)))
	close(backend.release)

	assert.Empty(t, <-loaded)

	_, cached := cache.Get(insurance.CyberLiability)
	assert.False(t, cached, "snapshot read before the write must not be cached")

	factors, err := store.ListActiveFactors(ctx, insurance.CyberLiability)
	require.NoError(t, err)
	assert.Len(t, factors, 1)

	_, cached = cache.Get(insurance.CyberLiability)
	assert.True(t, cached)
}
