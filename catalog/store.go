package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/liamcoop/quoting/insurance"
	"github.com/liamcoop/quoting/rating"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Store reads and maintains the product and rating-factor catalog.
type Store interface {
	AddProduct(ctx context.Context, p *rating.Product) error
	GetProduct(ctx context.Context, id string) (*rating.Product, error)
	// ListActiveProducts returns the active products of typ.
	ListActiveProducts(ctx context.Context, typ insurance.InsuranceType) ([]rating.Product, error)

	AddFactor(ctx context.Context, f *rating.RatingFactor) error
	GetFactor(ctx context.Context, id string) (*rating.RatingFactor, error)
	UpdateFactor(ctx context.Context, f *rating.RatingFactor) error
	DeleteFactor(ctx context.Context, id string) error
	// ListActiveFactors returns the active factors of typ ordered by ApplyOrder,
	// then by creation.
	ListActiveFactors(ctx context.Context, typ insurance.InsuranceType) ([]rating.RatingFactor, error)
}

// InMemoryStore implements Store with maps guarded by a RWMutex.
// Listings keep insertion order.
type InMemoryStore struct {
	products     map[string]rating.Product
	productOrder []string
	factors      map[string]rating.RatingFactor
	factorOrder  []string
	mu           sync.RWMutex
}

// NewInMemoryStore creates an empty catalog.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		products: make(map[string]rating.Product),
		factors:  make(map[string]rating.RatingFactor),
	}
}

// AddProduct validates and stores p, assigning an ID when it has none.
// CreatedAt and UpdatedAt are set on p.
func (s *InMemoryStore) AddProduct(_ context.Context, p *rating.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[p.ID]; exists {
		return fmt.Errorf("product %s: %w", p.ID, ErrAlreadyExists)
	}

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.products[p.ID] = cloneProduct(*p)
	s.productOrder = append(s.productOrder, p.ID)
	return nil
}

func (s *InMemoryStore) GetProduct(_ context.Context, id string) (*rating.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.products[id]
	if !exists {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	out := cloneProduct(p)
	return &out, nil
}

func (s *InMemoryStore) ListActiveProducts(_ context.Context, typ insurance.InsuranceType) ([]rating.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := []rating.Product{}
	for _, id := range s.productOrder {
		p := s.products[id]
		if p.IsActive && p.InsuranceType == typ {
			active = append(active, cloneProduct(p))
		}
	}
	return active, nil
}

// AddFactor validates and stores f, assigning an ID when it has none.
func (s *InMemoryStore) AddFactor(_ context.Context, f *rating.RatingFactor) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.factors[f.ID]; exists {
		return fmt.Errorf("rating factor %s: %w", f.ID, ErrAlreadyExists)
	}

	now := time.Now()
	f.CreatedAt = now
	f.UpdatedAt = now
	s.factors[f.ID] = *f
	s.factorOrder = append(s.factorOrder, f.ID)
	return nil
}

func (s *InMemoryStore) GetFactor(_ context.Context, id string) (*rating.RatingFactor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, exists := s.factors[id]
	if !exists {
		return nil, fmt.Errorf("rating factor %s: %w", id, ErrNotFound)
	}
	return &f, nil
}

// UpdateFactor replaces the stored factor with the same ID.
// CreatedAt is preserved and UpdatedAt refreshed.
func (s *InMemoryStore) UpdateFactor(_ context.Context, f *rating.RatingFactor) error {
	if err := f.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.factors[f.ID]
	if !exists {
		return fmt.Errorf("rating factor %s: %w", f.ID, ErrNotFound)
	}

	f.CreatedAt = existing.CreatedAt
	f.UpdatedAt = time.Now()
	s.factors[f.ID] = *f
	return nil
}

func (s *InMemoryStore) DeleteFactor(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.factors[id]; !exists {
		return fmt.Errorf("rating factor %s: %w", id, ErrNotFound)
	}

	delete(s.factors, id)
	s.factorOrder = slices.DeleteFunc(s.factorOrder, func(x string) bool { return x == id })
	return nil
}

func (s *InMemoryStore) ListActiveFactors(_ context.Context, typ insurance.InsuranceType) ([]rating.RatingFactor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := []rating.RatingFactor{}
	for _, id := range s.factorOrder {
		f := s.factors[id]
		if f.IsActive && f.InsuranceType == typ {
			active = append(active, f)
		}
	}
	slices.SortStableFunc(active, func(a, b rating.RatingFactor) int {
		return a.ApplyOrder - b.ApplyOrder
	})
	return active, nil
}

func cloneProduct(p rating.Product) rating.Product {
	p.Features = slices.Clone(p.Features)
	return p
}
