package memory

import (
	"context"
	"sort"
	"sync"

	"lp-token-tracker/internal/domain"
	"lp-token-tracker/internal/storage"
)

// ProviderStore is an in-memory implementation of storage.ProviderStore.
type ProviderStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Provider // keyed by address
}

// NewProviderStore creates a new in-memory provider store.
func NewProviderStore() *ProviderStore {
	return &ProviderStore{
		data: make(map[string]*domain.Provider),
	}
}

// Upsert inserts a new provider or fully replaces the existing row with the
// same address. Reports whether a new row was created.
func (s *ProviderStore) Upsert(_ context.Context, p *domain.Provider) (bool, error) {
	if p == nil || p.Address == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// lp_token_key must stay unique across addresses
	for addr, existing := range s.data {
		if addr != p.Address && existing.LPTokenKey == p.LPTokenKey {
			return false, storage.ErrDuplicateKey
		}
	}

	_, exists := s.data[p.Address]

	// Store a copy to prevent external mutation
	providerCopy := *p
	s.data[p.Address] = &providerCopy
	return !exists, nil
}

// GetByAddress retrieves a provider by address. Returns ErrNotFound if not exists.
func (s *ProviderStore) GetByAddress(_ context.Context, address string) (*domain.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[address]
	if !exists {
		return nil, storage.ErrNotFound
	}

	providerCopy := *p
	return &providerCopy, nil
}

// GetAll retrieves all providers, ordered by address ASC.
func (s *ProviderStore) GetAll(_ context.Context) ([]*domain.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Provider
	for _, p := range s.data {
		providerCopy := *p
		result = append(result, &providerCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Address < result[j].Address
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.ProviderStore = (*ProviderStore)(nil)
