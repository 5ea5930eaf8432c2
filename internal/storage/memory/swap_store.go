package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"lp-token-tracker/internal/domain"
	"lp-token-tracker/internal/storage"
)

// SwapStore is an in-memory implementation of storage.SwapStore.
type SwapStore struct {
	mu   sync.RWMutex
	data map[uuid.UUID]*domain.Swap
}

// NewSwapStore creates a new in-memory swap store.
func NewSwapStore() *SwapStore {
	return &SwapStore{
		data: make(map[uuid.UUID]*domain.Swap),
	}
}

// Insert adds a new swap, assigning an ID if it has none.
// Returns ErrDuplicateKey if the ID already exists.
func (s *SwapStore) Insert(_ context.Context, swap *domain.Swap) error {
	if swap == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if swap.ID == uuid.Nil {
		swap.ID = uuid.New()
	}

	if _, exists := s.data[swap.ID]; exists {
		return storage.ErrDuplicateKey
	}

	swapCopy := *swap
	s.data[swap.ID] = &swapCopy
	return nil
}

// GetAll retrieves all swaps, ordered by timestamp ASC.
func (s *SwapStore) GetAll(_ context.Context) ([]*domain.Swap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Swap
	for _, swap := range s.data {
		swapCopy := *swap
		result = append(result, &swapCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.Before(result[j].Timestamp)
		}
		return result[i].ID.String() < result[j].ID.String()
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.SwapStore = (*SwapStore)(nil)
