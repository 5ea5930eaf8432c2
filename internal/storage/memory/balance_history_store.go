package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"lp-token-tracker/internal/domain"
	"lp-token-tracker/internal/storage"
)

// BalanceHistoryStore is an in-memory implementation of storage.BalanceHistoryStore.
type BalanceHistoryStore struct {
	mu   sync.RWMutex
	data []*domain.BalancePoint
}

// NewBalanceHistoryStore creates a new in-memory balance history store.
func NewBalanceHistoryStore() *BalanceHistoryStore {
	return &BalanceHistoryStore{}
}

// Insert records one balance point.
func (s *BalanceHistoryStore) Insert(_ context.Context, p *domain.BalancePoint) error {
	if p == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pointCopy := *p
	s.data = append(s.data, &pointCopy)
	return nil
}

// GetByTimeRange retrieves points within [start, end] (inclusive), ordered by
// timestamp ASC.
func (s *BalanceHistoryStore) GetByTimeRange(_ context.Context, start, end time.Time) ([]*domain.BalancePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BalancePoint
	for _, p := range s.data {
		if !p.Timestamp.Before(start) && !p.Timestamp.After(end) {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.BalanceHistoryStore = (*BalanceHistoryStore)(nil)
