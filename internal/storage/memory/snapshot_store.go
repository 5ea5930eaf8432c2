package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"lp-token-tracker/internal/domain"
	"lp-token-tracker/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.PoolSnapshotStore.
type SnapshotStore struct {
	mu     sync.RWMutex
	data   []*domain.PoolSnapshot
	nextID int64
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{nextID: 1}
}

// Insert appends a new snapshot and fills in its assigned ID.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.PoolSnapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.append(snap)
	return nil
}

// InsertAfter appends a new snapshot only if no snapshot newer than afterID
// exists. Returns ErrStaleSnapshot otherwise.
func (s *SnapshotStore) InsertAfter(_ context.Context, snap *domain.PoolSnapshot, afterID int64) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.data {
		if existing.ID > afterID {
			return storage.ErrStaleSnapshot
		}
	}

	s.append(snap)
	return nil
}

// append stores a copy of snap with a fresh ID. Caller holds the lock.
func (s *SnapshotStore) append(snap *domain.PoolSnapshot) {
	snap.ID = s.nextID
	s.nextID++

	snapCopy := *snap
	s.data = append(s.data, &snapCopy)
}

// Latest retrieves the most recent snapshot. Returns ErrNotFound if the
// ledger is empty.
func (s *SnapshotStore) Latest(_ context.Context) (*domain.PoolSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := s.latestLocked()
	if latest == nil {
		return nil, storage.ErrNotFound
	}

	snapCopy := *latest
	return &snapCopy, nil
}

// latestLocked returns the max-timestamp snapshot (max ID on ties).
// Caller holds at least the read lock.
func (s *SnapshotStore) latestLocked() *domain.PoolSnapshot {
	var latest *domain.PoolSnapshot
	for _, snap := range s.data {
		if latest == nil ||
			snap.Timestamp.After(latest.Timestamp) ||
			(snap.Timestamp.Equal(latest.Timestamp) && snap.ID > latest.ID) {
			latest = snap
		}
	}
	return latest
}

// FindByBalances retrieves a snapshot matching both balances exactly.
// Returns ErrNotFound if none matches.
func (s *SnapshotStore) FindByBalances(_ context.Context, runeChart, wbtcChart float64) (*domain.PoolSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *domain.PoolSnapshot
	for _, snap := range s.data {
		if snap.RuneChart == runeChart && snap.WbtcChart == wbtcChart {
			if found == nil || snap.Timestamp.After(found.Timestamp) ||
				(snap.Timestamp.Equal(found.Timestamp) && snap.ID > found.ID) {
				found = snap
			}
		}
	}
	if found == nil {
		return nil, storage.ErrNotFound
	}

	snapCopy := *found
	return &snapCopy, nil
}

// UpdateLatest overwrites the balances and timestamp of the most recent
// snapshot in place. Returns ErrNotFound if the ledger is empty.
func (s *SnapshotStore) UpdateLatest(_ context.Context, runeChart, wbtcChart float64, ts time.Time) (*domain.PoolSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest := s.latestLocked()
	if latest == nil {
		return nil, storage.ErrNotFound
	}

	latest.RuneChart = runeChart
	latest.WbtcChart = wbtcChart
	latest.Timestamp = ts

	snapCopy := *latest
	return &snapCopy, nil
}

// GetAll retrieves all snapshots, ordered by timestamp ASC.
func (s *SnapshotStore) GetAll(_ context.Context) ([]*domain.PoolSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.PoolSnapshot, 0, len(s.data))
	for _, snap := range s.data {
		snapCopy := *snap
		result = append(result, &snapCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.Before(result[j].Timestamp)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.PoolSnapshotStore = (*SnapshotStore)(nil)
