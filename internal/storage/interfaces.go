package storage

import (
	"context"
	"time"

	"lp-token-tracker/internal/domain"
)

// ProviderStore provides access to providers storage.
type ProviderStore interface {
	// Upsert inserts a new provider or fully replaces the existing row with
	// the same address, refreshing its timestamp. Reports whether a new row
	// was created. Returns ErrDuplicateKey if the replace would violate the
	// lp_token_key unique constraint.
	Upsert(ctx context.Context, p *domain.Provider) (created bool, err error)

	// GetByAddress retrieves a provider by address. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, address string) (*domain.Provider, error)

	// GetAll retrieves all providers, ordered by address ASC.
	GetAll(ctx context.Context) ([]*domain.Provider, error)
}

// PoolSnapshotStore provides access to pool_snapshots storage.
type PoolSnapshotStore interface {
	// Insert appends a new snapshot and fills in its assigned ID.
	Insert(ctx context.Context, s *domain.PoolSnapshot) error

	// InsertAfter appends a new snapshot only if no snapshot newer than
	// afterID exists. Returns ErrStaleSnapshot otherwise.
	InsertAfter(ctx context.Context, s *domain.PoolSnapshot, afterID int64) error

	// Latest retrieves the most recent snapshot. Returns ErrNotFound if the
	// ledger is empty.
	Latest(ctx context.Context) (*domain.PoolSnapshot, error)

	// FindByBalances retrieves a snapshot matching both balances exactly.
	// Returns ErrNotFound if none matches.
	FindByBalances(ctx context.Context, runeChart, wbtcChart float64) (*domain.PoolSnapshot, error)

	// UpdateLatest overwrites the balances and timestamp of the most recent
	// snapshot in place. Returns ErrNotFound if the ledger is empty.
	UpdateLatest(ctx context.Context, runeChart, wbtcChart float64, ts time.Time) (*domain.PoolSnapshot, error)

	// GetAll retrieves all snapshots, ordered by timestamp ASC.
	GetAll(ctx context.Context) ([]*domain.PoolSnapshot, error)
}

// SwapStore provides access to swaps storage.
type SwapStore interface {
	// Insert adds a new swap, assigning an ID if it has none.
	// Returns ErrDuplicateKey if the ID already exists.
	Insert(ctx context.Context, s *domain.Swap) error

	// GetAll retrieves all swaps, ordered by timestamp ASC.
	GetAll(ctx context.Context) ([]*domain.Swap, error)
}

// BalanceHistoryStore provides access to the balance-history chart archive.
type BalanceHistoryStore interface {
	// Insert records one balance point.
	Insert(ctx context.Context, p *domain.BalancePoint) error

	// GetByTimeRange retrieves points within [start, end] (inclusive),
	// ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.BalancePoint, error)
}
