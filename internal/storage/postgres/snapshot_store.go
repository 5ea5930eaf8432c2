package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"lp-token-tracker/internal/domain"
	"lp-token-tracker/internal/storage"
)

// SnapshotStore implements storage.PoolSnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PoolSnapshotStore = (*SnapshotStore)(nil)

// Insert appends a new snapshot and fills in its assigned ID.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.PoolSnapshot) error {
	query := `
		INSERT INTO pool_snapshots (rune_chart, wbtc_chart, ts)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	err := s.pool.QueryRow(ctx, query, snap.RuneChart, snap.WbtcChart, snap.Timestamp).Scan(&snap.ID)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// InsertAfter appends a new snapshot only if no snapshot newer than afterID
// exists. Returns ErrStaleSnapshot otherwise. The NOT EXISTS guard and the
// insert run as one statement, so concurrent appenders cannot both derive
// from the same parent.
func (s *SnapshotStore) InsertAfter(ctx context.Context, snap *domain.PoolSnapshot, afterID int64) error {
	query := `
		INSERT INTO pool_snapshots (rune_chart, wbtc_chart, ts)
		SELECT $1, $2, $3
		WHERE NOT EXISTS (SELECT 1 FROM pool_snapshots WHERE id > $4)
		RETURNING id
	`

	err := s.pool.QueryRow(ctx, query, snap.RuneChart, snap.WbtcChart, snap.Timestamp, afterID).Scan(&snap.ID)
	if err != nil {
		if isNotFoundError(err) {
			return storage.ErrStaleSnapshot
		}
		return fmt.Errorf("insert snapshot after %d: %w", afterID, err)
	}
	return nil
}

// Latest retrieves the most recent snapshot. Returns ErrNotFound if the
// ledger is empty.
func (s *SnapshotStore) Latest(ctx context.Context) (*domain.PoolSnapshot, error) {
	query := `
		SELECT id, rune_chart, wbtc_chart, ts
		FROM pool_snapshots
		ORDER BY ts DESC, id DESC
		LIMIT 1
	`

	snap, err := scanSnapshot(s.pool.QueryRow(ctx, query))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	return snap, nil
}

// FindByBalances retrieves a snapshot matching both balances exactly.
// Returns ErrNotFound if none matches.
func (s *SnapshotStore) FindByBalances(ctx context.Context, runeChart, wbtcChart float64) (*domain.PoolSnapshot, error) {
	query := `
		SELECT id, rune_chart, wbtc_chart, ts
		FROM pool_snapshots
		WHERE rune_chart = $1 AND wbtc_chart = $2
		ORDER BY ts DESC, id DESC
		LIMIT 1
	`

	snap, err := scanSnapshot(s.pool.QueryRow(ctx, query, runeChart, wbtcChart))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("find snapshot by balances: %w", err)
	}
	return snap, nil
}

// UpdateLatest overwrites the balances and timestamp of the most recent
// snapshot in place. Returns ErrNotFound if the ledger is empty.
func (s *SnapshotStore) UpdateLatest(ctx context.Context, runeChart, wbtcChart float64, ts time.Time) (*domain.PoolSnapshot, error) {
	query := `
		UPDATE pool_snapshots
		SET rune_chart = $1, wbtc_chart = $2, ts = $3
		WHERE id = (
			SELECT id FROM pool_snapshots ORDER BY ts DESC, id DESC LIMIT 1
		)
		RETURNING id, rune_chart, wbtc_chart, ts
	`

	snap, err := scanSnapshot(s.pool.QueryRow(ctx, query, runeChart, wbtcChart, ts))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("update latest snapshot: %w", err)
	}
	return snap, nil
}

// GetAll retrieves all snapshots, ordered by timestamp ASC.
func (s *SnapshotStore) GetAll(ctx context.Context) ([]*domain.PoolSnapshot, error) {
	query := `
		SELECT id, rune_chart, wbtc_chart, ts
		FROM pool_snapshots
		ORDER BY ts ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.PoolSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snaps = append(snaps, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snaps, nil
}

// scanSnapshot scans a single row into a PoolSnapshot.
func scanSnapshot(row pgx.Row) (*domain.PoolSnapshot, error) {
	var snap domain.PoolSnapshot

	err := row.Scan(
		&snap.ID,
		&snap.RuneChart,
		&snap.WbtcChart,
		&snap.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	snap.Timestamp = snap.Timestamp.UTC()
	return &snap, nil
}
