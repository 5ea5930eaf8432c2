package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"lp-token-tracker/internal/domain"
	"lp-token-tracker/internal/storage"
)

// SwapStore implements storage.SwapStore using PostgreSQL.
type SwapStore struct {
	pool *Pool
}

// NewSwapStore creates a new SwapStore.
func NewSwapStore(pool *Pool) *SwapStore {
	return &SwapStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SwapStore = (*SwapStore)(nil)

// Insert adds a new swap, assigning an ID if it has none.
// Returns ErrDuplicateKey if the ID already exists.
func (s *SwapStore) Insert(ctx context.Context, swap *domain.Swap) error {
	if swap.ID == uuid.Nil {
		swap.ID = uuid.New()
	}

	query := `
		INSERT INTO swaps (
			id, direction, amount, rate, address, estimated_amount, transaction_fee, ts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		swap.ID,
		swap.Direction,
		swap.Amount,
		swap.Rate,
		swap.Address,
		swap.EstimatedAmount,
		swap.TransactionFee,
		swap.Timestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert swap: %w", err)
	}
	return nil
}

// GetAll retrieves all swaps, ordered by timestamp ASC.
func (s *SwapStore) GetAll(ctx context.Context) ([]*domain.Swap, error) {
	query := `
		SELECT id, direction, amount, rate, address, estimated_amount, transaction_fee, ts
		FROM swaps
		ORDER BY ts ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all swaps: %w", err)
	}
	defer rows.Close()

	return scanSwaps(rows)
}

// scanSwaps scans multiple rows into a slice of Swap.
func scanSwaps(rows pgx.Rows) ([]*domain.Swap, error) {
	var swaps []*domain.Swap

	for rows.Next() {
		var swap domain.Swap

		err := rows.Scan(
			&swap.ID,
			&swap.Direction,
			&swap.Amount,
			&swap.Rate,
			&swap.Address,
			&swap.EstimatedAmount,
			&swap.TransactionFee,
			&swap.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan swap row: %w", err)
		}

		swap.Timestamp = swap.Timestamp.UTC()
		swaps = append(swaps, &swap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swap rows: %w", err)
	}

	return swaps, nil
}
