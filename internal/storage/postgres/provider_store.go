package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lp-token-tracker/internal/domain"
	"lp-token-tracker/internal/storage"
)

// ProviderStore implements storage.ProviderStore using PostgreSQL.
type ProviderStore struct {
	pool *Pool
}

// NewProviderStore creates a new ProviderStore.
func NewProviderStore(pool *Pool) *ProviderStore {
	return &ProviderStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ProviderStore = (*ProviderStore)(nil)

// Upsert inserts a new provider or fully replaces the existing row with the
// same address. Reports whether a new row was created. A conflict on
// lp_token_key (held by a different address) returns ErrDuplicateKey.
func (s *ProviderStore) Upsert(ctx context.Context, p *domain.Provider) (bool, error) {
	query := `
		INSERT INTO providers (
			provider_address, amount_wbtc, amount_rune, lp_token_key, updated_at
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider_address) DO UPDATE SET
			amount_wbtc  = EXCLUDED.amount_wbtc,
			amount_rune  = EXCLUDED.amount_rune,
			lp_token_key = EXCLUDED.lp_token_key,
			updated_at   = EXCLUDED.updated_at
		RETURNING (xmax = 0)
	`

	var created bool
	err := s.pool.QueryRow(ctx, query,
		p.Address,
		p.AmountWBTC,
		p.AmountRUNE,
		p.LPTokenKey,
		p.UpdatedAt,
	).Scan(&created)
	if err != nil {
		if isDuplicateKeyError(err) {
			return false, storage.ErrDuplicateKey
		}
		return false, fmt.Errorf("upsert provider: %w", err)
	}
	return created, nil
}

// GetByAddress retrieves a provider by address. Returns ErrNotFound if not exists.
func (s *ProviderStore) GetByAddress(ctx context.Context, address string) (*domain.Provider, error) {
	query := `
		SELECT provider_address, amount_wbtc, amount_rune, lp_token_key, updated_at
		FROM providers
		WHERE provider_address = $1
	`

	row := s.pool.QueryRow(ctx, query, address)
	p, err := scanProvider(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get provider by address: %w", err)
	}
	return p, nil
}

// GetAll retrieves all providers, ordered by address ASC.
func (s *ProviderStore) GetAll(ctx context.Context) ([]*domain.Provider, error) {
	query := `
		SELECT provider_address, amount_wbtc, amount_rune, lp_token_key, updated_at
		FROM providers
		ORDER BY provider_address ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all providers: %w", err)
	}
	defer rows.Close()

	var providers []*domain.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan provider row: %w", err)
		}
		providers = append(providers, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate provider rows: %w", err)
	}

	return providers, nil
}

// scanProvider scans a single row into a Provider.
func scanProvider(row pgx.Row) (*domain.Provider, error) {
	var p domain.Provider

	err := row.Scan(
		&p.Address,
		&p.AmountWBTC,
		&p.AmountRUNE,
		&p.LPTokenKey,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}
