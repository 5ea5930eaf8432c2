package postgres_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lp-token-tracker/internal/domain"
	"lp-token-tracker/internal/storage"
	"lp-token-tracker/internal/storage/postgres"
)

func testProvider(address, key string) *domain.Provider {
	return &domain.Provider{
		Address:    address,
		AmountWBTC: decimal.RequireFromString("1.5"),
		AmountRUNE: decimal.RequireFromString("250.25"),
		LPTokenKey: key,
		UpdatedAt:  utc(1700000000),
	}
}

func TestProviderStore_UpsertCreates(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewProviderStore(pool)

	created, err := store.Upsert(ctx, testProvider("0xabc", "lp-1"))
	require.NoError(t, err)
	assert.True(t, created)

	got, err := store.GetByAddress(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", got.Address)
	assert.True(t, got.AmountWBTC.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, got.AmountRUNE.Equal(decimal.RequireFromString("250.25")))
	assert.Equal(t, "lp-1", got.LPTokenKey)
	assert.True(t, got.UpdatedAt.Equal(utc(1700000000)))
}

func TestProviderStore_UpsertReplaces(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewProviderStore(pool)

	created, err := store.Upsert(ctx, testProvider("0xabc", "lp-1"))
	require.NoError(t, err)
	require.True(t, created)

	replacement := testProvider("0xabc", "lp-2")
	replacement.AmountWBTC = decimal.RequireFromString("9.75")
	replacement.UpdatedAt = utc(1700000100)

	created, err = store.Upsert(ctx, replacement)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := store.GetByAddress(ctx, "0xabc")
	require.NoError(t, err)
	assert.True(t, got.AmountWBTC.Equal(decimal.RequireFromString("9.75")))
	assert.Equal(t, "lp-2", got.LPTokenKey)
	assert.True(t, got.UpdatedAt.Equal(utc(1700000100)))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestProviderStore_DuplicateLPTokenKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewProviderStore(pool)

	_, err := store.Upsert(ctx, testProvider("0xabc", "lp-1"))
	require.NoError(t, err)

	_, err = store.Upsert(ctx, testProvider("0xdef", "lp-1"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestProviderStore_GetByAddressNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewProviderStore(pool)

	_, err := store.GetByAddress(context.Background(), "0xmissing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProviderStore_GetAllOrdered(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewProviderStore(pool)

	for _, address := range []string{"0xc", "0xa", "0xb"} {
		_, err := store.Upsert(ctx, testProvider(address, "lp-"+address))
		require.NoError(t, err)
	}

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "0xa", all[0].Address)
	assert.Equal(t, "0xb", all[1].Address)
	assert.Equal(t, "0xc", all[2].Address)
}
