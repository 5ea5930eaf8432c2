package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lp-token-tracker/internal/domain"
	"lp-token-tracker/internal/storage"
	"lp-token-tracker/internal/storage/postgres"
)

func TestSnapshotStore_InsertAndLatest(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewSnapshotStore(pool)

	first := &domain.PoolSnapshot{RuneChart: 100, WbtcChart: 50, Timestamp: utc(1000)}
	require.NoError(t, store.Insert(ctx, first))
	assert.NotZero(t, first.ID)

	second := &domain.PoolSnapshot{RuneChart: 110, WbtcChart: 45, Timestamp: utc(2000)}
	require.NoError(t, store.Insert(ctx, second))
	assert.Greater(t, second.ID, first.ID)

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, 110.0, latest.RuneChart)
	assert.Equal(t, 45.0, latest.WbtcChart)
	assert.True(t, latest.Timestamp.Equal(utc(2000)))
}

func TestSnapshotStore_LatestEmpty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewSnapshotStore(pool)

	_, err := store.Latest(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSnapshotStore_InsertAfter(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewSnapshotStore(pool)

	first := &domain.PoolSnapshot{RuneChart: 100, WbtcChart: 50, Timestamp: utc(1000)}
	require.NoError(t, store.Insert(ctx, first))

	// Append conditioned on the current head succeeds.
	next := &domain.PoolSnapshot{RuneChart: 109, WbtcChart: 45, Timestamp: utc(2000)}
	require.NoError(t, store.InsertAfter(ctx, next, first.ID))
	assert.Greater(t, next.ID, first.ID)

	// A second append conditioned on the old head is stale.
	stale := &domain.PoolSnapshot{RuneChart: 1, WbtcChart: 1, Timestamp: utc(2001)}
	err := store.InsertAfter(ctx, stale, first.ID)
	assert.ErrorIs(t, err, storage.ErrStaleSnapshot)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSnapshotStore_FindByBalances(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewSnapshotStore(pool)

	snap := &domain.PoolSnapshot{RuneChart: 100, WbtcChart: 50, Timestamp: utc(1000)}
	require.NoError(t, store.Insert(ctx, snap))

	got, err := store.FindByBalances(ctx, 100, 50)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, got.ID)

	_, err = store.FindByBalances(ctx, 100, 51)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSnapshotStore_UpdateLatest(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewSnapshotStore(pool)

	old := &domain.PoolSnapshot{RuneChart: 100, WbtcChart: 50, Timestamp: utc(1000)}
	require.NoError(t, store.Insert(ctx, old))

	updated, err := store.UpdateLatest(ctx, 5, 10, utc(2000))
	require.NoError(t, err)
	assert.Equal(t, old.ID, updated.ID)
	assert.Equal(t, 5.0, updated.RuneChart)
	assert.Equal(t, 10.0, updated.WbtcChart)
	assert.True(t, updated.Timestamp.Equal(utc(2000)))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSnapshotStore_UpdateLatestEmpty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewSnapshotStore(pool)

	_, err := store.UpdateLatest(context.Background(), 5, 10, utc(2000))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSnapshotStore_GetAllOrdered(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewSnapshotStore(pool)

	for _, snap := range []*domain.PoolSnapshot{
		{RuneChart: 2, WbtcChart: 2, Timestamp: utc(2000)},
		{RuneChart: 1, WbtcChart: 1, Timestamp: utc(1000)},
		{RuneChart: 3, WbtcChart: 3, Timestamp: utc(3000)},
	} {
		require.NoError(t, store.Insert(ctx, snap))
	}

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 1.0, all[0].RuneChart)
	assert.Equal(t, 2.0, all[1].RuneChart)
	assert.Equal(t, 3.0, all[2].RuneChart)
}
