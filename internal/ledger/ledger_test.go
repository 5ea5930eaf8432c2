package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"lp-token-tracker/internal/domain"
	"lp-token-tracker/internal/storage"
	"lp-token-tracker/internal/storage/memory"
)

func TestNextSnapshot_RuneToWbtc(t *testing.T) {
	prev := &domain.PoolSnapshot{RuneChart: 100, WbtcChart: 50}
	swap := &domain.Swap{
		Direction:       domain.DirectionRuneToWbtc,
		Amount:          10,
		TransactionFee:  1,
		EstimatedAmount: 5,
	}

	next := NextSnapshot(prev, swap)

	if next.RuneChart != 109 {
		t.Errorf("RuneChart: got %v, want 109", next.RuneChart)
	}
	if next.WbtcChart != 45 {
		t.Errorf("WbtcChart: got %v, want 45", next.WbtcChart)
	}
}

func TestNextSnapshot_WbtcToRune(t *testing.T) {
	prev := &domain.PoolSnapshot{RuneChart: 100, WbtcChart: 50}
	swap := &domain.Swap{
		Direction:       domain.DirectionWbtcToRune,
		Amount:          10,
		TransactionFee:  1,
		EstimatedAmount: 5,
	}

	next := NextSnapshot(prev, swap)

	if next.RuneChart != 95 {
		t.Errorf("RuneChart: got %v, want 95", next.RuneChart)
	}
	if next.WbtcChart != 59 {
		t.Errorf("WbtcChart: got %v, want 59", next.WbtcChart)
	}
}

func TestNextSnapshot_UnknownDirection(t *testing.T) {
	prev := &domain.PoolSnapshot{RuneChart: 100, WbtcChart: 50}
	swap := &domain.Swap{
		Direction:       "sideways",
		Amount:          10,
		TransactionFee:  1,
		EstimatedAmount: 5,
	}

	next := NextSnapshot(prev, swap)

	if next.RuneChart != 100 || next.WbtcChart != 50 {
		t.Errorf("balances changed for unknown direction: got {%v, %v}", next.RuneChart, next.WbtcChart)
	}
}

func TestLedger_ApplySwap_EmptyLedger(t *testing.T) {
	l := New(Options{
		Snapshots: memory.NewSnapshotStore(),
		Swaps:     memory.NewSwapStore(),
	})

	_, err := l.ApplySwap(context.Background(), &domain.Swap{Direction: domain.DirectionRuneToWbtc})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLedger_RecordSwap(t *testing.T) {
	snapshots := memory.NewSnapshotStore()
	swaps := memory.NewSwapStore()
	ctx := context.Background()

	seed := &domain.PoolSnapshot{RuneChart: 100, WbtcChart: 50, Timestamp: time.Now().UTC()}
	if err := snapshots.Insert(ctx, seed); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	var notified int
	l := New(Options{
		Snapshots: snapshots,
		Swaps:     swaps,
		OnAppend:  func(*domain.PoolSnapshot) { notified++ },
	})

	swap := &domain.Swap{
		Direction:       domain.DirectionRuneToWbtc,
		Amount:          10,
		TransactionFee:  1,
		EstimatedAmount: 5,
	}

	snap, err := l.RecordSwap(ctx, swap)
	if err != nil {
		t.Fatalf("RecordSwap failed: %v", err)
	}

	if snap.RuneChart != 109 || snap.WbtcChart != 45 {
		t.Errorf("snapshot balances: got {%v, %v}, want {109, 45}", snap.RuneChart, snap.WbtcChart)
	}
	if swap.Timestamp.IsZero() {
		t.Error("swap timestamp was not defaulted")
	}
	if notified != 1 {
		t.Errorf("OnAppend called %d times, want 1", notified)
	}

	got, err := swaps.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll swaps: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 swap, got %d", len(got))
	}

	all, err := snapshots.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll snapshots: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(all))
	}
}

func TestLedger_RecordSwap_UnknownDirectionAppends(t *testing.T) {
	snapshots := memory.NewSnapshotStore()
	ctx := context.Background()

	if err := snapshots.Insert(ctx, &domain.PoolSnapshot{RuneChart: 7, WbtcChart: 3, Timestamp: time.Now().UTC()}); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	l := New(Options{Snapshots: snapshots, Swaps: memory.NewSwapStore()})

	snap, err := l.RecordSwap(ctx, &domain.Swap{Direction: "RUNE to DOGE", Amount: 10})
	if err != nil {
		t.Fatalf("RecordSwap failed: %v", err)
	}
	if snap.RuneChart != 7 || snap.WbtcChart != 3 {
		t.Errorf("balances changed: got {%v, %v}, want {7, 3}", snap.RuneChart, snap.WbtcChart)
	}

	all, _ := snapshots.GetAll(ctx)
	if len(all) != 2 {
		t.Errorf("Expected 2 snapshots, got %d", len(all))
	}
}

// flakySnapshotStore fails the first n conditional appends with
// ErrStaleSnapshot to exercise the retry path.
type flakySnapshotStore struct {
	*memory.SnapshotStore
	failures int
}

func (s *flakySnapshotStore) InsertAfter(ctx context.Context, snap *domain.PoolSnapshot, afterID int64) error {
	if s.failures > 0 {
		s.failures--
		return storage.ErrStaleSnapshot
	}
	return s.SnapshotStore.InsertAfter(ctx, snap, afterID)
}

func TestLedger_ApplySwap_RetriesOnStale(t *testing.T) {
	inner := memory.NewSnapshotStore()
	ctx := context.Background()

	if err := inner.Insert(ctx, &domain.PoolSnapshot{RuneChart: 100, WbtcChart: 50, Timestamp: time.Now().UTC()}); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	flaky := &flakySnapshotStore{SnapshotStore: inner, failures: 2}
	l := New(Options{Snapshots: flaky, Swaps: memory.NewSwapStore()})

	snap, err := l.ApplySwap(ctx, &domain.Swap{
		Direction:       domain.DirectionWbtcToRune,
		Amount:          10,
		TransactionFee:  1,
		EstimatedAmount: 5,
	})
	if err != nil {
		t.Fatalf("ApplySwap failed after retries: %v", err)
	}
	if snap.RuneChart != 95 || snap.WbtcChart != 59 {
		t.Errorf("snapshot balances: got {%v, %v}, want {95, 59}", snap.RuneChart, snap.WbtcChart)
	}
}

func TestLedger_ApplySwap_GivesUpAfterMaxRetries(t *testing.T) {
	inner := memory.NewSnapshotStore()
	ctx := context.Background()

	if err := inner.Insert(ctx, &domain.PoolSnapshot{RuneChart: 1, WbtcChart: 1, Timestamp: time.Now().UTC()}); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	flaky := &flakySnapshotStore{SnapshotStore: inner, failures: 100}
	l := New(Options{Snapshots: flaky, Swaps: memory.NewSwapStore(), MaxRetries: 3})

	_, err := l.ApplySwap(ctx, &domain.Swap{Direction: domain.DirectionRuneToWbtc})
	if !errors.Is(err, storage.ErrStaleSnapshot) {
		t.Errorf("Expected ErrStaleSnapshot, got %v", err)
	}
	if flaky.failures != 97 {
		t.Errorf("Expected exactly 3 attempts, %d failures left", flaky.failures)
	}
}
