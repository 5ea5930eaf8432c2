// Package ledger maintains the append-only pool balance ledger: every stored
// swap produces exactly one new pool snapshot derived from the latest one.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"lp-token-tracker/internal/domain"
	"lp-token-tracker/internal/observability"
	"lp-token-tracker/internal/storage"
)

// defaultMaxRetries bounds how often a conditional append is retried after
// losing the race to a concurrent writer.
const defaultMaxRetries = 5

// NextSnapshot computes the balances that follow prev after applying swap.
// An unrecognized direction leaves both balances unchanged; the snapshot is
// still appended so the ledger records exactly one row per swap.
func NextSnapshot(prev *domain.PoolSnapshot, swap *domain.Swap) domain.PoolSnapshot {
	next := domain.PoolSnapshot{
		RuneChart: prev.RuneChart,
		WbtcChart: prev.WbtcChart,
	}

	switch swap.Direction {
	case domain.DirectionRuneToWbtc:
		next.RuneChart += swap.Amount - swap.TransactionFee
		next.WbtcChart -= swap.EstimatedAmount
	case domain.DirectionWbtcToRune:
		next.RuneChart -= swap.EstimatedAmount
		next.WbtcChart += swap.Amount - swap.TransactionFee
	}

	return next
}

// Options configures a Ledger.
type Options struct {
	Snapshots storage.PoolSnapshotStore
	Swaps     storage.SwapStore

	// Now supplies timestamps; defaults to time.Now.
	Now func() time.Time

	// OnAppend is invoked with every snapshot the ledger appends.
	OnAppend func(*domain.PoolSnapshot)

	// MaxRetries bounds stale-append retries; defaults to 5.
	MaxRetries int

	Logger *log.Logger
}

// Ledger records swaps and keeps the snapshot ledger in sync with them.
type Ledger struct {
	snapshots  storage.PoolSnapshotStore
	swaps      storage.SwapStore
	now        func() time.Time
	onAppend   func(*domain.PoolSnapshot)
	maxRetries int
	logger     *log.Logger
}

// New creates a Ledger from opts.
func New(opts Options) *Ledger {
	l := &Ledger{
		snapshots:  opts.Snapshots,
		swaps:      opts.Swaps,
		now:        opts.Now,
		onAppend:   opts.OnAppend,
		maxRetries: opts.MaxRetries,
		logger:     opts.Logger,
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.maxRetries <= 0 {
		l.maxRetries = defaultMaxRetries
	}
	if l.logger == nil {
		l.logger = log.New(os.Stdout, "[ledger] ", log.LstdFlags)
	}
	return l
}

// RecordSwap persists the swap and then applies it to the ledger.
// Exactly one swap row and one snapshot row are written per call; if the
// ledger append fails the swap row stays committed and the error is
// returned to the caller.
func (l *Ledger) RecordSwap(ctx context.Context, swap *domain.Swap) (*domain.PoolSnapshot, error) {
	if swap.Timestamp.IsZero() {
		swap.Timestamp = l.now().UTC()
	}

	if err := l.swaps.Insert(ctx, swap); err != nil {
		return nil, fmt.Errorf("store swap: %w", err)
	}
	observability.RecordSwapStored(swap.Direction)

	snap, err := l.ApplySwap(ctx, swap)
	if err != nil {
		l.logger.Printf("swap %s stored but ledger update failed: %v", swap.ID, err)
		return nil, err
	}
	return snap, nil
}

// ApplySwap reads the latest snapshot, computes the next balances and
// appends them. The append is conditional on no newer snapshot existing;
// on ErrStaleSnapshot the read-compute-append cycle is retried so
// concurrent swaps cannot silently drop each other's updates.
// Returns storage.ErrNotFound if the ledger has no snapshot at all.
func (l *Ledger) ApplySwap(ctx context.Context, swap *domain.Swap) (*domain.PoolSnapshot, error) {
	var lastErr error

	for attempt := 0; attempt < l.maxRetries; attempt++ {
		latest, err := l.snapshots.Latest(ctx)
		if err != nil {
			return nil, fmt.Errorf("load latest snapshot: %w", err)
		}

		next := NextSnapshot(latest, swap)
		next.Timestamp = l.now().UTC()

		err = l.snapshots.InsertAfter(ctx, &next, latest.ID)
		if err == nil {
			observability.RecordSnapshotAppended()
			if l.onAppend != nil {
				l.onAppend(&next)
			}
			return &next, nil
		}
		if !isStale(err) {
			return nil, fmt.Errorf("append snapshot: %w", err)
		}

		observability.RecordStaleRetry()
		lastErr = err
	}

	return nil, fmt.Errorf("append snapshot after %d attempts: %w", l.maxRetries, lastErr)
}

func isStale(err error) bool {
	return errors.Is(err, storage.ErrStaleSnapshot)
}
