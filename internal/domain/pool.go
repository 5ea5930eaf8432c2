package domain

import "time"

// PoolSnapshot is one row of the append-only pool balance ledger.
// Corresponds to pool_snapshots table in PostgreSQL. The row with the
// highest timestamp (highest ID on ties) is the authoritative current
// balance of the pool.
type PoolSnapshot struct {
	ID        int64     `json:"id"` // BIGSERIAL primary key
	RuneChart float64   `json:"RuneChart"`
	WbtcChart float64   `json:"WbtcChart"`
	Timestamp time.Time `json:"timestamp"` // UTC
}

// BalancePoint is a (timestamp, balances) tuple from the ClickHouse
// balance-history archive, used for charting.
type BalancePoint struct {
	RuneChart float64   `json:"RuneChart"`
	WbtcChart float64   `json:"WbtcChart"`
	Timestamp time.Time `json:"timestamp"`
}
