package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Provider represents a liquidity provider's current position in the pool.
// Corresponds to providers table in PostgreSQL; at most one row per address
// and one row per LP token key.
type Provider struct {
	Address    string          `json:"providerAddress"` // unique
	AmountWBTC decimal.Decimal `json:"amountWBTC"`
	AmountRUNE decimal.Decimal `json:"amountRUNE"`
	LPTokenKey string          `json:"lpTokenKey"` // unique
	UpdatedAt  time.Time       `json:"timestamp"`  // UTC, refreshed on every submission
}
