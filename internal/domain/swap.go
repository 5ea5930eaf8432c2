package domain

import (
	"time"

	"github.com/google/uuid"
)

// Swap represents a single swap transaction against the pool.
// Corresponds to swaps table in PostgreSQL; rows are immutable once written.
type Swap struct {
	ID              uuid.UUID `json:"id"`
	Direction       string    `json:"direction"` // see Direction* constants
	Amount          float64   `json:"amount"`
	Rate            float64   `json:"rate"`
	Address         string    `json:"address"`
	EstimatedAmount float64   `json:"estimatedAmount"`
	TransactionFee  float64   `json:"transactionFee"`
	Timestamp       time.Time `json:"timestamp"` // UTC
}

// Swap directions recognized by the ledger. Any other value is stored
// as-is but leaves the pool balances untouched.
const (
	DirectionRuneToWbtc = "RUNE to WBTC"
	DirectionWbtcToRune = "WBTC to RUNE"
)
