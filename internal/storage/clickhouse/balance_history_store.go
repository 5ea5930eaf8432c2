package clickhouse

import (
	"context"
	"fmt"
	"time"

	"lp-token-tracker/internal/domain"
	"lp-token-tracker/internal/storage"
)

// BalanceHistoryStore implements storage.BalanceHistoryStore using ClickHouse.
// It mirrors every appended pool snapshot into the balance_history table so
// charting queries do not hit the primary store.
type BalanceHistoryStore struct {
	conn *Conn
}

// NewBalanceHistoryStore creates a new BalanceHistoryStore.
func NewBalanceHistoryStore(conn *Conn) *BalanceHistoryStore {
	return &BalanceHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BalanceHistoryStore = (*BalanceHistoryStore)(nil)

// Insert records one balance point.
func (s *BalanceHistoryStore) Insert(ctx context.Context, p *domain.BalancePoint) error {
	query := `
		INSERT INTO balance_history (ts, rune_chart, wbtc_chart)
		VALUES (?, ?, ?)
	`

	if err := s.conn.Exec(ctx, query, p.Timestamp, p.RuneChart, p.WbtcChart); err != nil {
		return fmt.Errorf("insert balance point: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves points within [start, end] (inclusive), ordered by
// timestamp ASC.
func (s *BalanceHistoryStore) GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.BalancePoint, error) {
	query := `
		SELECT ts, rune_chart, wbtc_chart
		FROM balance_history
		WHERE ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`

	rows, err := s.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query balance history: %w", err)
	}
	defer rows.Close()

	var points []*domain.BalancePoint
	for rows.Next() {
		var p domain.BalancePoint

		if err := rows.Scan(&p.Timestamp, &p.RuneChart, &p.WbtcChart); err != nil {
			return nil, fmt.Errorf("scan balance history row: %w", err)
		}

		p.Timestamp = p.Timestamp.UTC()
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balance history rows: %w", err)
	}

	return points, nil
}
