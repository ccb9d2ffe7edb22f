package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/signalbot/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

var _ domain.TradeStore = (*TradeStore)(nil)

// NewTradeStore creates a TradeStore backed by the given pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, user_id, market_id, strategy, side, entry_price,
	quantity, entry_value, status, tx_hash, pnl, created_at`

func scanTradeRows(rows pgx.Rows) ([]domain.TradeRecord, error) {
	var trades []domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.MarketID, &t.Strategy, &t.Side,
			&t.EntryPrice, &t.Quantity, &t.EntryValue, &t.Status,
			&t.TxHash, &t.PnL, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Create inserts an executed trade.
func (s *TradeStore) Create(ctx context.Context, trade domain.TradeRecord) error {
	const query = `
		INSERT INTO trades (
			id, user_id, market_id, strategy, side, entry_price,
			quantity, entry_value, status, tx_hash, pnl, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.pool.Exec(ctx, query,
		trade.ID, trade.UserID, trade.MarketID, trade.Strategy, trade.Side,
		trade.EntryPrice, trade.Quantity, trade.EntryValue, trade.Status,
		trade.TxHash, trade.PnL, trade.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade %s: %w", trade.ID, err)
	}
	return nil
}

// CountToday returns the number of trades a user executed since midnight UTC.
func (s *TradeStore) CountToday(ctx context.Context, userID string) (int, error) {
	const query = `
		SELECT COUNT(*) FROM trades
		WHERE user_id = $1
		  AND created_at >= date_trunc('day', NOW() AT TIME ZONE 'UTC')`

	var count int
	if err := s.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count trades today for %s: %w", userID, err)
	}
	return count, nil
}

// ListBefore returns trades created strictly before the cutoff, oldest first.
func (s *TradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error) {
	query := `SELECT ` + tradeSelectCols + `
		FROM trades WHERE created_at < $1 ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before %s: %w", before, err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades: %w", err)
	}
	return trades, nil
}

// DeleteBefore removes trades created strictly before the cutoff and returns
// the number removed.
func (s *TradeStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM trades WHERE created_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades before %s: %w", before, err)
	}
	return tag.RowsAffected(), nil
}
