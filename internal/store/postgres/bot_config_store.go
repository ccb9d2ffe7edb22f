package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/signalbot/internal/domain"
)

// BotConfigStore implements domain.ConfigProvider using PostgreSQL.
type BotConfigStore struct {
	pool *pgxpool.Pool
}

var _ domain.ConfigProvider = (*BotConfigStore)(nil)

// NewBotConfigStore creates a BotConfigStore backed by the given pool.
func NewBotConfigStore(pool *pgxpool.Pool) *BotConfigStore {
	return &BotConfigStore{pool: pool}
}

// GetBotConfig returns the config for a user, or ErrNotFound.
func (s *BotConfigStore) GetBotConfig(ctx context.Context, userID string) (*domain.BotConfig, error) {
	const query = `
		SELECT user_id, active, wallet_address, max_position_size,
		       max_open_positions, max_daily_trades, max_daily_loss,
		       edge_threshold, kelly_fraction, run_interval_seconds, updated_at
		FROM bot_configs WHERE user_id = $1`

	var cfg domain.BotConfig
	var intervalSeconds int
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&cfg.UserID, &cfg.Active, &cfg.WalletAddress, &cfg.MaxPositionSize,
		&cfg.MaxOpenPositions, &cfg.MaxDailyTrades, &cfg.MaxDailyLoss,
		&cfg.EdgeThreshold, &cfg.KellyFraction, &intervalSeconds, &cfg.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("postgres: bot config %s: %w", userID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get bot config %s: %w", userID, err)
	}
	cfg.RunInterval = time.Duration(intervalSeconds) * time.Second
	return &cfg, nil
}

// ListActiveUserIDs returns the IDs of every user whose config is active.
func (s *BotConfigStore) ListActiveUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT user_id FROM bot_configs WHERE active ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("postgres: list active users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan active user: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
