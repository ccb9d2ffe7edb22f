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

// BotStatusStore implements domain.BotStatusStore using PostgreSQL.
type BotStatusStore struct {
	pool *pgxpool.Pool
}

var _ domain.BotStatusStore = (*BotStatusStore)(nil)

// NewBotStatusStore creates a BotStatusStore backed by the given pool.
func NewBotStatusStore(pool *pgxpool.Pool) *BotStatusStore {
	return &BotStatusStore{pool: pool}
}

// Upsert writes the user's runtime status, replacing any previous row.
func (s *BotStatusStore) Upsert(ctx context.Context, status domain.BotStatus) error {
	const query = `
		INSERT INTO bot_status (user_id, state, last_cycle_at, error_message, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			state = EXCLUDED.state,
			last_cycle_at = COALESCE(EXCLUDED.last_cycle_at, bot_status.last_cycle_at),
			error_message = EXCLUDED.error_message,
			updated_at = EXCLUDED.updated_at`

	// A zero LastCycleAt means "no cycle yet"; store NULL so COALESCE keeps
	// any previously recorded cycle time.
	var lastCycle *time.Time
	if !status.LastCycleAt.IsZero() {
		lastCycle = &status.LastCycleAt
	}

	_, err := s.pool.Exec(ctx, query,
		status.UserID, status.State, lastCycle, status.ErrorMessage, status.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert bot status %s: %w", status.UserID, err)
	}
	return nil
}

// Get returns the user's runtime status, or ErrNotFound.
func (s *BotStatusStore) Get(ctx context.Context, userID string) (*domain.BotStatus, error) {
	const query = `
		SELECT user_id, state, COALESCE(last_cycle_at, '0001-01-01T00:00:00Z'::timestamptz),
		       error_message, updated_at
		FROM bot_status WHERE user_id = $1`

	var status domain.BotStatus
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&status.UserID, &status.State, &status.LastCycleAt,
		&status.ErrorMessage, &status.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("postgres: bot status %s: %w", userID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get bot status %s: %w", userID, err)
	}
	return &status, nil
}
