package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/signalbot/internal/domain"
)

// BotLogStore implements domain.BotLogStore using PostgreSQL. Metadata is
// stored as JSONB.
type BotLogStore struct {
	pool *pgxpool.Pool
}

var _ domain.BotLogStore = (*BotLogStore)(nil)

// NewBotLogStore creates a BotLogStore backed by the given pool.
func NewBotLogStore(pool *pgxpool.Pool) *BotLogStore {
	return &BotLogStore{pool: pool}
}

// Create inserts one log entry.
func (s *BotLogStore) Create(ctx context.Context, entry domain.BotLog) error {
	const query = `
		INSERT INTO bot_logs (id, user_id, level, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, query,
		entry.ID, entry.UserID, entry.Level, entry.Message, entry.Metadata, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert bot log: %w", err)
	}
	return nil
}

// CreateBatch inserts multiple log entries in one round trip.
func (s *BotLogStore) CreateBatch(ctx context.Context, entries []domain.BotLog) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO bot_logs (id, user_id, level, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, entry := range entries {
		batch.Queue(query, entry.ID, entry.UserID, entry.Level, entry.Message, entry.Metadata, entry.CreatedAt)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range entries {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert bot log batch item %d: %w", i, err)
		}
	}
	return nil
}

// ListBefore returns log entries created strictly before the cutoff, oldest
// first.
func (s *BotLogStore) ListBefore(ctx context.Context, before time.Time) ([]domain.BotLog, error) {
	const query = `
		SELECT id, user_id, level, message, metadata, created_at
		FROM bot_logs WHERE created_at < $1 ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bot logs before %s: %w", before, err)
	}
	defer rows.Close()

	var entries []domain.BotLog
	for rows.Next() {
		var entry domain.BotLog
		if err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.Level, &entry.Message,
			&entry.Metadata, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan bot log: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// DeleteBefore removes log entries created strictly before the cutoff.
func (s *BotLogStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM bot_logs WHERE created_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete bot logs before %s: %w", before, err)
	}
	return tag.RowsAffected(), nil
}
