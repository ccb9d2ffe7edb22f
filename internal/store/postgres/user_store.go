package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/signalbot/internal/domain"
)

// UserStore implements domain.UserProvider using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

var _ domain.UserProvider = (*UserStore)(nil)

// NewUserStore creates a UserStore backed by the given pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// GetUserByID returns the user record, or ErrNotFound.
func (s *UserStore) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	const query = `
		SELECT id, wallet_address, subscription_expires_at
		FROM users WHERE id = $1`

	var u domain.User
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&u.ID, &u.WalletAddress, &u.SubscriptionExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("postgres: user %s: %w", userID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get user %s: %w", userID, err)
	}
	return &u, nil
}
