package domain

import (
	"context"
	"io"
	"time"
)

// ---------------------------------------------------------------------------
// External collaborator boundaries (spec'd web application side).
// ---------------------------------------------------------------------------

// ConfigProvider exposes the per-user bot configuration store. Implementations
// must be cheap enough to call once per cycle.
type ConfigProvider interface {
	// GetBotConfig returns the config for a user, or ErrNotFound.
	GetBotConfig(ctx context.Context, userID string) (*BotConfig, error)
	// ListActiveUserIDs returns the IDs of every user whose config is active.
	ListActiveUserIDs(ctx context.Context) ([]string, error)
}

// UserProvider exposes the external user/session records.
type UserProvider interface {
	GetUserByID(ctx context.Context, userID string) (*User, error)
}

// TradeStore persists executed trades.
type TradeStore interface {
	Create(ctx context.Context, trade TradeRecord) error
	// CountToday returns the number of trades a user executed since local
	// midnight UTC. Used to gate the daily trade cap.
	CountToday(ctx context.Context, userID string) (int, error)
	// ListBefore returns trades created strictly before the cutoff, oldest
	// first. Used by the retention archiver.
	ListBefore(ctx context.Context, before time.Time) ([]TradeRecord, error)
	// DeleteBefore removes trades created strictly before the cutoff and
	// returns the number removed.
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// BotLogStore persists the user-visible activity stream.
type BotLogStore interface {
	Create(ctx context.Context, entry BotLog) error
	ListBefore(ctx context.Context, before time.Time) ([]BotLog, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// BotStatusStore persists per-user runtime status for the dashboard.
type BotStatusStore interface {
	Upsert(ctx context.Context, status BotStatus) error
	Get(ctx context.Context, userID string) (*BotStatus, error)
}

// ---------------------------------------------------------------------------
// Market data boundaries.
// ---------------------------------------------------------------------------

// MarketSource is the pull side of the market feed: an HTTP lookup of the
// currently active (non-expired) market for the configured series.
type MarketSource interface {
	ActiveMarket(ctx context.Context) (*MarketSnapshot, error)
}

// PriceSource reads a reference price. The monitor composes a primary
// (on-chain oracle) source with a fallback (public exchange API) source.
type PriceSource interface {
	LatestPrice(ctx context.Context) (*PricePoint, error)
}

// HistoricalPriceSource backfills recent price history to warm up indicators.
type HistoricalPriceSource interface {
	HistoricalPrices(ctx context.Context, window time.Duration) ([]PricePoint, error)
}

// PriceCache is the shared write-through cache the monitor publishes each
// observed price into.
type PriceCache interface {
	SetPrice(ctx context.Context, assetID string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, assetID string) (float64, time.Time, error)
}

// ---------------------------------------------------------------------------
// Execution boundary (on-chain contract).
// ---------------------------------------------------------------------------

// ExecutionProvider is the on-chain order submission contract. All amounts
// cross this boundary in fixed-point with six decimal places.
type ExecutionProvider interface {
	// ExecuteTrade submits an order for the user and waits for confirmation.
	// amountUSDC is fixed-point 1e6 dollars. Returns the transaction hash.
	ExecuteTrade(ctx context.Context, wallet, marketID string, amountUSDC int64, isYes bool) (string, error)
	// UserAllowance returns the user's spending allowance in fixed-point 1e6.
	UserAllowance(ctx context.Context, wallet string) (int64, error)
	// UserTier returns the user's on-chain subscription tier.
	UserTier(ctx context.Context, wallet string) (int64, error)
	// MaxPositionForTier returns the tier's position ceiling in fixed-point 1e6.
	MaxPositionForTier(ctx context.Context, tier int64) (int64, error)
}

// ---------------------------------------------------------------------------
// Blob storage boundary (retention archiver).
// ---------------------------------------------------------------------------

// BlobWriter uploads an object to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
