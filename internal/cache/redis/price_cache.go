package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/signalbot/internal/domain"
)

// PriceCache implements domain.PriceCache using Redis hashes. Each asset's
// price is stored as a hash at key "price:{assetID}" with fields "price" and
// "ts" (Unix nanosecond timestamp), so other processes and restarts observe
// the monitor's latest resolved price.
type PriceCache struct {
	rdb *redis.Client
}

var _ domain.PriceCache = (*PriceCache)(nil)

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{rdb: c.Underlying()}
}

func priceKey(assetID string) string {
	return "price:" + assetID
}

// SetPrice stores the latest price and timestamp for an asset.
func (pc *PriceCache) SetPrice(ctx context.Context, assetID string, price float64, ts time.Time) error {
	fields := map[string]interface{}{
		"price": strconv.FormatFloat(price, 'f', -1, 64),
		"ts":    strconv.FormatInt(ts.UnixNano(), 10),
	}
	if err := pc.rdb.HSet(ctx, priceKey(assetID), fields).Err(); err != nil {
		return fmt.Errorf("redis: set price %s: %w", assetID, err)
	}
	return nil
}

// GetPrice retrieves the latest price and timestamp for an asset. It returns
// domain.ErrNotFound when the key does not exist.
func (pc *PriceCache) GetPrice(ctx context.Context, assetID string) (float64, time.Time, error) {
	vals, err := pc.rdb.HGetAll(ctx, priceKey(assetID)).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get price %s: %w", assetID, err)
	}
	if len(vals) == 0 {
		return 0, time.Time{}, domain.ErrNotFound
	}

	priceStr, ok := vals["price"]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse price %s: %w", assetID, err)
	}

	tsStr, ok := vals["ts"]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse ts %s: %w", assetID, err)
	}

	return price, time.Unix(0, tsNano), nil
}
