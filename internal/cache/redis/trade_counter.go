package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// counterTTL keeps daily counters around past midnight so late readers still
// see yesterday's key before it ages out.
const counterTTL = 48 * time.Hour

// TradeCounter tracks per-user daily trade counts in Redis. It is the fast
// path for the executor's daily cap check; the trade store remains the
// source of truth when Redis is unavailable.
type TradeCounter struct {
	rdb *redis.Client
}

// NewTradeCounter creates a TradeCounter backed by the given Client.
func NewTradeCounter(c *Client) *TradeCounter {
	return &TradeCounter{rdb: c.Underlying()}
}

func tradeCountKey(userID string, day time.Time) string {
	return "trades:daily:" + userID + ":" + day.UTC().Format("2006-01-02")
}

// CountToday returns the user's executed-trade count since midnight UTC.
func (tc *TradeCounter) CountToday(ctx context.Context, userID string) (int, error) {
	val, err := tc.rdb.Get(ctx, tradeCountKey(userID, time.Now())).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis: count trades today %s: %w", userID, err)
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("redis: parse trade count %s: %w", userID, err)
	}
	return count, nil
}

// IncrToday increments and returns the user's count for today. The key
// expires after counterTTL so stale days clean themselves up.
func (tc *TradeCounter) IncrToday(ctx context.Context, userID string) (int, error) {
	key := tradeCountKey(userID, time.Now())

	pipe := tc.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, counterTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis: incr trades today %s: %w", userID, err)
	}
	return int(incr.Val()), nil
}
