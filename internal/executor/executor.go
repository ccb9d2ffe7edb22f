// Package executor validates trade signals against per-user risk limits,
// sizes positions with a fractional Kelly formula, submits orders through the
// on-chain execution provider, and persists the resulting trade records.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/signalbot/internal/domain"
)

const (
	// usdcScale converts decimal dollars to the provider's 6-decimal
	// fixed-point representation.
	usdcScale = 1_000_000

	// minPositionUSD is the floor applied after the Kelly computation. The
	// config's MaxPositionSize cap is applied after the floor, so a cap
	// below $10 overrides it.
	minPositionUSD = 10.0

	// strategyName labels trade records written by this engine.
	strategyName = "signal_engine"
)

// DailyTradeCounter is an optional fast path for the daily trade-count gate,
// typically backed by Redis. When unset the executor falls back to counting
// rows through the trade store.
type DailyTradeCounter interface {
	CountToday(ctx context.Context, userID string) (int, error)
	IncrToday(ctx context.Context, userID string) (int, error)
}

// Executor submits validated trades for all users. It is shared across bot
// instances; the underlying provider signs every transaction with one key,
// so submissions are serialized to preserve nonce ordering.
type Executor struct {
	provider domain.ExecutionProvider
	trades   domain.TradeStore
	logs     domain.BotLogStore
	counter  DailyTradeCounter
	logger   *slog.Logger

	// submitMu serializes on-chain submissions through the shared signer.
	submitMu sync.Mutex
}

// New creates an Executor. counter may be nil.
func New(
	provider domain.ExecutionProvider,
	trades domain.TradeStore,
	logs domain.BotLogStore,
	counter DailyTradeCounter,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		provider: provider,
		trades:   trades,
		logs:     logs,
		counter:  counter,
		logger:   logger.With(slog.String("component", "executor")),
	}
}

// ExecuteTrade validates the signal, sizes the position, submits the order,
// and records the trade. It returns the persisted trade record, which
// carries the transaction hash and the computed position size. Every
// rejection is a distinct sentinel error so callers can log meaningfully;
// none are retried here; the next cycle re-evaluates from scratch.
func (e *Executor) ExecuteTrade(ctx context.Context, userID, wallet string, cfg *domain.BotConfig, sig *domain.TradeSignal) (*domain.TradeRecord, error) {
	record, err := e.executeTrade(ctx, userID, wallet, cfg, sig)
	if err != nil {
		e.recordFailure(ctx, userID, sig, cfg, err)
		return nil, err
	}
	return record, nil
}

func (e *Executor) executeTrade(ctx context.Context, userID, wallet string, cfg *domain.BotConfig, sig *domain.TradeSignal) (*domain.TradeRecord, error) {
	if sig.Edge <= 0 {
		return nil, fmt.Errorf("executor: edge %.4f: %w", sig.Edge, domain.ErrNonPositiveEdge)
	}
	// The threshold gate holds here even though the cycle filters first.
	if sig.Edge < cfg.EdgeThreshold {
		return nil, fmt.Errorf("executor: edge %.4f < threshold %.4f: %w", sig.Edge, cfg.EdgeThreshold, domain.ErrEdgeBelowThreshold)
	}
	if e.provider == nil {
		return nil, fmt.Errorf("executor: %w", domain.ErrProviderUnavailable)
	}

	if cfg.MaxDailyTrades > 0 {
		count, err := e.tradeCountToday(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("executor: daily trade count: %w", err)
		}
		if count >= cfg.MaxDailyTrades {
			return nil, fmt.Errorf("executor: %d trades today: %w", count, domain.ErrDailyTradeLimit)
		}
	}

	allowance, err := e.provider.UserAllowance(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("executor: read allowance: %w", err)
	}
	if allowance <= 0 {
		return nil, fmt.Errorf("executor: %w", domain.ErrInsufficientAllowance)
	}

	size := PositionSize(cfg.MaxPositionSize, cfg.KellyFraction, sig.EntryPrice, sig.Confidence)
	if size <= 0 {
		return nil, fmt.Errorf("executor: computed size %.2f: %w", size, domain.ErrRiskLimit)
	}
	amountUnits := int64(math.Round(size * usdcScale))
	if amountUnits > allowance {
		return nil, fmt.Errorf("executor: size %.2f exceeds allowance: %w", size, domain.ErrInsufficientAllowance)
	}

	// Both ceilings are required: the on-chain tier limit and the
	// application-level config limit.
	tier, err := e.provider.UserTier(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("executor: read tier: %w", err)
	}
	tierMax, err := e.provider.MaxPositionForTier(ctx, tier)
	if err != nil {
		return nil, fmt.Errorf("executor: read tier limit: %w", err)
	}
	if amountUnits > tierMax {
		return nil, fmt.Errorf("executor: size %.2f over tier %d ceiling: %w", size, tier, domain.ErrTierLimit)
	}
	if size > cfg.MaxPositionSize {
		return nil, fmt.Errorf("executor: size %.2f over config max %.2f: %w", size, cfg.MaxPositionSize, domain.ErrRiskLimit)
	}

	isYes := sig.Direction == domain.DirectionUp

	e.submitMu.Lock()
	txHash, err := e.provider.ExecuteTrade(ctx, wallet, sig.MarketID, amountUnits, isYes)
	e.submitMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("executor: submit: %w", err)
	}

	record := e.recordSuccess(ctx, userID, sig, size, txHash)
	return &record, nil
}

func (e *Executor) tradeCountToday(ctx context.Context, userID string) (int, error) {
	if e.counter != nil {
		count, err := e.counter.CountToday(ctx, userID)
		if err == nil {
			return count, nil
		}
		e.logger.Warn("trade counter unavailable, falling back to store",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
	return e.trades.CountToday(ctx, userID)
}

// recordSuccess persists the trade record and an info log entry, returning
// the record. Persistence failures are logged but do not fail the trade: the
// order is already on chain.
func (e *Executor) recordSuccess(ctx context.Context, userID string, sig *domain.TradeSignal, size float64, txHash string) domain.TradeRecord {
	record := domain.TradeRecord{
		ID:         uuid.New().String(),
		UserID:     userID,
		MarketID:   sig.MarketID,
		Strategy:   strategyName,
		Side:       domain.SideForDirection(sig.Direction),
		EntryPrice: sig.EntryPrice,
		EntryValue: size,
		Status:     domain.TradeStatusOpen,
		TxHash:     txHash,
		CreatedAt:  time.Now().UTC(),
	}
	if sig.EntryPrice > 0 {
		record.Quantity = size / sig.EntryPrice
	}

	if err := e.trades.Create(ctx, record); err != nil {
		e.logger.Error("trade record persist failed",
			slog.String("user_id", userID),
			slog.String("tx_hash", txHash),
			slog.String("error", err.Error()),
		)
	}
	if e.counter != nil {
		if _, err := e.counter.IncrToday(ctx, userID); err != nil {
			e.logger.Warn("trade counter increment failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}

	e.botLog(ctx, userID, domain.BotLogInfo,
		fmt.Sprintf("trade executed: %s $%.2f at %.3f", sig.Direction, size, sig.EntryPrice),
		map[string]string{
			"market_id":  sig.MarketID,
			"tx_hash":    txHash,
			"edge":       strconv.FormatFloat(sig.Edge, 'f', 4, 64),
			"confidence": strconv.FormatFloat(sig.Confidence, 'f', 1, 64),
			"size_usd":   strconv.FormatFloat(size, 'f', 2, 64),
		})

	e.logger.Info("trade executed",
		slog.String("user_id", userID),
		slog.String("market_id", sig.MarketID),
		slog.String("direction", string(sig.Direction)),
		slog.Float64("size_usd", size),
		slog.String("tx_hash", txHash),
	)

	return record
}

// recordFailure appends an error-level bot log with full signal context
// before the error propagates to the caller.
func (e *Executor) recordFailure(ctx context.Context, userID string, sig *domain.TradeSignal, cfg *domain.BotConfig, execErr error) {
	size := PositionSize(cfg.MaxPositionSize, cfg.KellyFraction, sig.EntryPrice, sig.Confidence)
	e.botLog(ctx, userID, domain.BotLogError,
		"trade execution failed: "+execErr.Error(),
		map[string]string{
			"market_id":  sig.MarketID,
			"edge":       strconv.FormatFloat(sig.Edge, 'f', 4, 64),
			"confidence": strconv.FormatFloat(sig.Confidence, 'f', 1, 64),
			"size_usd":   strconv.FormatFloat(size, 'f', 2, 64),
		})
}

func (e *Executor) botLog(ctx context.Context, userID string, level domain.BotLogLevel, msg string, meta map[string]string) {
	entry := domain.BotLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Level:     level,
		Message:   msg,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.logs.Create(ctx, entry); err != nil {
		e.logger.Warn("bot log persist failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// PositionSize computes the fractional-Kelly position in dollars.
//
// The $10 minimum is applied AFTER the Kelly computation and the config cap
// AFTER the minimum, so a max position below $10 wins over the floor. The
// result is rounded down to cents.
func PositionSize(maxPosition, kellyFraction, entryPrice, confidence float64) float64 {
	if maxPosition <= 0 || entryPrice <= 0 {
		return 0
	}

	odds := 1/entryPrice - 1
	var kelly float64
	if odds > 0 {
		p := confidence / 100
		q := 1 - p
		kelly = (odds*p - q) / odds
	}

	size := maxPosition * clamp01(kelly*kellyFraction)
	if size < minPositionUSD {
		size = minPositionUSD
	}
	if size > maxPosition {
		size = maxPosition
	}
	return math.Floor(size*100) / 100
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
