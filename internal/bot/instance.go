// Package bot holds the per-user trading bot: the Instance state machine
// that runs one user's decision cycle on a timer, and the Manager that
// reconciles the set of running instances against the active configs.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/signalbot/internal/domain"
	"github.com/alanyoungcy/signalbot/internal/indicator"
	"github.com/alanyoungcy/signalbot/internal/signal"
)

const (
	// defaultCycleTimeout bounds one cycle end to end so a hung external
	// call cannot wedge a user's loop.
	defaultCycleTimeout = 45 * time.Second

	// defaultBackfillWindow is how much price history warms up a fresh
	// indicator bank at start.
	defaultBackfillWindow = 30 * time.Minute
)

// MarketData is the read surface of the shared monitor.
type MarketData interface {
	CurrentMarket(ctx context.Context) (*domain.MarketSnapshot, error)
	CurrentPrice(ctx context.Context) (*domain.PricePoint, error)
	HistoricalPrices(ctx context.Context, window time.Duration) []domain.PricePoint
}

// TradeExecutor submits a filtered signal for execution.
type TradeExecutor interface {
	ExecuteTrade(ctx context.Context, userID, wallet string, cfg *domain.BotConfig, sig *domain.TradeSignal) (string, error)
}

// Instance is one user's trading bot. It owns its indicator bank and runtime
// state exclusively; the Manager only ever calls Start and Stop.
type Instance struct {
	userID   string
	configs  domain.ConfigProvider
	users    domain.UserProvider
	market   MarketData
	engine   *signal.Engine
	executor TradeExecutor
	statuses domain.BotStatusStore
	logger   *slog.Logger

	cycleTimeout   time.Duration
	backfillWindow time.Duration

	mu          sync.Mutex
	state       domain.BotState
	cancel      context.CancelFunc
	bank        *indicator.Bank
	lastCycleAt time.Time

	inCycle atomic.Bool
	wg      sync.WaitGroup
}

// InstanceOption configures an Instance.
type InstanceOption func(*Instance)

// WithCycleTimeout overrides the per-cycle deadline.
func WithCycleTimeout(d time.Duration) InstanceOption {
	return func(i *Instance) {
		if d > 0 {
			i.cycleTimeout = d
		}
	}
}

// WithBackfillWindow overrides the indicator warm-up window.
func WithBackfillWindow(d time.Duration) InstanceOption {
	return func(i *Instance) {
		if d > 0 {
			i.backfillWindow = d
		}
	}
}

// NewInstance creates a stopped bot for the given user.
func NewInstance(
	userID string,
	configs domain.ConfigProvider,
	users domain.UserProvider,
	market MarketData,
	engine *signal.Engine,
	executor TradeExecutor,
	statuses domain.BotStatusStore,
	logger *slog.Logger,
	opts ...InstanceOption,
) *Instance {
	i := &Instance{
		userID:         userID,
		configs:        configs,
		users:          users,
		market:         market,
		engine:         engine,
		executor:       executor,
		statuses:       statuses,
		logger:         logger.With(slog.String("component", "bot"), slog.String("user_id", userID)),
		cycleTimeout:   defaultCycleTimeout,
		backfillWindow: defaultBackfillWindow,
		state:          domain.BotStateStopped,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// UserID returns the owning user.
func (i *Instance) UserID() string { return i.userID }

// State returns the current lifecycle state.
func (i *Instance) State() domain.BotState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// LastCycleAt returns when the last cycle completed, zero before the first.
func (i *Instance) LastCycleAt() time.Time {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.lastCycleAt
}

// Start transitions STOPPED -> STARTING -> RUNNING: warms up a fresh
// indicator bank from price history, runs one cycle synchronously, then
// schedules the recurring cycle at the configured interval. Returns
// ErrBotAlreadyRunning when not stopped; any other failure leaves the
// instance in ERROR.
func (i *Instance) Start(ctx context.Context) error {
	i.mu.Lock()
	if i.state != domain.BotStateStopped {
		i.mu.Unlock()
		return fmt.Errorf("bot %s: %w", i.userID, domain.ErrBotAlreadyRunning)
	}
	i.state = domain.BotStateStarting
	i.mu.Unlock()
	i.persistStatus(ctx, domain.BotStateStarting, "")

	cfg, err := i.configs.GetBotConfig(ctx, i.userID)
	if err != nil {
		i.fail(ctx, fmt.Sprintf("load config: %v", err))
		return fmt.Errorf("bot %s: load config: %w", i.userID, err)
	}
	if cfg.RunInterval <= 0 {
		i.fail(ctx, "run interval must be positive")
		return fmt.Errorf("bot %s: run interval must be positive", i.userID)
	}

	// Fresh bank every start; indicator state never survives a stop.
	bank := indicator.NewBank()
	for _, point := range i.market.HistoricalPrices(ctx, i.backfillWindow) {
		bank.Update(indicator.Tick{Price: point.Price, Time: point.Timestamp})
	}

	loopCtx, cancel := context.WithCancel(ctx)

	i.mu.Lock()
	i.bank = bank
	i.cancel = cancel
	i.state = domain.BotStateRunning
	i.mu.Unlock()
	i.persistStatus(ctx, domain.BotStateRunning, "")

	i.logger.Info("bot started",
		slog.Duration("interval", cfg.RunInterval),
		slog.Duration("backfill", i.backfillWindow))

	i.runCycle(loopCtx)

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		i.cycleLoop(loopCtx, cfg.RunInterval)
	}()

	return nil
}

// Stop cancels the cycle timer and transitions to STOPPED. Calling Stop on a
// stopped instance is a no-op; Stop never fails. An in-flight cycle is
// cancelled via its context rather than waited for.
func (i *Instance) Stop() {
	i.mu.Lock()
	if i.state == domain.BotStateStopped {
		i.mu.Unlock()
		return
	}
	cancel := i.cancel
	i.cancel = nil
	i.bank = nil
	i.state = domain.BotStateStopped
	i.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	i.persistStatus(context.Background(), domain.BotStateStopped, "")
	i.logger.Info("bot stopped")
}

// Wait blocks until the cycle loop goroutine has exited. Must not be called
// from inside a cycle.
func (i *Instance) Wait() {
	i.wg.Wait()
}

func (i *Instance) cycleLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i.runCycle(ctx)
		}
	}
}

// runCycle executes one decision pass. Every skip path leaves the bot
// RUNNING; only deactivation and subscription expiry stop it.
func (i *Instance) runCycle(parent context.Context) {
	if i.State() != domain.BotStateRunning {
		return
	}
	if !i.inCycle.CompareAndSwap(false, true) {
		i.logger.Warn("cycle overlap, previous cycle still in flight")
		return
	}
	defer i.inCycle.Store(false)

	ctx, cancel := context.WithTimeout(parent, i.cycleTimeout)
	defer cancel()

	// Config is authoritative external state, re-read every cycle.
	cfg, err := i.configs.GetBotConfig(ctx, i.userID)
	if err != nil {
		i.logger.Warn("cycle skipped, config unavailable", slog.String("error", err.Error()))
		return
	}
	if !cfg.Active {
		i.logger.Info("config deactivated externally, stopping")
		i.Stop()
		return
	}

	user, err := i.users.GetUserByID(ctx, i.userID)
	if err != nil {
		i.logger.Warn("cycle skipped, user unavailable", slog.String("error", err.Error()))
		return
	}
	if user.SubscriptionExpiresAt.Before(time.Now()) {
		i.logger.Warn("subscription expired, stopping",
			slog.Time("expired_at", user.SubscriptionExpiresAt))
		i.Stop()
		return
	}

	market, err := i.market.CurrentMarket(ctx)
	if err != nil || market == nil {
		i.logger.Debug("cycle skipped, no active market")
		i.finishCycle(ctx)
		return
	}

	price, err := i.market.CurrentPrice(ctx)
	if err != nil || price == nil {
		i.logger.Debug("cycle skipped, no price available")
		i.finishCycle(ctx)
		return
	}

	i.mu.Lock()
	bank := i.bank
	i.mu.Unlock()
	if bank == nil {
		return
	}
	bank.Update(indicator.Tick{Price: price.Price, Volume: market.Volume, Time: price.Timestamp})

	if !bank.Ready() {
		i.logger.Debug("cycle skipped, indicators warming up")
		i.finishCycle(ctx)
		return
	}

	sig := i.engine.Analyze(bank, price.Price, market)
	if sig == nil {
		i.finishCycle(ctx)
		return
	}

	if sig.Edge < cfg.EdgeThreshold {
		i.logger.Debug("signal below edge threshold",
			slog.Float64("edge", sig.Edge),
			slog.Float64("threshold", cfg.EdgeThreshold))
		i.finishCycle(ctx)
		return
	}

	txHash, err := i.executor.ExecuteTrade(ctx, i.userID, cfg.WalletAddress, cfg, sig)
	if err != nil {
		// A failed attempt is recoverable; the next cycle re-evaluates.
		i.logger.Error("trade execution failed",
			slog.String("market_id", sig.MarketID),
			slog.String("direction", string(sig.Direction)),
			slog.Float64("confidence", sig.Confidence),
			slog.Float64("edge", sig.Edge),
			slog.String("error", err.Error()))
		i.finishCycle(ctx)
		return
	}

	i.logger.Info("trade executed",
		slog.String("tx_hash", txHash),
		slog.String("market_id", sig.MarketID),
		slog.String("direction", string(sig.Direction)),
		slog.Float64("edge", sig.Edge))
	i.finishCycle(ctx)
}

// finishCycle records cycle completion time and persists the status row.
func (i *Instance) finishCycle(ctx context.Context) {
	now := time.Now().UTC()
	i.mu.Lock()
	i.lastCycleAt = now
	state := i.state
	i.mu.Unlock()

	if state == domain.BotStateRunning {
		i.persistStatus(ctx, state, "")
	}
}

// fail transitions to ERROR with the message captured.
func (i *Instance) fail(ctx context.Context, msg string) {
	i.mu.Lock()
	i.state = domain.BotStateError
	i.mu.Unlock()
	i.persistStatus(ctx, domain.BotStateError, msg)
}

func (i *Instance) persistStatus(ctx context.Context, state domain.BotState, errMsg string) {
	if i.statuses == nil {
		return
	}
	i.mu.Lock()
	lastCycle := i.lastCycleAt
	i.mu.Unlock()

	status := domain.BotStatus{
		UserID:       i.userID,
		State:        state,
		LastCycleAt:  lastCycle,
		ErrorMessage: errMsg,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := i.statuses.Upsert(ctx, status); err != nil {
		i.logger.Warn("status upsert failed", slog.String("error", err.Error()))
	}
}
