// Package monitor is the shared market and price cache. One monitor serves
// every bot: the websocket feed pushes market updates into it, a refresh
// loop keeps the price current, and bots read from it without touching the
// upstream APIs directly.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/signalbot/internal/domain"
)

// DefaultRefreshInterval is how often the background loop refreshes the
// market snapshot and price when no push update has arrived.
const DefaultRefreshInterval = 15 * time.Second

// Monitor caches the active market and latest price for a single series.
// The price is resolved oracle-first with the REST ticker as fallback; a
// missing price from both sources is a valid state, not an error.
type Monitor struct {
	markets  domain.MarketSource
	primary  domain.PriceSource
	fallback domain.PriceSource
	history  domain.HistoricalPriceSource
	cache    domain.PriceCache
	cacheKey string
	interval time.Duration
	logger   *slog.Logger

	mu     sync.RWMutex
	market *domain.MarketSnapshot
	price  *domain.PricePoint

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithRefreshInterval overrides the background refresh interval.
func WithRefreshInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithPriceCache adds a write-through cache that receives every price the
// monitor resolves, keyed by assetID.
func WithPriceCache(cache domain.PriceCache, assetID string) Option {
	return func(m *Monitor) {
		m.cache = cache
		m.cacheKey = assetID
	}
}

// New creates a Monitor. primary may be nil when no oracle is configured;
// fallback is then the only price source.
func New(markets domain.MarketSource, primary, fallback domain.PriceSource, history domain.HistoricalPriceSource, logger *slog.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		markets:  markets,
		primary:  primary,
		fallback: fallback,
		history:  history,
		interval: DefaultRefreshInterval,
		logger:   logger.With(slog.String("component", "monitor")),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches the background refresh loop. Calling Start on a running
// monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.running {
		return
	}
	m.running = true

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.refreshLoop(loopCtx)
	}()
	m.logger.Info("monitor started", slog.Duration("interval", m.interval))
}

// Stop halts the refresh loop and waits for it to exit. Calling Stop on a
// stopped monitor is a no-op.
func (m *Monitor) Stop() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	m.cancel()
	m.wg.Wait()
	m.logger.Info("monitor stopped")
}

// HandleMarketUpdate stores a pushed market snapshot. Wired as the websocket
// feed's update handler.
func (m *Monitor) HandleMarketUpdate(_ context.Context, snap domain.MarketSnapshot) {
	m.mu.Lock()
	m.market = &snap
	m.mu.Unlock()
}

// CurrentMarket returns the active market: the pushed snapshot when it is
// still live, otherwise a pull from the REST API. The pull result replaces
// the cached snapshot.
func (m *Monitor) CurrentMarket(ctx context.Context) (*domain.MarketSnapshot, error) {
	m.mu.RLock()
	cached := m.market
	m.mu.RUnlock()

	if cached != nil && !cached.Expired(time.Now().UTC()) {
		return cached, nil
	}

	snap, err := m.markets.ActiveMarket(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.market = snap
	m.mu.Unlock()
	return snap, nil
}

// CurrentPrice returns the latest price, oracle first then ticker. A nil
// point with nil error means no source currently has a price; callers skip
// the cycle rather than treat it as a failure.
func (m *Monitor) CurrentPrice(ctx context.Context) (*domain.PricePoint, error) {
	if m.primary != nil {
		point, err := m.primary.LatestPrice(ctx)
		if err == nil && point != nil {
			m.storePrice(ctx, point)
			return point, nil
		}
		if err != nil {
			m.logger.Warn("oracle price unavailable, falling back",
				slog.String("error", err.Error()))
		}
	}

	if m.fallback != nil {
		point, err := m.fallback.LatestPrice(ctx)
		if err == nil && point != nil {
			m.storePrice(ctx, point)
			return point, nil
		}
		if err != nil {
			m.logger.Warn("fallback price unavailable",
				slog.String("error", err.Error()))
		}
	}

	// An earlier price is only served while it is at most one refresh
	// interval old; beyond that both sources failing means no price, and
	// the caller skips the cycle.
	m.mu.RLock()
	last := m.price
	m.mu.RUnlock()
	if last != nil && time.Since(last.Timestamp) <= m.interval {
		return last, nil
	}
	return nil, nil
}

// HistoricalPrices returns price points covering the trailing window, oldest
// first. A fetch failure is logged and yields an empty slice; indicators
// warm up from live ticks instead.
func (m *Monitor) HistoricalPrices(ctx context.Context, window time.Duration) []domain.PricePoint {
	if m.history == nil {
		return nil
	}
	points, err := m.history.HistoricalPrices(ctx, window)
	if err != nil {
		m.logger.Warn("historical prices unavailable",
			slog.Duration("window", window),
			slog.String("error", err.Error()))
		return nil
	}
	return points
}

// storePrice records the resolved price in memory and writes it through to
// the external cache when one is configured.
func (m *Monitor) storePrice(ctx context.Context, point *domain.PricePoint) {
	m.mu.Lock()
	m.price = point
	m.mu.Unlock()

	if m.cache != nil {
		if err := m.cache.SetPrice(ctx, m.cacheKey, point.Price, point.Timestamp); err != nil {
			m.logger.Warn("price cache write failed", slog.String("error", err.Error()))
		}
	}
}

func (m *Monitor) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.refresh(ctx)
		}
	}
}

func (m *Monitor) refresh(ctx context.Context) {
	if _, err := m.CurrentMarket(ctx); err != nil {
		m.logger.Warn("market refresh failed", slog.String("error", err.Error()))
	}
	if _, err := m.CurrentPrice(ctx); err != nil {
		m.logger.Warn("price refresh failed", slog.String("error", err.Error()))
	}
}
