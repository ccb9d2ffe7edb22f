// Package app provides the top-level application lifecycle management for the
// signal bot. It wires together all dependencies (stores, caches, chain
// clients, market data, and notifications), assembles the trading runtime,
// and supervises it until shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/signalbot/internal/bot"
	"github.com/alanyoungcy/signalbot/internal/config"
	"github.com/alanyoungcy/signalbot/internal/domain"
	"github.com/alanyoungcy/signalbot/internal/executor"
	"github.com/alanyoungcy/signalbot/internal/feed"
	"github.com/alanyoungcy/signalbot/internal/monitor"
	"github.com/alanyoungcy/signalbot/internal/notify"
	"github.com/alanyoungcy/signalbot/internal/signal"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, assembles the
// market monitor, signal engine, executor, and bot manager, and blocks until
// the context is cancelled. On return all resources have been released.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("series", a.cfg.Market.SeriesSlug),
		slog.String("log_level", a.cfg.LogLevel),
	)
	defer a.Close()

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	// Market monitor: oracle first, gamma ticker as fallback, gamma for
	// market discovery and history.
	monOpts := []monitor.Option{
		monitor.WithRefreshInterval(a.cfg.Bot.MonitorRefresh.Duration),
	}
	if deps.PriceCache != nil {
		monOpts = append(monOpts, monitor.WithPriceCache(deps.PriceCache, a.cfg.Market.AssetID))
	}
	mon := monitor.New(deps.Gamma, deps.Oracle, deps.Gamma, deps.Gamma, a.logger, monOpts...)

	// Websocket market feed pushes snapshots straight into the monitor.
	marketFeed := feed.NewMarketFeed(
		a.cfg.Market.WsHost,
		a.cfg.Market.SeriesSlug,
		mon.HandleMarketUpdate,
		a.logger,
	)

	engine, err := signal.NewEngine(signal.DefaultWeights(), a.logger)
	if err != nil {
		return fmt.Errorf("app: signal engine: %w", err)
	}

	exec := executor.New(deps.Provider, deps.Trades, deps.Logs, deps.TradeCounter, a.logger)
	tradeExec := &notifyingExecutor{inner: exec, notifier: deps.Notifier}

	factory := func(userID string) *bot.Instance {
		return bot.NewInstance(
			userID,
			deps.Configs,
			deps.Users,
			mon,
			engine,
			tradeExec,
			deps.Statuses,
			a.logger,
			bot.WithCycleTimeout(a.cfg.Bot.CycleTimeout.Duration),
			bot.WithBackfillWindow(a.cfg.Bot.BackfillWindow.Duration),
		)
	}
	manager := bot.NewManager(deps.Configs, factory, a.logger,
		bot.WithReconcileInterval(a.cfg.Bot.ReconcileInterval.Duration))

	mon.Start(ctx)
	defer mon.Stop()

	manager.Initialize(ctx)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return marketFeed.Run(gctx)
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			return deps.Archiver.Run(gctx)
		})
	}

	// Block until cancellation, then stop every bot before the feed and
	// stores go away.
	g.Go(func() error {
		<-gctx.Done()
		marketFeed.Close()

		shutdownCtx := context.WithoutCancel(gctx)
		if err := manager.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("bot manager shutdown", slog.String("error", err.Error()))
		}
		return gctx.Err()
	})

	err = g.Wait()
	if err != nil && ctx.Err() != nil {
		// Normal shutdown path.
		return nil
	}
	return err
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// notifyingExecutor decorates the trade executor with operator notifications.
// Notification failures are logged by the notifier and never affect the
// trade result.
type notifyingExecutor struct {
	inner    tradeRecorder
	notifier *notify.Notifier
}

// tradeRecorder is the slice of executor.Executor the decorator needs.
type tradeRecorder interface {
	ExecuteTrade(ctx context.Context, userID, wallet string, cfg *domain.BotConfig, sig *domain.TradeSignal) (*domain.TradeRecord, error)
}

var _ bot.TradeExecutor = (*notifyingExecutor)(nil)

func (n *notifyingExecutor) ExecuteTrade(ctx context.Context, userID, wallet string, cfg *domain.BotConfig, sig *domain.TradeSignal) (string, error) {
	record, err := n.inner.ExecuteTrade(ctx, userID, wallet, cfg, sig)
	if err != nil {
		_ = n.notifier.BotError(ctx, userID, err)
		return "", err
	}
	_ = n.notifier.TradeExecuted(ctx, *record)
	return record.TxHash, nil
}
