package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/signalbot/internal/domain"
)

// DefaultReconcileInterval is how often the manager diffs desired bots
// (active configs) against the running set.
const DefaultReconcileInterval = 60 * time.Second

// InstanceFactory builds a stopped Instance for a user. The manager owns no
// instance dependencies itself; the factory closes over them.
type InstanceFactory func(userID string) *Instance

// Manager is the registry of live bot instances. StartBot, StopBot and
// RestartBot are the only mutation entry points; a reconciliation loop
// applies external config changes within one interval.
type Manager struct {
	configs  domain.ConfigProvider
	factory  InstanceFactory
	interval time.Duration
	logger   *slog.Logger

	mu   sync.Mutex
	bots map[string]*Instance

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithReconcileInterval overrides the reconciliation interval.
func WithReconcileInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

// NewManager creates an empty registry.
func NewManager(configs domain.ConfigProvider, factory InstanceFactory, logger *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		configs:  configs,
		factory:  factory,
		interval: DefaultReconcileInterval,
		logger:   logger.With(slog.String("component", "bot_manager")),
		bots:     make(map[string]*Instance),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartBot creates (if needed) and starts the user's bot. Returns
// ErrBotAlreadyRunning when the instance is not stopped.
func (m *Manager) StartBot(ctx context.Context, userID string) error {
	m.mu.Lock()
	inst, ok := m.bots[userID]
	if !ok {
		inst = m.factory(userID)
		m.bots[userID] = inst
	}
	m.mu.Unlock()

	if err := inst.Start(ctx); err != nil {
		// A failed start is discarded so the next reconcile can retry with
		// a fresh instance. An already-running instance stays registered.
		if !errors.Is(err, domain.ErrBotAlreadyRunning) {
			m.mu.Lock()
			if m.bots[userID] == inst {
				delete(m.bots, userID)
			}
			m.mu.Unlock()
		}
		return fmt.Errorf("start bot %s: %w", userID, err)
	}
	return nil
}

// StopBot stops the user's bot and removes it from the registry. Returns
// ErrBotNotRunning when no instance exists for the user.
func (m *Manager) StopBot(ctx context.Context, userID string) error {
	m.mu.Lock()
	inst, ok := m.bots[userID]
	if ok {
		delete(m.bots, userID)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("stop bot %s: %w", userID, domain.ErrBotNotRunning)
	}
	inst.Stop()
	return nil
}

// RestartBot stops and starts the user's bot. A missing instance is not an
// error; restart then degenerates to start.
func (m *Manager) RestartBot(ctx context.Context, userID string) error {
	if err := m.StopBot(ctx, userID); err != nil && !errors.Is(err, domain.ErrBotNotRunning) {
		return err
	}
	return m.StartBot(ctx, userID)
}

// ActiveBotUserIDs returns the users whose instance is currently running.
func (m *Manager) ActiveBotUserIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.bots))
	for userID, inst := range m.bots {
		switch inst.State() {
		case domain.BotStateStarting, domain.BotStateRunning:
			ids = append(ids, userID)
		}
	}
	return ids
}

// ActiveBotCount returns the number of running instances.
func (m *Manager) ActiveBotCount() int {
	return len(m.ActiveBotUserIDs())
}

// Initialize runs one reconciliation immediately and starts the periodic
// loop. Calling Initialize on a running manager is a no-op.
func (m *Manager) Initialize(ctx context.Context) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.running {
		return
	}
	m.running = true

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.Reconcile(loopCtx)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				m.Reconcile(loopCtx)
			}
		}
	}()
	m.logger.Info("bot manager initialized", slog.Duration("reconcile_interval", m.interval))
}

// Shutdown cancels the reconciliation loop and stops every registered bot
// concurrently. It blocks until all cycle loops have exited.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.runMu.Lock()
	if m.running {
		m.running = false
		m.cancel()
	}
	m.runMu.Unlock()
	m.wg.Wait()

	m.mu.Lock()
	instances := make([]*Instance, 0, len(m.bots))
	for userID, inst := range m.bots {
		instances = append(instances, inst)
		delete(m.bots, userID)
	}
	m.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for _, inst := range instances {
		g.Go(func() error {
			inst.Stop()
			inst.Wait()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("bot manager shutdown: %w", err)
	}
	m.logger.Info("bot manager shut down", slog.Int("bots_stopped", len(instances)))
	return nil
}

// Reconcile diffs the desired set (users with an active config) against the
// running set and starts or stops the delta. One user's failure never blocks
// the rest.
func (m *Manager) Reconcile(ctx context.Context) {
	desired, err := m.configs.ListActiveUserIDs(ctx)
	if err != nil {
		m.logger.Warn("reconcile skipped, cannot list active users", slog.String("error", err.Error()))
		return
	}

	desiredSet := make(map[string]struct{}, len(desired))
	for _, userID := range desired {
		desiredSet[userID] = struct{}{}
	}

	running := make(map[string]struct{})
	for _, userID := range m.ActiveBotUserIDs() {
		running[userID] = struct{}{}
	}

	for _, userID := range desired {
		if _, ok := running[userID]; ok {
			continue
		}
		if err := m.StartBot(ctx, userID); err != nil {
			m.logger.Error("reconcile: start failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
		}
	}

	for userID := range running {
		if _, ok := desiredSet[userID]; ok {
			continue
		}
		if err := m.StopBot(ctx, userID); err != nil {
			m.logger.Error("reconcile: stop failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
		}
	}
}
