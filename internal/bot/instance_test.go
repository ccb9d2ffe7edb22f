package bot

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/signalbot/internal/domain"
	"github.com/alanyoungcy/signalbot/internal/signal"
)

var testLogger = slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

type stubConfigs struct {
	mu      sync.Mutex
	configs map[string]*domain.BotConfig
	err     error
}

func (s *stubConfigs) GetBotConfig(ctx context.Context, userID string) (*domain.BotConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	cfg, ok := s.configs[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *cfg
	return &copied, nil
}

func (s *stubConfigs) ListActiveUserIDs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var ids []string
	for id, cfg := range s.configs {
		if cfg.Active {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *stubConfigs) setActive(userID string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[userID].Active = active
}

func (s *stubConfigs) setRunInterval(userID string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[userID].RunInterval = d
}

type stubUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
	err   error
}

func (s *stubUsers) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

type stubMarket struct {
	mu      sync.Mutex
	market  *domain.MarketSnapshot
	price   *domain.PricePoint
	history []domain.PricePoint
	mktErr  error
	prcErr  error
}

func (s *stubMarket) CurrentMarket(ctx context.Context) (*domain.MarketSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.market, s.mktErr
}

func (s *stubMarket) CurrentPrice(ctx context.Context) (*domain.PricePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.price, s.prcErr
}

func (s *stubMarket) HistoricalPrices(ctx context.Context, window time.Duration) []domain.PricePoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history
}

type recordingExecutor struct {
	mu     sync.Mutex
	calls  int
	err    error
	lastID string
}

func (r *recordingExecutor) ExecuteTrade(ctx context.Context, userID, wallet string, cfg *domain.BotConfig, sig *domain.TradeSignal) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.lastID = userID
	if r.err != nil {
		return "", r.err
	}
	return "0xabc123", nil
}

func (r *recordingExecutor) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type memStatusStore struct {
	mu       sync.Mutex
	statuses map[string]domain.BotStatus
}

func newMemStatusStore() *memStatusStore {
	return &memStatusStore{statuses: make(map[string]domain.BotStatus)}
}

func (s *memStatusStore) Upsert(ctx context.Context, status domain.BotStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[status.UserID] = status
	return nil
}

func (s *memStatusStore) Get(ctx context.Context, userID string) (*domain.BotStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.statuses[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &status, nil
}

// testDeps bundles the stub collaborators for one instance.
type testDeps struct {
	configs  *stubConfigs
	users    *stubUsers
	market   *stubMarket
	executor *recordingExecutor
	statuses *memStatusStore
}

func defaultDeps(userID string) *testDeps {
	return &testDeps{
		configs: &stubConfigs{configs: map[string]*domain.BotConfig{
			userID: {
				UserID:          userID,
				Active:          true,
				WalletAddress:   "0x1111111111111111111111111111111111111111",
				MaxPositionSize: 100,
				MaxDailyTrades:  50,
				EdgeThreshold:   0.05,
				KellyFraction:   0.25,
				RunInterval:     time.Hour,
			},
		}},
		users: &stubUsers{users: map[string]*domain.User{
			userID: {
				ID:                    userID,
				WalletAddress:         "0x1111111111111111111111111111111111111111",
				SubscriptionExpiresAt: time.Now().Add(24 * time.Hour),
			},
		}},
		market:   &stubMarket{mktErr: domain.ErrNotFound},
		executor: &recordingExecutor{},
		statuses: newMemStatusStore(),
	}
}

func newTestInstance(t *testing.T, userID string, deps *testDeps, opts ...InstanceOption) *Instance {
	t.Helper()
	engine, err := signal.NewEngine(signal.DefaultWeights(), testLogger)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return NewInstance(userID, deps.configs, deps.users, deps.market, engine, deps.executor, deps.statuses, testLogger, opts...)
}

// warmDeps returns deps with enough market data for every indicator to be
// ready after the first live tick: dense recent history plus a live price
// carrying volume.
func warmDeps(userID string) *testDeps {
	deps := defaultDeps(userID)
	now := time.Now().UTC()

	history := make([]domain.PricePoint, 0, 60)
	for i := 0; i < 60; i++ {
		// Oscillating drift upward keeps every oscillator in range.
		price := 0.45 + 0.001*float64(i) + 0.02*math.Sin(float64(i)/3)
		history = append(history, domain.PricePoint{
			Price:     price,
			Timestamp: now.Add(time.Duration(i-60) * 4 * time.Second),
		})
	}
	deps.market.history = history
	deps.market.mktErr = nil
	deps.market.market = &domain.MarketSnapshot{
		ID:        "mkt-1",
		YesPrice:  0.45,
		NoPrice:   0.55,
		Volume:    1000,
		ExpiresAt: now.Add(time.Hour),
	}
	deps.market.price = &domain.PricePoint{Price: 0.53, Timestamp: now}
	// Any signal clears the gate.
	deps.configs.configs[userID].EdgeThreshold = 0
	return deps
}

func TestStart_RejectsDoubleStart(t *testing.T) {
	deps := defaultDeps("u1")
	inst := newTestInstance(t, "u1", deps)
	defer inst.Stop()

	if err := inst.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := inst.Start(context.Background()); !errors.Is(err, domain.ErrBotAlreadyRunning) {
		t.Errorf("second Start error = %v, want ErrBotAlreadyRunning", err)
	}
}

func TestStop_IdempotentAndRestartable(t *testing.T) {
	deps := defaultDeps("u1")
	inst := newTestInstance(t, "u1", deps)

	inst.Stop() // no-op on a stopped instance

	if err := inst.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	inst.Stop()
	inst.Stop()
	if got := inst.State(); got != domain.BotStateStopped {
		t.Errorf("state = %v, want STOPPED", got)
	}

	// A stopped instance can start again.
	if err := inst.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	inst.Stop()
}

func TestStart_MissingConfigIsError(t *testing.T) {
	deps := defaultDeps("u1")
	deps.configs.err = errors.New("db down")
	inst := newTestInstance(t, "u1", deps)

	if err := inst.Start(context.Background()); err == nil {
		t.Fatal("Start succeeded with no config available")
	}
	if got := inst.State(); got != domain.BotStateError {
		t.Errorf("state = %v, want ERROR", got)
	}
	status, err := deps.statuses.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("status Get: %v", err)
	}
	if status.State != domain.BotStateError || status.ErrorMessage == "" {
		t.Errorf("status = %+v, want ERROR with message", status)
	}
}

func TestCycle_SkipsWithoutMarketAndStaysRunning(t *testing.T) {
	deps := defaultDeps("u1") // market errors by default
	inst := newTestInstance(t, "u1", deps)
	defer inst.Stop()

	if err := inst.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := inst.State(); got != domain.BotStateRunning {
		t.Errorf("state = %v, want RUNNING", got)
	}
	if deps.executor.callCount() != 0 {
		t.Errorf("executor called %d times, want 0", deps.executor.callCount())
	}
}

func TestCycle_ExternalDeactivationStopsBot(t *testing.T) {
	deps := defaultDeps("u1")
	deps.configs.configs["u1"].Active = false
	inst := newTestInstance(t, "u1", deps)

	// Start succeeds; the immediate first cycle observes the inactive
	// config and stops the bot.
	if err := inst.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := inst.State(); got != domain.BotStateStopped {
		t.Errorf("state = %v, want STOPPED after deactivation", got)
	}
}

func TestCycle_ExpiredSubscriptionStopsBot(t *testing.T) {
	deps := defaultDeps("u1")
	deps.users.users["u1"].SubscriptionExpiresAt = time.Now().Add(-time.Minute)
	inst := newTestInstance(t, "u1", deps)

	if err := inst.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := inst.State(); got != domain.BotStateStopped {
		t.Errorf("state = %v, want STOPPED after subscription expiry", got)
	}
}

func TestCycle_ExecutesTradeWhenReady(t *testing.T) {
	deps := warmDeps("u1")
	inst := newTestInstance(t, "u1", deps)
	defer inst.Stop()

	if err := inst.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := deps.executor.callCount(); got != 1 {
		t.Fatalf("executor called %d times, want 1", got)
	}
	if deps.executor.lastID != "u1" {
		t.Errorf("executor user = %q, want u1", deps.executor.lastID)
	}
	if inst.LastCycleAt().IsZero() {
		t.Error("LastCycleAt not recorded after cycle")
	}
}

func TestCycle_ExecutionFailureKeepsBotRunning(t *testing.T) {
	deps := warmDeps("u1")
	deps.executor.err = domain.ErrInsufficientAllowance
	inst := newTestInstance(t, "u1", deps)
	defer inst.Stop()

	if err := inst.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := deps.executor.callCount(); got != 1 {
		t.Fatalf("executor called %d times, want 1", got)
	}
	if got := inst.State(); got != domain.BotStateRunning {
		t.Errorf("state = %v, want RUNNING after failed execution", got)
	}
}

func TestCycle_StatusPersisted(t *testing.T) {
	deps := defaultDeps("u1")
	inst := newTestInstance(t, "u1", deps)
	defer inst.Stop()

	if err := inst.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	status, err := deps.statuses.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("status Get: %v", err)
	}
	if status.State != domain.BotStateRunning {
		t.Errorf("status.State = %v, want RUNNING", status.State)
	}
}
