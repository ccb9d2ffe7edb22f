package signal

import (
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/signalbot/internal/domain"
	"github.com/alanyoungcy/signalbot/internal/indicator"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubIndicator reports a fixed signal and readiness.
type stubIndicator struct {
	name   string
	signal float64
	ready  bool
}

func (s *stubIndicator) Name() string          { return s.name }
func (s *stubIndicator) Update(indicator.Tick) {}
func (s *stubIndicator) Signal() float64 {
	if !s.ready {
		return 0
	}
	return s.signal
}
func (s *stubIndicator) Ready() bool { return s.ready }
func (s *stubIndicator) Reset()      {}

func stubBank(signals map[string]float64, allReady bool) *indicator.Bank {
	names := []string{
		indicator.NameRSI, indicator.NameMACD, indicator.NameVWAP,
		indicator.NameHeikenAshi, indicator.NameDelta,
	}
	stubs := make([]indicator.Indicator, 0, len(names))
	for _, name := range names {
		stubs = append(stubs, &stubIndicator{name: name, signal: signals[name], ready: allReady})
	}
	return indicator.NewBankWith(stubs...)
}

func testMarket() *domain.MarketSnapshot {
	return &domain.MarketSnapshot{
		ID:        "mkt-1",
		YesPrice:  0.40,
		NoPrice:   0.60,
		Volume:    10_000,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestNewEngine_RejectsBadWeights(t *testing.T) {
	weights := map[string]float64{
		indicator.NameRSI:  0.5,
		indicator.NameMACD: 0.6,
	}
	if _, err := NewEngine(weights, discardLogger()); err == nil {
		t.Error("NewEngine accepted weights summing to 1.1")
	}
}

func TestNewEngine_DefaultWeightsSumToOne(t *testing.T) {
	sum := 0.0
	for _, w := range DefaultWeights() {
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-12 {
		t.Errorf("default weights sum = %v, want 1.0", sum)
	}
}

func TestAnalyze_NilWhenAnyIndicatorUnready(t *testing.T) {
	engine, err := NewEngine(nil, discardLogger())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	// One unready indicator among four ready ones.
	stubs := []indicator.Indicator{
		&stubIndicator{name: indicator.NameRSI, signal: 1, ready: true},
		&stubIndicator{name: indicator.NameMACD, signal: 1, ready: true},
		&stubIndicator{name: indicator.NameVWAP, signal: 1, ready: true},
		&stubIndicator{name: indicator.NameHeikenAshi, signal: 1, ready: true},
		&stubIndicator{name: indicator.NameDelta, ready: false},
	}
	bank := indicator.NewBankWith(stubs...)

	if sig := engine.Analyze(bank, 0.40, testMarket()); sig != nil {
		t.Errorf("Analyze returned %+v with an unready indicator, want nil", sig)
	}
}

func TestAnalyze_MaxBullish(t *testing.T) {
	engine, err := NewEngine(nil, discardLogger())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	bank := stubBank(map[string]float64{
		indicator.NameRSI:        1,
		indicator.NameMACD:       1,
		indicator.NameVWAP:       1,
		indicator.NameHeikenAshi: 1,
		indicator.NameDelta:      1,
	}, true)

	sig := engine.Analyze(bank, 0.40, testMarket())
	if sig == nil {
		t.Fatal("Analyze returned nil with all indicators ready")
	}
	if sig.Direction != domain.DirectionUp {
		t.Errorf("Direction = %s, want UP", sig.Direction)
	}
	if math.Abs(sig.Confidence-100) > 1e-9 {
		t.Errorf("Confidence = %v, want 100", sig.Confidence)
	}
	// Edge = 1.0 * (1 - 0.40) = 0.60.
	if math.Abs(sig.Edge-0.60) > 1e-9 {
		t.Errorf("Edge = %v, want 0.60", sig.Edge)
	}
	if sig.EntryPrice != 0.40 {
		t.Errorf("EntryPrice = %v, want yes price 0.40", sig.EntryPrice)
	}
}

func TestAnalyze_TieResolvesDown(t *testing.T) {
	engine, err := NewEngine(nil, discardLogger())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	bank := stubBank(map[string]float64{}, true) // all zeros

	sig := engine.Analyze(bank, 0.40, testMarket())
	if sig == nil {
		t.Fatal("Analyze returned nil for a zero-sum signal")
	}
	if sig.Direction != domain.DirectionDown {
		t.Errorf("Direction = %s for zero weighted sum, want DOWN", sig.Direction)
	}
	if sig.EntryPrice != 0.60 {
		t.Errorf("EntryPrice = %v, want no price 0.60", sig.EntryPrice)
	}
	if sig.Reasoning != "weak signal from all indicators" {
		t.Errorf("Reasoning = %q, want weak-signal fallback", sig.Reasoning)
	}
}

func TestAnalyze_DirectionMatchesWeightedSumSign(t *testing.T) {
	engine, err := NewEngine(nil, discardLogger())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	cases := []struct {
		name    string
		signals map[string]float64
		want    domain.Direction
	}{
		{
			name: "net bearish",
			signals: map[string]float64{
				indicator.NameRSI:   -1,
				indicator.NameMACD:  -1,
				indicator.NameDelta: 0.5,
			},
			want: domain.DirectionDown,
		},
		{
			name: "net bullish",
			signals: map[string]float64{
				indicator.NameMACD: 0.8,
				indicator.NameVWAP: -0.2,
			},
			want: domain.DirectionUp,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sig := engine.Analyze(stubBank(tc.signals, true), 0.40, testMarket())
			if sig == nil {
				t.Fatal("Analyze returned nil")
			}
			if sig.Direction != tc.want {
				t.Errorf("Direction = %s, want %s", sig.Direction, tc.want)
			}
		})
	}
}

func TestAnalyze_ReasoningNamesLoudIndicators(t *testing.T) {
	engine, err := NewEngine(nil, discardLogger())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	bank := stubBank(map[string]float64{
		indicator.NameMACD: 0.9,
		indicator.NameVWAP: 0.4, // above VWAP's lower 0.3 threshold
	}, true)

	sig := engine.Analyze(bank, 0.40, testMarket())
	if sig == nil {
		t.Fatal("Analyze returned nil")
	}
	for _, want := range []string{"MACD bullish momentum", "price trading above VWAP"} {
		if !strings.Contains(sig.Reasoning, want) {
			t.Errorf("Reasoning = %q, missing %q", sig.Reasoning, want)
		}
	}
}
