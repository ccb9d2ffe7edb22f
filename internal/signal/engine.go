// Package signal combines the indicator bank's individual signals into a
// single directional trade signal with a confidence score and an expected
// edge against the current market price.
package signal

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/alanyoungcy/signalbot/internal/domain"
	"github.com/alanyoungcy/signalbot/internal/indicator"
)

// weightTolerance is how far the weight sum may drift from 1.0 before the
// engine rejects the configuration.
const weightTolerance = 1e-9

// DefaultWeights returns the default indicator weight vector. The weights
// sum to 1.0.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		indicator.NameRSI:        0.20,
		indicator.NameMACD:       0.25,
		indicator.NameVWAP:       0.20,
		indicator.NameHeikenAshi: 0.20,
		indicator.NameDelta:      0.15,
	}
}

// Engine folds indicator signals into TradeSignals using a fixed weight
// vector. It is stateless between calls; all rolling state lives in the
// indicator bank owned by the caller.
type Engine struct {
	weights map[string]float64
	logger  *slog.Logger
}

// NewEngine creates an Engine with the given weights. Weights must cover at
// least one indicator and sum to 1.0; configurations that do not are
// rejected rather than silently normalized.
func NewEngine(weights map[string]float64, logger *slog.Logger) (*Engine, error) {
	if len(weights) == 0 {
		weights = DefaultWeights()
	}
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return nil, fmt.Errorf("signal: %w: got %v", domain.ErrInvalidWeights, sum)
	}
	return &Engine{
		weights: weights,
		logger:  logger.With(slog.String("component", "signal_engine")),
	}, nil
}

// Analyze produces a trade signal from the bank's current state, or nil when
// any indicator is still warming up. Weak signals are NOT filtered here;
// filtering against the edge threshold happens downstream in the bot cycle.
func (e *Engine) Analyze(bank *indicator.Bank, currentPrice float64, market *domain.MarketSnapshot) *domain.TradeSignal {
	if market == nil || !bank.Ready() {
		return nil
	}

	scores := bank.Scores()
	weighted := 0.0
	for name, score := range scores {
		weighted += score * e.weights[name]
	}

	// Strict > 0: a dead-even sum resolves DOWN.
	direction := domain.DirectionDown
	if weighted > 0 {
		direction = domain.DirectionUp
	}
	confidence := math.Abs(weighted) * 100
	targetPrice := market.TargetPrice(direction)
	edge := (confidence / 100) * (1 - targetPrice)

	sig := &domain.TradeSignal{
		Direction:  direction,
		Confidence: confidence,
		Edge:       edge,
		MarketID:   market.ID,
		EntryPrice: targetPrice,
		Reasoning:  reasoning(scores),
		Scores:     scores,
		CreatedAt:  time.Now().UTC(),
	}

	e.logger.Debug("signal produced",
		slog.String("direction", string(direction)),
		slog.Float64("confidence", confidence),
		slog.Float64("edge", edge),
		slog.String("market_id", market.ID),
	)
	return sig
}

// reasoning assembles the human-readable explanation by checking each
// indicator against its magnitude threshold.
func reasoning(scores map[string]float64) string {
	var parts []string

	if s := scores[indicator.NameRSI]; s > 0.5 {
		parts = append(parts, "RSI oversold, bullish reversal setup")
	} else if s < -0.5 {
		parts = append(parts, "RSI overbought, bearish reversal setup")
	}

	if s := scores[indicator.NameMACD]; s > 0.5 {
		parts = append(parts, "MACD bullish momentum")
	} else if s < -0.5 {
		parts = append(parts, "MACD bearish momentum")
	}

	if s := scores[indicator.NameVWAP]; s > 0.3 {
		parts = append(parts, "price trading above VWAP")
	} else if s < -0.3 {
		parts = append(parts, "price trading below VWAP")
	}

	if s := scores[indicator.NameHeikenAshi]; s > 0.5 {
		parts = append(parts, "Heiken-Ashi uptrend")
	} else if s < -0.5 {
		parts = append(parts, "Heiken-Ashi downtrend")
	}

	if s := scores[indicator.NameDelta]; s > 0.5 {
		parts = append(parts, "strong short-term upward momentum")
	} else if s < -0.5 {
		parts = append(parts, "strong short-term downward momentum")
	}

	if len(parts) == 0 {
		return "weak signal from all indicators"
	}
	return strings.Join(parts, "; ")
}
