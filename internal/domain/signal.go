package domain

import "time"

// Direction is the directional call of a trade signal.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// IndicatorScores holds the per-indicator contributions behind a signal,
// keyed by indicator name. Kept on the signal for explainability and logging.
type IndicatorScores map[string]float64

// TradeSignal is the output of one signal-engine evaluation. It is a value
// object: produced fresh each cycle and never mutated.
type TradeSignal struct {
	Direction  Direction
	Confidence float64 // 0..100
	// Edge is the expected-value proxy: (confidence/100) * (1 - targetPrice).
	// It is not a calibrated probability and can be zero or negative.
	Edge       float64
	MarketID   string
	EntryPrice float64
	Reasoning  string
	Scores     IndicatorScores
	CreatedAt  time.Time
}
