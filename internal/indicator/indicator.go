// Package indicator provides streaming technical indicators over a live price
// feed. Each indicator consumes ticks one at a time, keeps its own bounded
// internal state, and produces a signal in [-1, +1]. An indicator that is not
// yet ready always reports a zero signal rather than undefined output.
package indicator

import "time"

// Tick is one price observation fed to the indicators. Volume may be zero for
// sources that do not report it; only VWAP consumes it.
type Tick struct {
	Price  float64
	Volume float64
	Time   time.Time
}

// Indicator is the contract shared by all streaming indicators.
type Indicator interface {
	// Name returns the stable identifier used for weights and score maps.
	Name() string
	// Update feeds one tick into the indicator's internal state.
	Update(t Tick)
	// Signal returns the current signal in [-1, +1], or 0 when not ready.
	Signal() float64
	// Ready reports whether enough data has accumulated for Signal to be
	// meaningful.
	Ready() bool
	// Reset discards all accumulated state.
	Reset()
}

// Indicator names, used as weight keys and score-map keys.
const (
	NameRSI        = "rsi"
	NameMACD       = "macd"
	NameVWAP       = "vwap"
	NameHeikenAshi = "heiken_ashi"
	NameDelta      = "delta"
)

// Bank is one bot instance's private set of indicators. Banks are never
// shared across users; only the market data feeding them is.
type Bank struct {
	indicators []Indicator
}

// NewBank creates a bank with the five default indicators at their default
// parameters.
func NewBank() *Bank {
	return &Bank{
		indicators: []Indicator{
			NewRSI(DefaultRSIPeriod),
			NewMACD(DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal),
			NewVWAP(),
			NewHeikenAshi(nil),
			NewDelta(DefaultDeltaWindow),
		},
	}
}

// NewBankWith creates a bank from an explicit indicator set. Used in tests
// and by callers that substitute indicators.
func NewBankWith(indicators ...Indicator) *Bank {
	return &Bank{indicators: indicators}
}

// Update feeds one tick into every indicator.
func (b *Bank) Update(t Tick) {
	for _, ind := range b.indicators {
		ind.Update(t)
	}
}

// Ready reports whether every indicator in the bank is ready.
func (b *Bank) Ready() bool {
	for _, ind := range b.indicators {
		if !ind.Ready() {
			return false
		}
	}
	return true
}

// Reset discards the state of every indicator.
func (b *Bank) Reset() {
	for _, ind := range b.indicators {
		ind.Reset()
	}
}

// Indicators returns the bank's indicators in their fixed order.
func (b *Bank) Indicators() []Indicator {
	return b.indicators
}

// Scores returns the current signal of every indicator keyed by name.
// Unready indicators contribute 0.
func (b *Bank) Scores() map[string]float64 {
	scores := make(map[string]float64, len(b.indicators))
	for _, ind := range b.indicators {
		scores[ind.Name()] = ind.Signal()
	}
	return scores
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
