package indicator

// DefaultRSIPeriod is the conventional 14-change RSI window.
const DefaultRSIPeriod = 14

// RSI computes a Wilder-smoothed relative strength index over a sliding
// window of price changes and maps it onto [-1, +1]: overbought (RSI > 70)
// is bearish (-1), oversold (RSI < 30) is bullish (+1), with linear
// interpolation through zero at RSI = 50 in between.
type RSI struct {
	period    int
	lastPrice float64
	hasLast   bool

	// Seed accumulation until `period` changes have been observed, then
	// Wilder smoothing takes over.
	changes int
	gainSum float64
	lossSum float64
	avgGain float64
	avgLoss float64
}

// NewRSI creates an RSI indicator over the given number of price changes.
func NewRSI(period int) *RSI {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	return &RSI{period: period}
}

func (r *RSI) Name() string { return NameRSI }

func (r *RSI) Update(t Tick) {
	if !r.hasLast {
		r.lastPrice = t.Price
		r.hasLast = true
		return
	}

	change := t.Price - r.lastPrice
	r.lastPrice = t.Price

	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	r.changes++
	switch {
	case r.changes < r.period:
		r.gainSum += gain
		r.lossSum += loss
	case r.changes == r.period:
		r.gainSum += gain
		r.lossSum += loss
		r.avgGain = r.gainSum / float64(r.period)
		r.avgLoss = r.lossSum / float64(r.period)
	default:
		n := float64(r.period)
		r.avgGain = (r.avgGain*(n-1) + gain) / n
		r.avgLoss = (r.avgLoss*(n-1) + loss) / n
	}
}

// Ready reports true once `period` price changes have been observed.
func (r *RSI) Ready() bool {
	return r.changes >= r.period
}

// Value returns the raw RSI in [0, 100], or 50 when not ready.
func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 50
	}
	if r.avgLoss == 0 {
		return 100
	}
	rs := r.avgGain / r.avgLoss
	return 100 - 100/(1+rs)
}

func (r *RSI) Signal() float64 {
	if !r.Ready() {
		return 0
	}
	rsi := r.Value()
	switch {
	case rsi > 70:
		return -1
	case rsi < 30:
		return 1
	default:
		// Linear through the 30..70 band, zero at 50.
		return clamp((50-rsi)/20, -1, 1)
	}
}

func (r *RSI) Reset() {
	*r = RSI{period: r.period}
}
