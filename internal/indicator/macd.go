package indicator

// Default MACD parameters (fast EMA, slow EMA, signal-line EMA).
const (
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
)

// ema is a streaming exponential moving average seeded by a simple average of
// its first `period` samples.
type ema struct {
	period int
	k      float64
	seed   []float64
	value  float64
	primed bool
}

func newEMA(period int) *ema {
	return &ema{
		period: period,
		k:      2.0 / (float64(period) + 1),
		seed:   make([]float64, 0, period),
	}
}

func (e *ema) update(v float64) {
	if e.primed {
		e.value = v*e.k + e.value*(1-e.k)
		return
	}
	e.seed = append(e.seed, v)
	if len(e.seed) == e.period {
		sum := 0.0
		for _, s := range e.seed {
			sum += s
		}
		e.value = sum / float64(e.period)
		e.primed = true
		e.seed = nil
	}
}

func (e *ema) reset() {
	e.seed = make([]float64, 0, e.period)
	e.value = 0
	e.primed = false
}

// MACD is a streaming moving-average convergence/divergence indicator. The
// output is the MACD histogram scaled by 2 and clamped to [-1, +1]. Crossover
// detection is exposed for explainability only; position sizing never reads
// it.
type MACD struct {
	fast   *ema
	slow   *ema
	signal *ema

	macd       float64
	hasMACD    bool
	prevMACD   float64
	prevSignal float64
	hasPrev    bool
}

// NewMACD creates a MACD indicator with the given EMA periods.
func NewMACD(fast, slow, signal int) *MACD {
	if fast <= 0 {
		fast = DefaultMACDFast
	}
	if slow <= 0 {
		slow = DefaultMACDSlow
	}
	if signal <= 0 {
		signal = DefaultMACDSignal
	}
	return &MACD{
		fast:   newEMA(fast),
		slow:   newEMA(slow),
		signal: newEMA(signal),
	}
}

func (m *MACD) Name() string { return NameMACD }

func (m *MACD) Update(t Tick) {
	m.fast.update(t.Price)
	m.slow.update(t.Price)
	if !m.fast.primed || !m.slow.primed {
		return
	}

	macd := m.fast.value - m.slow.value
	if m.signal.primed {
		m.prevMACD = m.macd
		m.prevSignal = m.signal.value
		m.hasPrev = true
	}
	m.macd = macd
	m.hasMACD = true
	m.signal.update(macd)
}

// Ready reports true once the signal-line EMA has a value.
func (m *MACD) Ready() bool {
	return m.signal.primed
}

// Histogram returns MACD line minus signal line, or 0 when not ready.
func (m *MACD) Histogram() float64 {
	if !m.Ready() {
		return 0
	}
	return m.macd - m.signal.value
}

func (m *MACD) Signal() float64 {
	if !m.Ready() {
		return 0
	}
	return clamp(m.Histogram()*2, -1, 1)
}

// BullishCrossover reports whether the MACD line crossed above the signal
// line on the latest two samples.
func (m *MACD) BullishCrossover() bool {
	return m.Ready() && m.hasPrev &&
		m.prevMACD <= m.prevSignal && m.macd > m.signal.value
}

// BearishCrossover reports whether the MACD line crossed below the signal
// line on the latest two samples.
func (m *MACD) BearishCrossover() bool {
	return m.Ready() && m.hasPrev &&
		m.prevMACD >= m.prevSignal && m.macd < m.signal.value
}

func (m *MACD) Reset() {
	m.fast.reset()
	m.slow.reset()
	m.signal.reset()
	m.macd = 0
	m.hasMACD = false
	m.prevMACD = 0
	m.prevSignal = 0
	m.hasPrev = false
}
