package indicator

import "math"

// maxCandleHistory bounds the smoothed-candle buffer.
const maxCandleHistory = 50

// Candle is one raw OHLC observation.
type Candle struct {
	Open, High, Low, Close float64
}

// CandleSource converts a tick into the raw OHLC candle fed to Heiken-Ashi
// smoothing. The default source has no true candle data and uses the tick
// price for all four components; a real candle feed can be injected here
// without touching the smoothing math.
type CandleSource interface {
	Candle(t Tick) Candle
}

// syntheticCandles is the default single-price CandleSource.
type syntheticCandles struct{}

func (syntheticCandles) Candle(t Tick) Candle {
	return Candle{Open: t.Price, High: t.Price, Low: t.Price, Close: t.Price}
}

// HeikenAshi recomputes smoothed OHLC candles on every update and signals the
// direction and strength of the smoothed trend: the body-to-range ratio,
// boosted by 1.2 when the direction continues from the previous candle and
// damped by 0.8 when it flips.
type HeikenAshi struct {
	source  CandleSource
	candles []Candle // smoothed
}

// NewHeikenAshi creates a Heiken-Ashi indicator. A nil source selects the
// synthetic single-price candles.
func NewHeikenAshi(source CandleSource) *HeikenAshi {
	if source == nil {
		source = syntheticCandles{}
	}
	return &HeikenAshi{source: source}
}

func (h *HeikenAshi) Name() string { return NameHeikenAshi }

func (h *HeikenAshi) Update(t Tick) {
	raw := h.source.Candle(t)

	var smoothed Candle
	smoothed.Close = (raw.Open + raw.High + raw.Low + raw.Close) / 4
	if len(h.candles) == 0 {
		smoothed.Open = (raw.Open + raw.Close) / 2
	} else {
		prev := h.candles[len(h.candles)-1]
		smoothed.Open = (prev.Open + prev.Close) / 2
	}
	smoothed.High = math.Max(raw.High, math.Max(smoothed.Open, smoothed.Close))
	smoothed.Low = math.Min(raw.Low, math.Min(smoothed.Open, smoothed.Close))

	h.candles = append(h.candles, smoothed)
	if len(h.candles) > maxCandleHistory {
		h.candles = h.candles[len(h.candles)-maxCandleHistory:]
	}
}

// Ready reports true once two smoothed candles exist, the minimum needed to
// judge trend continuation.
func (h *HeikenAshi) Ready() bool {
	return len(h.candles) >= 2
}

func (h *HeikenAshi) Signal() float64 {
	if !h.Ready() {
		return 0
	}
	cur := h.candles[len(h.candles)-1]
	prev := h.candles[len(h.candles)-2]

	body := cur.Close - cur.Open
	rng := cur.High - cur.Low
	if rng == 0 {
		return 0
	}

	dir := 1.0
	if body < 0 {
		dir = -1.0
	}
	strength := math.Abs(body) / rng

	factor := 0.8
	if sameDirection(prev, cur) {
		factor = 1.2
	}
	return clamp(dir*strength*factor, -1, 1)
}

// StrongTrend reports whether the last three candles share a direction with
// small wicks, a heuristic for an established trend.
func (h *HeikenAshi) StrongTrend() bool {
	if len(h.candles) < 3 {
		return false
	}
	last := h.candles[len(h.candles)-3:]
	up := last[0].Close >= last[0].Open
	for _, c := range last {
		if (c.Close >= c.Open) != up {
			return false
		}
		rng := c.High - c.Low
		if rng == 0 {
			continue
		}
		wick := rng - math.Abs(c.Close-c.Open)
		if wick/rng > 0.2 {
			return false
		}
	}
	return true
}

func (h *HeikenAshi) Reset() {
	h.candles = nil
}

func sameDirection(a, b Candle) bool {
	return (a.Close >= a.Open) == (b.Close >= b.Open)
}
