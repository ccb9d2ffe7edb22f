package indicator

import "testing"

func TestHeikenAshi_NotReadyBeforeTwoCandles(t *testing.T) {
	ha := NewHeikenAshi(nil)
	ha.Update(Tick{Price: 0.50})

	if ha.Ready() {
		t.Error("Ready() = true with one candle")
	}
	if got := ha.Signal(); got != 0 {
		t.Errorf("Signal() = %v before ready, want 0", got)
	}
}

func TestHeikenAshi_UptrendPositiveSignal(t *testing.T) {
	ha := NewHeikenAshi(nil)
	for _, p := range []float64{0.40, 0.42, 0.44, 0.46, 0.48} {
		ha.Update(Tick{Price: p})
	}

	if !ha.Ready() {
		t.Fatal("Ready() = false")
	}
	if got := ha.Signal(); got <= 0 {
		t.Errorf("Signal() = %v in uptrend, want > 0", got)
	}
}

func TestHeikenAshi_DowntrendNegativeSignal(t *testing.T) {
	ha := NewHeikenAshi(nil)
	for _, p := range []float64{0.60, 0.58, 0.56, 0.54, 0.52} {
		ha.Update(Tick{Price: p})
	}

	if got := ha.Signal(); got >= 0 {
		t.Errorf("Signal() = %v in downtrend, want < 0", got)
	}
}

func TestHeikenAshi_StrongTrendAfterThreeCandles(t *testing.T) {
	ha := NewHeikenAshi(nil)
	for _, p := range []float64{0.40, 0.44, 0.48, 0.52, 0.56} {
		ha.Update(Tick{Price: p})
	}
	if !ha.StrongTrend() {
		t.Error("StrongTrend() = false after sustained one-way move")
	}
}

func TestHeikenAshi_HistoryBounded(t *testing.T) {
	ha := NewHeikenAshi(nil)
	p := 0.01
	for i := 0; i < 200; i++ {
		ha.Update(Tick{Price: p})
		p += 0.001
	}
	if got := len(ha.candles); got > maxCandleHistory {
		t.Errorf("candle history = %d, want <= %d", got, maxCandleHistory)
	}
}

// customCandles verifies the injectable OHLC seam carries through to the
// smoothing math.
type customCandles struct{ spread float64 }

func (c customCandles) Candle(t Tick) Candle {
	return Candle{
		Open:  t.Price - c.spread,
		High:  t.Price + c.spread,
		Low:   t.Price - 2*c.spread,
		Close: t.Price,
	}
}

func TestHeikenAshi_InjectedCandleSource(t *testing.T) {
	ha := NewHeikenAshi(customCandles{spread: 0.01})
	for _, p := range []float64{0.40, 0.42, 0.44} {
		ha.Update(Tick{Price: p})
	}
	if !ha.Ready() {
		t.Fatal("Ready() = false with injected source")
	}
	last := ha.candles[len(ha.candles)-1]
	if last.High == last.Low {
		t.Error("injected source produced zero-range candle, spread lost")
	}
}
