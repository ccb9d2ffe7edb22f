package indicator

import (
	"math"
	"testing"
)

func TestMACD_ConstantPriceConverges(t *testing.T) {
	macd := NewMACD(12, 26, 9)
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 0.55
	}
	feedPrices(macd, prices)

	if !macd.Ready() {
		t.Fatal("Ready() = false after 60 constant samples")
	}
	if got := macd.Histogram(); math.Abs(got) > 1e-12 {
		t.Errorf("Histogram() = %v for constant price, want 0", got)
	}
	if got := macd.Signal(); math.Abs(got) > 1e-12 {
		t.Errorf("Signal() = %v for constant price, want 0", got)
	}
}

func TestMACD_NotReadyUntilSignalLine(t *testing.T) {
	macd := NewMACD(12, 26, 9)
	// 26 samples prime the slow EMA and produce the first MACD value, but
	// the 9-period signal line needs 9 MACD samples.
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 0.50 + float64(i)*0.002
	}
	feedPrices(macd, prices)

	if macd.Ready() {
		t.Error("Ready() = true before signal line primed")
	}
	if got := macd.Signal(); got != 0 {
		t.Errorf("Signal() = %v before ready, want 0", got)
	}
}

func TestMACD_UptrendPositiveHistogram(t *testing.T) {
	macd := NewMACD(12, 26, 9)
	prices := make([]float64, 0, 80)
	p := 0.30
	for i := 0; i < 80; i++ {
		p += 0.005
		prices = append(prices, p)
	}
	feedPrices(macd, prices)

	if !macd.Ready() {
		t.Fatal("Ready() = false")
	}
	if got := macd.Histogram(); got <= 0 {
		t.Errorf("Histogram() = %v in sustained uptrend, want > 0", got)
	}
	if got := macd.Signal(); got <= 0 {
		t.Errorf("Signal() = %v in sustained uptrend, want > 0", got)
	}
}

func TestMACD_CrossoverDetection(t *testing.T) {
	macd := NewMACD(3, 6, 3)
	// Downtrend long enough to prime everything with a bearish posture,
	// then a sharp reversal to force the MACD line up through the signal
	// line.
	prices := []float64{
		0.90, 0.88, 0.86, 0.84, 0.82, 0.80, 0.78, 0.76, 0.74, 0.72,
		0.70, 0.68, 0.66, 0.64, 0.62,
	}
	feedPrices(macd, prices)
	if !macd.Ready() {
		t.Fatal("Ready() = false after downtrend warm-up")
	}

	sawBullish := false
	ts := []float64{0.75, 0.85, 0.95, 1.05, 1.15}
	for _, p := range ts {
		macd.Update(Tick{Price: p})
		if macd.BullishCrossover() {
			sawBullish = true
		}
	}
	if !sawBullish {
		t.Error("BullishCrossover() never true across a sharp reversal")
	}
}
