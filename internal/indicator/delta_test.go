package indicator

import (
	"testing"
	"time"
)

func TestDelta_NotReadyWithFewerThanTwoSamples(t *testing.T) {
	d := NewDelta(DefaultDeltaWindow)

	if d.Ready() {
		t.Error("Ready() = true with no samples")
	}
	d.Update(Tick{Price: 0.50, Time: time.Now()})
	if d.Ready() {
		t.Error("Ready() = true with one sample")
	}
	if got := d.Signal(); got != 0 {
		t.Errorf("Signal() = %v with one sample, want 0", got)
	}
}

func TestDelta_RisingPricesPositiveSignal(t *testing.T) {
	d := NewDelta(DefaultDeltaWindow)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	// One sample per 30s over four minutes, steadily rising.
	p := 0.40
	for i := 0; i < 9; i++ {
		d.Update(Tick{Price: p, Time: base.Add(time.Duration(i) * 30 * time.Second)})
		p += 0.01
	}

	if !d.Ready() {
		t.Fatal("Ready() = false")
	}
	if got := d.Signal(); got <= 0 {
		t.Errorf("Signal() = %v for rising prices, want > 0", got)
	}
}

func TestDelta_FallingPricesNegativeSignal(t *testing.T) {
	d := NewDelta(DefaultDeltaWindow)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := 0.60
	for i := 0; i < 9; i++ {
		d.Update(Tick{Price: p, Time: base.Add(time.Duration(i) * 30 * time.Second)})
		p -= 0.01
	}

	if got := d.Signal(); got >= 0 {
		t.Errorf("Signal() = %v for falling prices, want < 0", got)
	}
}

func TestDelta_TrimsOutsideWindow(t *testing.T) {
	d := NewDelta(DefaultDeltaWindow)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	d.Update(Tick{Price: 0.10, Time: base})
	// Ten minutes later the first point is outside the five-minute window.
	d.Update(Tick{Price: 0.50, Time: base.Add(10 * time.Minute)})

	if d.Ready() {
		t.Error("Ready() = true after older sample aged out")
	}
}
