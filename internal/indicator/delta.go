package indicator

import "time"

// DefaultDeltaWindow is how much price history Delta retains.
const DefaultDeltaWindow = 5 * time.Minute

// Delta measures short-term momentum from a time-bounded buffer of price
// points: the fractional change over roughly the last minute blended 60/40
// with the change over roughly the last three minutes, scaled by 50 and
// clamped to [-1, +1].
type Delta struct {
	window time.Duration
	points []pricePoint
}

type pricePoint struct {
	price float64
	at    time.Time
}

// NewDelta creates a Delta indicator retaining `window` of history.
func NewDelta(window time.Duration) *Delta {
	if window <= 0 {
		window = DefaultDeltaWindow
	}
	return &Delta{window: window}
}

func (d *Delta) Name() string { return NameDelta }

func (d *Delta) Update(t Tick) {
	at := t.Time
	if at.IsZero() {
		at = time.Now()
	}
	d.points = append(d.points, pricePoint{price: t.Price, at: at})
	d.trim(at)
}

// trim drops points older than the window relative to now.
func (d *Delta) trim(now time.Time) {
	cutoff := now.Add(-d.window)
	i := 0
	for i < len(d.points) && d.points[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		d.points = append(d.points[:0], d.points[i:]...)
	}
}

// Ready reports true once at least two samples exist.
func (d *Delta) Ready() bool {
	return len(d.points) >= 2
}

func (d *Delta) Signal() float64 {
	if !d.Ready() {
		return 0
	}
	latest := d.points[len(d.points)-1]

	oneMin := d.closestTo(latest.at.Add(-1 * time.Minute))
	threeMin := d.closestTo(latest.at.Add(-3 * time.Minute))

	change1 := fractionalChange(oneMin.price, latest.price)
	change3 := fractionalChange(threeMin.price, latest.price)

	blended := 0.6*change1 + 0.4*change3
	return clamp(blended*50, -1, 1)
}

// closestTo returns the buffered point nearest the target time.
func (d *Delta) closestTo(target time.Time) pricePoint {
	best := d.points[0]
	bestDiff := absDuration(best.at.Sub(target))
	for _, p := range d.points[1:] {
		diff := absDuration(p.at.Sub(target))
		if diff < bestDiff {
			best = p
			bestDiff = diff
		}
	}
	return best
}

func (d *Delta) Reset() {
	d.points = nil
}

func fractionalChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
