package indicator

// VWAP tracks the volume-weighted average price of the current session, i.e.
// since construction or the last Reset. The signal is the relative deviation
// of the latest price from VWAP, scaled by 50 and clamped to [-1, +1], so a
// price 2% above VWAP saturates the bullish side.
type VWAP struct {
	cumPV     float64 // cumulative price * volume
	cumVolume float64
	lastPrice float64
}

// NewVWAP creates a session VWAP indicator.
func NewVWAP() *VWAP {
	return &VWAP{}
}

func (v *VWAP) Name() string { return NameVWAP }

func (v *VWAP) Update(t Tick) {
	v.lastPrice = t.Price
	if t.Volume <= 0 {
		return
	}
	v.cumPV += t.Price * t.Volume
	v.cumVolume += t.Volume
}

// Ready reports true once any volume has been observed this session.
func (v *VWAP) Ready() bool {
	return v.cumVolume > 0
}

// Value returns the session VWAP, or 0 when not ready.
func (v *VWAP) Value() float64 {
	if !v.Ready() {
		return 0
	}
	return v.cumPV / v.cumVolume
}

func (v *VWAP) Signal() float64 {
	if !v.Ready() {
		return 0
	}
	vwap := v.Value()
	if vwap == 0 {
		return 0
	}
	return clamp((v.lastPrice-vwap)/vwap*50, -1, 1)
}

func (v *VWAP) Reset() {
	*v = VWAP{}
}
