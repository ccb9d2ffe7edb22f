package domain

import "time"

// PricePoint is a single observed price. Points are ephemeral: indicators and
// the market monitor hold them in bounded buffers, nothing persists them.
type PricePoint struct {
	Price     float64
	Timestamp time.Time
}

// MarketSnapshot is the current state of the single active market. The market
// monitor replaces it wholesale on every update; consumers treat it as
// read-only.
type MarketSnapshot struct {
	ID        string
	Question  string
	Slug      string
	YesPrice  float64
	NoPrice   float64
	Volume    float64
	Liquidity float64
	ExpiresAt time.Time
}

// Expired reports whether the market has passed its expiry at the given time.
func (m *MarketSnapshot) Expired(now time.Time) bool {
	return !m.ExpiresAt.IsZero() && now.After(m.ExpiresAt)
}

// TargetPrice returns the price of the outcome token a trade in the given
// direction would buy.
func (m *MarketSnapshot) TargetPrice(d Direction) float64 {
	if d == DirectionUp {
		return m.YesPrice
	}
	return m.NoPrice
}
