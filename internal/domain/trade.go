package domain

import "time"

// TradeSide is the outcome token bought by a trade.
type TradeSide string

const (
	TradeSideYes TradeSide = "yes"
	TradeSideNo  TradeSide = "no"
)

// TradeStatus is the settlement state of a trade record. The core only ever
// creates trades in the open state; settlement is owned by an external
// process.
type TradeStatus string

const (
	TradeStatusOpen   TradeStatus = "open"
	TradeStatusClosed TradeStatus = "closed"
)

// TradeRecord is the persisted outcome of one executed trade. From the core's
// point of view it is immutable after creation.
type TradeRecord struct {
	ID         string
	UserID     string
	MarketID   string
	Strategy   string
	Side       TradeSide
	EntryPrice float64
	Quantity   float64 // outcome tokens, EntryValue / EntryPrice
	EntryValue float64 // dollars
	Status     TradeStatus
	TxHash     string
	PnL        float64
	CreatedAt  time.Time
}

// SideForDirection maps a signal direction to the outcome token it buys.
func SideForDirection(d Direction) TradeSide {
	if d == DirectionUp {
		return TradeSideYes
	}
	return TradeSideNo
}
