package notify

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/signalbot/internal/domain"
)

// Event types emitted by the trading core.
const (
	EventTradeExecuted = "trade_executed"
	EventBotError      = "bot_error"
)

// TradeExecuted notifies operators that a trade went on-chain.
func (n *Notifier) TradeExecuted(ctx context.Context, trade domain.TradeRecord) error {
	title := fmt.Sprintf("Trade executed for %s", trade.UserID)
	message := fmt.Sprintf(
		"market %s\nside %s @ %.4f\nsize $%.2f (%.2f tokens)\ntx %s",
		trade.MarketID, trade.Side, trade.EntryPrice,
		trade.EntryValue, trade.Quantity, trade.TxHash,
	)
	return n.Notify(ctx, EventTradeExecuted, title, message)
}

// BotError notifies operators that a user's bot hit an error worth a look.
func (n *Notifier) BotError(ctx context.Context, userID string, err error) error {
	title := fmt.Sprintf("Bot error for %s", userID)
	return n.Notify(ctx, EventBotError, title, err.Error())
}
