// Package feed maintains the push connection to the market-data WebSocket.
// It subscribes to market updates for a single series and invokes a handler
// for every update, reconnecting on a fixed delay when the stream drops.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/signalbot/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the fixed delay before reattempting a dropped connection.
	reconnectDelay = 5 * time.Second
)

// MarketUpdateHandler is called for every market update received on the feed.
type MarketUpdateHandler func(ctx context.Context, snap domain.MarketSnapshot)

// MarketFeed subscribes to market updates for one series over a WebSocket
// connection. Updates are pushed to the registered handler; the shared
// monitor caches them so bots never block on the stream.
type MarketFeed struct {
	wsURL      string
	seriesSlug string
	onUpdate   MarketUpdateHandler
	logger     *slog.Logger
	closeOnce  sync.Once
	done       chan struct{}
}

// NewMarketFeed creates a feed for the given WebSocket endpoint and series.
func NewMarketFeed(wsURL, seriesSlug string, onUpdate MarketUpdateHandler, logger *slog.Logger) *MarketFeed {
	return &MarketFeed{
		wsURL:      wsURL,
		seriesSlug: seriesSlug,
		onUpdate:   onUpdate,
		logger:     logger.With(slog.String("component", "market_feed")),
		done:       make(chan struct{}),
	}
}

// Run connects, subscribes, and dispatches updates until ctx is cancelled or
// Close is called. Every disconnect is retried after a fixed delay; pull
// clients cover the gap in between.
func (f *MarketFeed) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		err := f.runConnection(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("market feed disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("delay", reconnectDelay))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

// Close stops the feed. Safe to call more than once.
func (f *MarketFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}

// subscribeCommand is the wire shape of a subscription request.
type subscribeCommand struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	Series  string `json:"series"`
}

// marketUpdateMessage is the wire shape of a market update. Numeric fields
// arrive as strings, same as the REST API.
type marketUpdateMessage struct {
	EventType string `json:"event_type"`
	ID        string `json:"id"`
	Question  string `json:"question"`
	Slug      string `json:"slug"`
	YesPrice  string `json:"yesPrice"`
	NoPrice   string `json:"noPrice"`
	Volume    string `json:"volume"`
	Liquidity string `json:"liquidity"`
	EndDate   string `json:"endDate"`
}

func (m *marketUpdateMessage) toSnapshot() domain.MarketSnapshot {
	yes, _ := strconv.ParseFloat(m.YesPrice, 64)
	no, _ := strconv.ParseFloat(m.NoPrice, 64)
	vol, _ := strconv.ParseFloat(m.Volume, 64)
	liq, _ := strconv.ParseFloat(m.Liquidity, 64)
	expires, _ := time.Parse(time.RFC3339, m.EndDate)
	return domain.MarketSnapshot{
		ID:        m.ID,
		Question:  m.Question,
		Slug:      m.Slug,
		YesPrice:  yes,
		NoPrice:   no,
		Volume:    vol,
		Liquidity: liq,
		ExpiresAt: expires,
	}
}

// runConnection holds a single connection: dial, subscribe, ping keep-alive,
// and the read loop. Returns the error that broke the connection.
func (f *MarketFeed) runConnection(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return fmt.Errorf("feed: connect: %w", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	cmd := subscribeCommand{Type: "subscribe", Channel: "market", Series: f.seriesSlug}
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("feed: marshal subscribe: %w", err)
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("feed: subscribe: %w", err)
	}
	f.logger.Info("market feed subscribed", slog.String("series", f.seriesSlug))

	// Ping loop; closing stop tears it down with the connection.
	stop := make(chan struct{})
	defer close(stop)
	go f.pingLoop(conn, stop)

	// Unblock ReadMessage when the context is cancelled or Close is called.
	go func() {
		select {
		case <-ctx.Done():
		case <-f.done:
		case <-stop:
			return
		}
		conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			select {
			case <-f.done:
				return nil
			default:
			}
			return fmt.Errorf("feed: read: %w: %w", domain.ErrWSDisconnect, err)
		}
		f.handleMessage(ctx, message)
	}
}

func (f *MarketFeed) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-f.done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage parses a raw message and dispatches market updates.
// Unparseable or unrelated messages are dropped.
func (f *MarketFeed) handleMessage(ctx context.Context, raw []byte) {
	var msg marketUpdateMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	if msg.EventType != "market_update" || msg.ID == "" {
		return
	}
	if f.onUpdate != nil {
		f.onUpdate(ctx, msg.toSnapshot())
	}
}
