package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/alanyoungcy/signalbot/internal/domain"
	"github.com/alanyoungcy/signalbot/internal/notify"
)

var testLogger = slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError}))

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

type stubRecorder struct {
	record *domain.TradeRecord
	err    error
}

func (s *stubRecorder) ExecuteTrade(ctx context.Context, userID, wallet string, cfg *domain.BotConfig, sig *domain.TradeSignal) (*domain.TradeRecord, error) {
	return s.record, s.err
}

type capturingSender struct {
	titles   []string
	messages []string
}

func (c *capturingSender) Send(ctx context.Context, title, message string) error {
	c.titles = append(c.titles, title)
	c.messages = append(c.messages, message)
	return nil
}

func (c *capturingSender) Name() string { return "capture" }

func TestNotifyingExecutor_NotificationCarriesTradeSize(t *testing.T) {
	sender := &capturingSender{}
	notifier := notify.NewNotifier([]notify.Sender{sender}, nil, testLogger)
	exec := &notifyingExecutor{
		inner: &stubRecorder{record: &domain.TradeRecord{
			UserID:     "u1",
			MarketID:   "mkt-1",
			Side:       domain.TradeSideYes,
			EntryPrice: 0.42,
			EntryValue: 15.75,
			Quantity:   37.50,
			TxHash:     "0xfeed",
		}},
		notifier: notifier,
	}

	txHash, err := exec.ExecuteTrade(context.Background(), "u1", "0xabc", &domain.BotConfig{}, &domain.TradeSignal{})
	if err != nil {
		t.Fatalf("ExecuteTrade returned error: %v", err)
	}
	if txHash != "0xfeed" {
		t.Errorf("txHash = %q, want 0xfeed", txHash)
	}
	if len(sender.messages) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(sender.messages))
	}
	msg := sender.messages[0]
	if !strings.Contains(msg, "$15.75") {
		t.Errorf("notification missing entry value: %q", msg)
	}
	if !strings.Contains(msg, "37.50 tokens") {
		t.Errorf("notification missing quantity: %q", msg)
	}
	if !strings.Contains(msg, "0xfeed") {
		t.Errorf("notification missing tx hash: %q", msg)
	}
}

func TestNotifyingExecutor_FailureNotifiesBotError(t *testing.T) {
	sender := &capturingSender{}
	notifier := notify.NewNotifier([]notify.Sender{sender}, nil, testLogger)
	exec := &notifyingExecutor{
		inner:    &stubRecorder{err: errors.New("order rejected")},
		notifier: notifier,
	}

	if _, err := exec.ExecuteTrade(context.Background(), "u1", "0xabc", &domain.BotConfig{}, &domain.TradeSignal{}); err == nil {
		t.Fatal("expected error from failed trade")
	}
	if len(sender.titles) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(sender.titles))
	}
	if !strings.Contains(sender.titles[0], "Bot error") {
		t.Errorf("title = %q, want bot error alert", sender.titles[0])
	}
}
