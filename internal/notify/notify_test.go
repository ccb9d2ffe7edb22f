package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingSender struct {
	name   string
	err    error
	titles []string
}

func (s *recordingSender) Send(_ context.Context, title, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.titles = append(s.titles, title)
	return nil
}

func (s *recordingSender) Name() string { return s.name }

func TestNotifyFiltersDisallowedEvents(t *testing.T) {
	s := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{s}, []string{EventTradeExecuted}, discardLogger())

	if err := n.Notify(context.Background(), EventBotError, "nope", "body"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if err := n.Notify(context.Background(), EventTradeExecuted, "yes", "body"); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if len(s.titles) != 1 || s.titles[0] != "yes" {
		t.Errorf("delivered titles = %v, want [yes]", s.titles)
	}
}

func TestNotifyEmptyEventListAllowsAll(t *testing.T) {
	s := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{s}, nil, discardLogger())

	if err := n.Notify(context.Background(), "anything", "t", "m"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(s.titles) != 1 {
		t.Errorf("delivered %d notifications, want 1", len(s.titles))
	}
}

func TestDispatchContinuesPastFailedSender(t *testing.T) {
	bad := &recordingSender{name: "bad", err: errors.New("boom")}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discardLogger())

	err := n.NotifyAll(context.Background(), "t", "m")
	if err == nil {
		t.Fatal("NotifyAll = nil, want error from failed sender")
	}
	if !strings.Contains(err.Error(), "bad") {
		t.Errorf("error = %v, want mention of failed sender", err)
	}
	if len(good.titles) != 1 {
		t.Errorf("good sender delivered %d, want 1", len(good.titles))
	}
}

func TestDiscordSenderPostsWebhook(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)
	if err := s.Send(context.Background(), "Title", "body"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if want := "**Title**\nbody"; got["content"] != want {
		t.Errorf("content = %q, want %q", got["content"], want)
	}
}

func TestTelegramSenderSendsMessage(t *testing.T) {
	var gotPath string
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
	}))
	defer srv.Close()

	s := NewTelegramSender("tok123", "chat42")
	s.baseURL = srv.URL
	if err := s.Send(context.Background(), "Title", "body"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotPath != "/bottok123/sendMessage" {
		t.Errorf("path = %q, want /bottok123/sendMessage", gotPath)
	}
	if got["chat_id"] != "chat42" {
		t.Errorf("chat_id = %q, want chat42", got["chat_id"])
	}
}

func TestSenderRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)
	err := s.Send(context.Background(), "t", "m")
	if err == nil {
		t.Fatal("Send = nil, want error on 429")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error = %v, want status in message", err)
	}
}
