package s3archive

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/signalbot/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))

type memBlobWriter struct {
	objects map[string][]byte
	err     error
}

func newMemBlobWriter() *memBlobWriter {
	return &memBlobWriter{objects: make(map[string][]byte)}
}

func (w *memBlobWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if w.err != nil {
		return w.err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(data); err != nil {
		return err
	}
	w.objects[path] = buf.Bytes()
	return nil
}

type memTradeStore struct {
	trades  []domain.TradeRecord
	deleted int64
}

func (s *memTradeStore) Create(ctx context.Context, trade domain.TradeRecord) error {
	s.trades = append(s.trades, trade)
	return nil
}

func (s *memTradeStore) CountToday(ctx context.Context, userID string) (int, error) {
	return len(s.trades), nil
}

func (s *memTradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error) {
	var out []domain.TradeRecord
	for _, t := range s.trades {
		if t.CreatedAt.Before(before) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memTradeStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	var kept []domain.TradeRecord
	for _, t := range s.trades {
		if t.CreatedAt.Before(before) {
			s.deleted++
			continue
		}
		kept = append(kept, t)
	}
	s.trades = kept
	return s.deleted, nil
}

type memLogStore struct {
	entries []domain.BotLog
}

func (s *memLogStore) Create(ctx context.Context, entry domain.BotLog) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memLogStore) ListBefore(ctx context.Context, before time.Time) ([]domain.BotLog, error) {
	var out []domain.BotLog
	for _, e := range s.entries {
		if e.CreatedAt.Before(before) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memLogStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	var kept []domain.BotLog
	var deleted int64
	for _, e := range s.entries {
		if e.CreatedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return deleted, nil
}

func TestArchiveTrades_UploadsJSONLThenPrunes(t *testing.T) {
	now := time.Now().UTC()
	trades := &memTradeStore{trades: []domain.TradeRecord{
		{ID: "t1", UserID: "u1", MarketID: "m1", Side: domain.TradeSideYes, CreatedAt: now.Add(-100 * 24 * time.Hour)},
		{ID: "t2", UserID: "u1", MarketID: "m1", Side: domain.TradeSideNo, CreatedAt: now.Add(-95 * 24 * time.Hour)},
		{ID: "t3", UserID: "u2", MarketID: "m2", Side: domain.TradeSideYes, CreatedAt: now.Add(-time.Hour)},
	}}
	writer := newMemBlobWriter()
	archiver := NewArchiver(writer, trades, &memLogStore{}, testLogger)

	cutoff := now.Add(-DefaultRetention)
	if err := archiver.ArchiveTrades(context.Background(), cutoff); err != nil {
		t.Fatalf("ArchiveTrades: %v", err)
	}

	if len(writer.objects) != 1 {
		t.Fatalf("uploaded %d objects, want 1", len(writer.objects))
	}
	var path string
	var body []byte
	for p, b := range writer.objects {
		path, body = p, b
	}
	if !strings.HasPrefix(path, "archive/trades/") || !strings.HasSuffix(path, ".jsonl") {
		t.Errorf("object path = %q", path)
	}

	// Two lines, decodable back into trade records.
	scanner := bufio.NewScanner(bytes.NewReader(body))
	var ids []string
	for scanner.Scan() {
		var rec domain.TradeRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("decode archived line: %v", err)
		}
		ids = append(ids, rec.ID)
	}
	if len(ids) != 2 || ids[0] != "t1" || ids[1] != "t2" {
		t.Errorf("archived IDs = %v, want [t1 t2]", ids)
	}

	// The recent trade survives pruning.
	remaining, _ := trades.ListBefore(context.Background(), now.Add(time.Hour))
	if len(remaining) != 1 || remaining[0].ID != "t3" {
		t.Errorf("remaining trades = %v, want only t3", remaining)
	}
}

func TestArchiveTrades_NothingToArchiveIsNoOp(t *testing.T) {
	writer := newMemBlobWriter()
	archiver := NewArchiver(writer, &memTradeStore{}, &memLogStore{}, testLogger)

	if err := archiver.ArchiveTrades(context.Background(), time.Now()); err != nil {
		t.Fatalf("ArchiveTrades: %v", err)
	}
	if len(writer.objects) != 0 {
		t.Errorf("uploaded %d objects, want 0", len(writer.objects))
	}
}

func TestArchiveTrades_FailedUploadKeepsRows(t *testing.T) {
	now := time.Now().UTC()
	trades := &memTradeStore{trades: []domain.TradeRecord{
		{ID: "t1", CreatedAt: now.Add(-100 * 24 * time.Hour)},
	}}
	writer := newMemBlobWriter()
	writer.err = errors.New("bucket gone")
	archiver := NewArchiver(writer, trades, &memLogStore{}, testLogger)

	if err := archiver.ArchiveTrades(context.Background(), now); err == nil {
		t.Fatal("ArchiveTrades succeeded despite upload failure")
	}
	if trades.deleted != 0 {
		t.Errorf("deleted %d rows after failed upload, want 0", trades.deleted)
	}
}

func TestArchiveBotLogs(t *testing.T) {
	now := time.Now().UTC()
	logs := &memLogStore{entries: []domain.BotLog{
		{ID: "l1", UserID: "u1", Level: domain.BotLogInfo, Message: "trade executed", CreatedAt: now.Add(-100 * 24 * time.Hour)},
		{ID: "l2", UserID: "u1", Level: domain.BotLogError, Message: "allowance exhausted", CreatedAt: now.Add(-time.Hour)},
	}}
	writer := newMemBlobWriter()
	archiver := NewArchiver(writer, &memTradeStore{}, logs, testLogger)

	cutoff := now.Add(-DefaultRetention)
	if err := archiver.ArchiveBotLogs(context.Background(), cutoff); err != nil {
		t.Fatalf("ArchiveBotLogs: %v", err)
	}
	if len(writer.objects) != 1 {
		t.Fatalf("uploaded %d objects, want 1", len(writer.objects))
	}
	if len(logs.entries) != 1 || logs.entries[0].ID != "l2" {
		t.Errorf("remaining logs = %v, want only l2", logs.entries)
	}
}
