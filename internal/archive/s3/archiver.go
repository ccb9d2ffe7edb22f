package s3archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/signalbot/internal/domain"
)

const (
	// DefaultRetention keeps rows in the primary store for 90 days before
	// they are archived and pruned.
	DefaultRetention = 90 * 24 * time.Hour

	// DefaultArchiveInterval is how often the retention loop runs.
	DefaultArchiveInterval = 24 * time.Hour

	jsonlContentType = "application/x-ndjson"
)

// Archiver periodically moves trades and bot logs older than the retention
// window into the object store as JSONL dumps and deletes the source rows.
// Deletion only happens after the upload succeeded; a failed upload leaves
// the rows in place for the next run.
type Archiver struct {
	writer    domain.BlobWriter
	trades    domain.TradeStore
	logs      domain.BotLogStore
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

// ArchiverOption configures an Archiver.
type ArchiverOption func(*Archiver)

// WithRetention overrides the retention window.
func WithRetention(d time.Duration) ArchiverOption {
	return func(a *Archiver) {
		if d > 0 {
			a.retention = d
		}
	}
}

// WithArchiveInterval overrides how often the loop runs.
func WithArchiveInterval(d time.Duration) ArchiverOption {
	return func(a *Archiver) {
		if d > 0 {
			a.interval = d
		}
	}
}

// NewArchiver creates an Archiver over the given writer and stores.
func NewArchiver(writer domain.BlobWriter, trades domain.TradeStore, logs domain.BotLogStore, logger *slog.Logger, opts ...ArchiverOption) *Archiver {
	a := &Archiver{
		writer:    writer,
		trades:    trades,
		logs:      logs,
		retention: DefaultRetention,
		interval:  DefaultArchiveInterval,
		logger:    logger.With(slog.String("component", "archiver")),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes the retention loop until ctx is cancelled. One pass runs
// immediately on start.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.runOnce(ctx)
		}
	}
}

func (a *Archiver) runOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-a.retention)
	if err := a.ArchiveTrades(ctx, cutoff); err != nil {
		a.logger.Error("trade archive pass failed", slog.String("error", err.Error()))
	}
	if err := a.ArchiveBotLogs(ctx, cutoff); err != nil {
		a.logger.Error("bot log archive pass failed", slog.String("error", err.Error()))
	}
}

// ArchiveTrades uploads all trades created before the cutoff as one JSONL
// object, then deletes them. No rows before the cutoff is a no-op.
func (a *Archiver) ArchiveTrades(ctx context.Context, cutoff time.Time) error {
	trades, err := a.trades.ListBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("s3archive: list trades: %w", err)
	}
	if len(trades) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, trade := range trades {
		if err := enc.Encode(trade); err != nil {
			return fmt.Errorf("s3archive: encode trade %s: %w", trade.ID, err)
		}
	}

	path := archivePath("trades", cutoff)
	if err := a.writer.Put(ctx, path, &buf, jsonlContentType); err != nil {
		return fmt.Errorf("s3archive: upload %s: %w", path, err)
	}

	deleted, err := a.trades.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("s3archive: prune trades: %w", err)
	}

	a.logger.Info("trades archived",
		slog.String("path", path),
		slog.Int("archived", len(trades)),
		slog.Int64("deleted", deleted))
	return nil
}

// ArchiveBotLogs uploads all bot log entries created before the cutoff,
// then deletes them.
func (a *Archiver) ArchiveBotLogs(ctx context.Context, cutoff time.Time) error {
	entries, err := a.logs.ListBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("s3archive: list bot logs: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("s3archive: encode bot log %s: %w", entry.ID, err)
		}
	}

	path := archivePath("bot_logs", cutoff)
	if err := a.writer.Put(ctx, path, &buf, jsonlContentType); err != nil {
		return fmt.Errorf("s3archive: upload %s: %w", path, err)
	}

	deleted, err := a.logs.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("s3archive: prune bot logs: %w", err)
	}

	a.logger.Info("bot logs archived",
		slog.String("path", path),
		slog.Int("archived", len(entries)),
		slog.Int64("deleted", deleted))
	return nil
}

// archivePath builds the object key for one archive dump, partitioned by
// kind and cutoff date.
func archivePath(kind string, cutoff time.Time) string {
	return fmt.Sprintf("archive/%s/%s_%s.jsonl",
		kind, kind, cutoff.UTC().Format("2006-01-02T15-04-05"))
}
