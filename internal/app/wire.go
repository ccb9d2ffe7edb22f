package app

import (
	"context"
	"fmt"
	"log/slog"

	s3archive "github.com/alanyoungcy/signalbot/internal/archive/s3"
	"github.com/alanyoungcy/signalbot/internal/cache/redis"
	"github.com/alanyoungcy/signalbot/internal/chain"
	"github.com/alanyoungcy/signalbot/internal/config"
	"github.com/alanyoungcy/signalbot/internal/crypto"
	"github.com/alanyoungcy/signalbot/internal/domain"
	"github.com/alanyoungcy/signalbot/internal/executor"
	"github.com/alanyoungcy/signalbot/internal/notify"
	"github.com/alanyoungcy/signalbot/internal/platform/gamma"
	"github.com/alanyoungcy/signalbot/internal/store/postgres"
)

// Dependencies bundles the infrastructure dependencies the runtime needs. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	Configs  domain.ConfigProvider
	Users    domain.UserProvider
	Trades   domain.TradeStore
	Logs     domain.BotLogStore
	Statuses domain.BotStatusStore

	// Redis-backed fast paths. Both are nil when Redis is disabled; the
	// monitor and executor degrade gracefully without them.
	PriceCache   domain.PriceCache
	TradeCounter executor.DailyTradeCounter

	// On-chain
	Provider *chain.Provider
	Oracle   *chain.Oracle

	// Market data API
	Gamma *gamma.Client

	// Archival, nil unless enabled.
	Archiver *s3archive.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.Configs = postgres.NewBotConfigStore(pool)
	deps.Users = postgres.NewUserStore(pool)
	deps.Trades = postgres.NewTradeStore(pool)
	deps.Logs = postgres.NewBotLogStore(pool)
	deps.Statuses = postgres.NewBotStatusStore(pool)

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.PriceCache = redis.NewPriceCache(redisClient)
		deps.TradeCounter = redis.NewTradeCounter(redisClient)
	}

	// --- Chain: signer, execution contract, oracle ---
	signerKey, err := crypto.LoadECDSAKey(crypto.KeyConfig{
		RawPrivateKey:    cfg.Wallet.PrivateKey,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: signer key: %w", err)
	}

	provider, err := chain.NewProvider(ctx, cfg.Chain.RPCURL, cfg.Chain.ExecutorContract, signerKey, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: chain provider: %w", err)
	}
	closers = append(closers, provider.Close)
	deps.Provider = provider

	oracle, err := chain.NewOracle(provider.Client(), cfg.Chain.OracleFeed, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: oracle: %w", err)
	}
	deps.Oracle = oracle

	// --- Gamma market data API ---
	deps.Gamma = gamma.New(cfg.Market.GammaHost, cfg.Market.SeriesSlug)

	// --- S3 archival ---
	if cfg.Archive.Enabled {
		s3Client, err := s3archive.New(ctx, s3archive.ClientConfig{
			Endpoint:       cfg.Archive.Endpoint,
			Region:         cfg.Archive.Region,
			Bucket:         cfg.Archive.Bucket,
			AccessKey:      cfg.Archive.AccessKey,
			SecretKey:      cfg.Archive.SecretKey,
			UseSSL:         cfg.Archive.UseSSL,
			ForcePathStyle: cfg.Archive.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.Archiver = s3archive.NewArchiver(
			s3archive.NewWriter(s3Client),
			deps.Trades,
			deps.Logs,
			logger,
			s3archive.WithRetention(cfg.Archive.Retention.Duration),
			s3archive.WithArchiveInterval(cfg.Archive.Interval.Duration),
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
