// Package config defines the top-level configuration for the signal bot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SIGNALBOT_* environment variables.
type Config struct {
	Wallet   WalletConfig   `toml:"wallet"`
	Chain    ChainConfig    `toml:"chain"`
	Market   MarketConfig   `toml:"market"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Archive  ArchiveConfig  `toml:"archive"`
	Bot      BotConfig      `toml:"bot"`
	Notify   NotifyConfig   `toml:"notify"`
	LogLevel string         `toml:"log_level"`
}

// WalletConfig holds the service signing key used for trade submission.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// ChainConfig holds the RPC endpoint and contract addresses.
type ChainConfig struct {
	RPCURL           string `toml:"rpc_url"`
	ExecutorContract string `toml:"executor_contract"`
	OracleFeed       string `toml:"oracle_feed"`
}

// MarketConfig holds the market data API endpoints and the series the bots
// trade on.
type MarketConfig struct {
	GammaHost  string `toml:"gamma_host"`
	WsHost     string `toml:"ws_host"`
	SeriesSlug string `toml:"series_slug"`
	// AssetID keys the shared price cache, e.g. "btc-usd".
	AssetID string `toml:"asset_id"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis is optional; when
// Enabled is false the bot falls back to database-backed counters and skips
// the price cache.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ArchiveConfig holds S3-compatible object storage parameters plus the
// retention window for trade and log rows.
type ArchiveConfig struct {
	Enabled        bool     `toml:"enabled"`
	Endpoint       string   `toml:"endpoint"`
	Region         string   `toml:"region"`
	Bucket         string   `toml:"bucket"`
	AccessKey      string   `toml:"access_key"`
	SecretKey      string   `toml:"secret_key"`
	UseSSL         bool     `toml:"use_ssl"`
	ForcePathStyle bool     `toml:"force_path_style"`
	Retention      duration `toml:"retention"`
	Interval       duration `toml:"interval"`
}

// BotConfig holds the timing knobs for the bot runtime.
type BotConfig struct {
	CycleTimeout      duration `toml:"cycle_timeout"`
	BackfillWindow    duration `toml:"backfill_window"`
	ReconcileInterval duration `toml:"reconcile_interval"`
	MonitorRefresh    duration `toml:"monitor_refresh"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			RPCURL: "http://localhost:8545",
		},
		Market: MarketConfig{
			GammaHost:  "https://gamma-api.polymarket.com",
			WsHost:     "wss://ws-subscriptions-clob.polymarket.com",
			SeriesSlug: "btc-hourly",
			AssetID:    "btc-usd",
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "signalbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    true,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Archive: ArchiveConfig{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "signalbot-archive",
			UseSSL:         false,
			ForcePathStyle: true,
			Retention:      duration{90 * 24 * time.Hour},
			Interval:       duration{24 * time.Hour},
		},
		Bot: BotConfig{
			CycleTimeout:      duration{45 * time.Second},
			BackfillWindow:    duration{30 * time.Minute},
			ReconcileInterval: duration{60 * time.Second},
			MonitorRefresh:    duration{15 * time.Second},
		},
		Notify: NotifyConfig{
			Events: []string{"trade_executed", "bot_error"},
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet — at least one credential source must be specified.
	if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
		errs = append(errs, "wallet: either private_key or encrypted_key_path must be set")
	}
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}

	// Chain
	if c.Chain.RPCURL == "" {
		errs = append(errs, "chain: rpc_url must not be empty")
	}
	if c.Chain.ExecutorContract == "" {
		errs = append(errs, "chain: executor_contract must not be empty")
	}
	if c.Chain.OracleFeed == "" {
		errs = append(errs, "chain: oracle_feed must not be empty")
	}

	// Market
	if c.Market.GammaHost == "" {
		errs = append(errs, "market: gamma_host must not be empty")
	}
	if c.Market.WsHost == "" {
		errs = append(errs, "market: ws_host must not be empty")
	}
	if c.Market.SeriesSlug == "" {
		errs = append(errs, "market: series_slug must not be empty")
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Archive
	if c.Archive.Enabled {
		if c.Archive.Endpoint == "" {
			errs = append(errs, "archive: endpoint must not be empty when enabled")
		}
		if c.Archive.Bucket == "" {
			errs = append(errs, "archive: bucket must not be empty when enabled")
		}
		if c.Archive.Retention.Duration <= 0 {
			errs = append(errs, "archive: retention must be > 0 when enabled")
		}
	}

	// Bot timings
	if c.Bot.CycleTimeout.Duration <= 0 {
		errs = append(errs, "bot: cycle_timeout must be > 0")
	}
	if c.Bot.BackfillWindow.Duration <= 0 {
		errs = append(errs, "bot: backfill_window must be > 0")
	}
	if c.Bot.ReconcileInterval.Duration <= 0 {
		errs = append(errs, "bot: reconcile_interval must be > 0")
	}
	if c.Bot.MonitorRefresh.Duration <= 0 {
		errs = append(errs, "bot: monitor_refresh must be > 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
