package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SIGNALBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SIGNALBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "SIGNALBOT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "SIGNALBOT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "SIGNALBOT_WALLET_KEY_PASSWORD")

	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "SIGNALBOT_CHAIN_RPC_URL")
	setStr(&cfg.Chain.ExecutorContract, "SIGNALBOT_CHAIN_EXECUTOR_CONTRACT")
	setStr(&cfg.Chain.OracleFeed, "SIGNALBOT_CHAIN_ORACLE_FEED")

	// ── Market ──
	setStr(&cfg.Market.GammaHost, "SIGNALBOT_MARKET_GAMMA_HOST")
	setStr(&cfg.Market.WsHost, "SIGNALBOT_MARKET_WS_HOST")
	setStr(&cfg.Market.SeriesSlug, "SIGNALBOT_MARKET_SERIES_SLUG")
	setStr(&cfg.Market.AssetID, "SIGNALBOT_MARKET_ASSET_ID")

	// ── Database ──
	setStr(&cfg.Database.DSN, "SIGNALBOT_DATABASE_DSN")
	setStr(&cfg.Database.Host, "SIGNALBOT_DATABASE_HOST")
	setInt(&cfg.Database.Port, "SIGNALBOT_DATABASE_PORT")
	setStr(&cfg.Database.Database, "SIGNALBOT_DATABASE_DATABASE")
	setStr(&cfg.Database.User, "SIGNALBOT_DATABASE_USER")
	setStr(&cfg.Database.Password, "SIGNALBOT_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "SIGNALBOT_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "SIGNALBOT_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "SIGNALBOT_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "SIGNALBOT_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "SIGNALBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SIGNALBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SIGNALBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SIGNALBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SIGNALBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SIGNALBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SIGNALBOT_REDIS_TLS_ENABLED")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "SIGNALBOT_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Endpoint, "SIGNALBOT_ARCHIVE_ENDPOINT")
	setStr(&cfg.Archive.Region, "SIGNALBOT_ARCHIVE_REGION")
	setStr(&cfg.Archive.Bucket, "SIGNALBOT_ARCHIVE_BUCKET")
	setStr(&cfg.Archive.AccessKey, "SIGNALBOT_ARCHIVE_ACCESS_KEY")
	setStr(&cfg.Archive.SecretKey, "SIGNALBOT_ARCHIVE_SECRET_KEY")
	setBool(&cfg.Archive.UseSSL, "SIGNALBOT_ARCHIVE_USE_SSL")
	setBool(&cfg.Archive.ForcePathStyle, "SIGNALBOT_ARCHIVE_FORCE_PATH_STYLE")
	setDuration(&cfg.Archive.Retention, "SIGNALBOT_ARCHIVE_RETENTION")
	setDuration(&cfg.Archive.Interval, "SIGNALBOT_ARCHIVE_INTERVAL")

	// ── Bot ──
	setDuration(&cfg.Bot.CycleTimeout, "SIGNALBOT_BOT_CYCLE_TIMEOUT")
	setDuration(&cfg.Bot.BackfillWindow, "SIGNALBOT_BOT_BACKFILL_WINDOW")
	setDuration(&cfg.Bot.ReconcileInterval, "SIGNALBOT_BOT_RECONCILE_INTERVAL")
	setDuration(&cfg.Bot.MonitorRefresh, "SIGNALBOT_BOT_MONITOR_REFRESH")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SIGNALBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SIGNALBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SIGNALBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SIGNALBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "SIGNALBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
