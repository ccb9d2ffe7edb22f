package domain

import "time"

// BotState is the lifecycle state of a per-user bot instance.
type BotState string

const (
	BotStateStopped  BotState = "STOPPED"
	BotStateStarting BotState = "STARTING"
	BotStateRunning  BotState = "RUNNING"
	BotStateError    BotState = "ERROR"
)

// BotConfig is the per-user risk and strategy configuration. It is
// authoritative external state: bot instances re-fetch it at the start of
// every cycle so external edits take effect without a restart.
type BotConfig struct {
	UserID           string
	Active           bool
	WalletAddress    string
	MaxPositionSize  float64       // dollars
	MaxOpenPositions int
	MaxDailyTrades   int
	MaxDailyLoss     float64       // dollars
	EdgeThreshold    float64
	KellyFraction    float64       // 0..1 dampener on full Kelly
	RunInterval      time.Duration
	UpdatedAt        time.Time
}

// User is the subset of the external user record the core consumes.
type User struct {
	ID                    string
	WalletAddress         string
	SubscriptionExpiresAt time.Time
}

// BotStatus is the persisted runtime status surfaced to the external
// dashboard. ErrorMessage is only set in the ERROR state.
type BotStatus struct {
	UserID       string
	State        BotState
	LastCycleAt  time.Time
	ErrorMessage string
	UpdatedAt    time.Time
}

// BotLogLevel classifies persisted bot log entries.
type BotLogLevel string

const (
	BotLogInfo  BotLogLevel = "info"
	BotLogWarn  BotLogLevel = "warn"
	BotLogError BotLogLevel = "error"
)

// BotLog is one entry in a user's persisted activity stream.
type BotLog struct {
	ID        string
	UserID    string
	Level     BotLogLevel
	Message   string
	Metadata  map[string]string
	CreatedAt time.Time
}
