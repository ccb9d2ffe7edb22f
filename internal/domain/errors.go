package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrBotAlreadyRunning     = errors.New("bot already running")
	ErrBotNotRunning         = errors.New("bot not running")
	ErrNoSignal              = errors.New("no signal")
	ErrNonPositiveEdge       = errors.New("edge is not positive")
	ErrEdgeBelowThreshold    = errors.New("edge below threshold")
	ErrProviderUnavailable   = errors.New("execution provider unavailable")
	ErrInsufficientAllowance = errors.New("insufficient on-chain allowance")
	ErrTierLimit             = errors.New("tier position limit exceeded")
	ErrRiskLimit             = errors.New("position size exceeds risk limit")
	ErrDailyTradeLimit       = errors.New("daily trade limit reached")
	ErrExecutionFailed       = errors.New("trade execution failed")
	ErrWSDisconnect          = errors.New("websocket disconnected")
	ErrInvalidWeights        = errors.New("indicator weights must sum to 1.0")
)
