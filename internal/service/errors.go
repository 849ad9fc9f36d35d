package service

import "errors"

// Expected business outcomes surfaced as values, not panics. Handlers map
// these to HTTP statuses and business codes.
var (
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrZeroAdjustment = errors.New("adjustment amount must not be zero")

	// ErrSessionInvalid covers missing, expired and mismatched play-session
	// tokens; the client should start a new session rather than retry.
	ErrSessionInvalid = errors.New("play session is invalid or expired")

	// ErrDailyLimitReached means the daily play ceiling is exhausted and the
	// configured policy is a hard stop.
	ErrDailyLimitReached = errors.New("daily play limit reached for this game")

	ErrRewardNotActive        = errors.New("reward is not available")
	ErrRedemptionLimitReached = errors.New("redemption limit reached for this reward")
	ErrNotRedemptionOwner     = errors.New("redemption belongs to another user")
)
