package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"playportal/internal/config"
	"playportal/internal/model"
	"playportal/internal/repository"
)

// SessionGuard issues and consumes one-time play-session tokens and tracks
// the per-game daily play ceiling. A token authorizes exactly one score
// submission for the (user, game) pair it was minted for.
type SessionGuard struct {
	store               TokenStore
	dailyRepo           *repository.DailyPlayRepository
	secret              []byte
	ttl                 time.Duration
	strictIP            bool
	allowPlayAfterLimit bool
}

func NewSessionGuard(db *gorm.DB, store TokenStore, cfg *config.Config) *SessionGuard {
	return &SessionGuard{
		store:               store,
		dailyRepo:           repository.NewDailyPlayRepository(db),
		secret:              []byte(cfg.Session.Secret),
		ttl:                 time.Duration(cfg.Session.TTLMinutes) * time.Minute,
		strictIP:            cfg.Session.StrictIP,
		allowPlayAfterLimit: cfg.Business.AllowPlayAfterLimit,
	}
}

// DailyLimitStatus reports where the user stands against a game's ceiling.
// CanEarnPoints goes false at the ceiling even when Allowed stays true
// (play-for-fun policy); with the hard-stop policy both go false together.
type DailyLimitStatus struct {
	Allowed        bool `json:"allowed"`
	PlaysToday     int  `json:"plays_today"`
	PlaysRemaining int  `json:"plays_remaining"`
	CanEarnPoints  bool `json:"can_earn_points"`
}

// CheckDailyPlayLimit reads today's counter for (user, game).
func (g *SessionGuard) CheckDailyPlayLimit(ctx context.Context, userID, gameID int64, maxPlaysPerDay int) (*DailyLimitStatus, error) {
	record, err := g.dailyRepo.GetForDay(ctx, userID, gameID, model.PlayDateKey(time.Now()))
	if err != nil {
		return nil, err
	}

	playsToday := 0
	if record != nil {
		playsToday = record.PlayCount
	}

	remaining := maxPlaysPerDay - playsToday
	if remaining < 0 {
		remaining = 0
	}

	canEarn := playsToday < maxPlaysPerDay
	return &DailyLimitStatus{
		Allowed:        canEarn || g.allowPlayAfterLimit,
		PlaysToday:     playsToday,
		PlaysRemaining: remaining,
		CanEarnPoints:  canEarn,
	}, nil
}

// StartSession mints a token for one play attempt. Refused when the daily
// ceiling is exhausted and the hard-stop policy is configured.
func (g *SessionGuard) StartSession(ctx context.Context, userID, gameID int64, maxPlaysPerDay int, clientIP string) (string, error) {
	limit, err := g.CheckDailyPlayLimit(ctx, userID, gameID, maxPlaysPerDay)
	if err != nil {
		return "", err
	}
	if !limit.Allowed {
		return "", ErrDailyLimitReached
	}

	now := time.Now()
	mac := hmac.New(sha256.New, g.secret)
	fmt.Fprintf(mac, "%d|%d|%d|%s", userID, gameID, now.UnixNano(), uuid.NewString())
	token := hex.EncodeToString(mac.Sum(nil))

	session := &PlaySession{
		UserID:   userID,
		GameID:   gameID,
		IssuedAt: now,
		ClientIP: clientIP,
	}
	if err := g.store.Save(ctx, token, session, g.ttl); err != nil {
		return "", err
	}

	return token, nil
}

// Consume atomically takes the token out of the store and checks it was
// issued for this (user, game) and is unexpired. Two racing submissions of
// the same token resolve to exactly one winner at the store. A token
// consumed by the wrong (user, game) pair is put back, so a guessing
// caller cannot destroy the rightful owner's session. In strict-IP mode
// the submitting client must match the issuing one; disable for mobile
// clients with volatile addresses.
func (g *SessionGuard) Consume(ctx context.Context, token string, userID, gameID int64, clientIP string) (*PlaySession, error) {
	if token == "" {
		return nil, ErrSessionInvalid
	}

	session, err := g.store.Consume(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionInvalid
	}
	if time.Since(session.IssuedAt) > g.ttl {
		return nil, ErrSessionInvalid
	}

	if session.UserID != userID || session.GameID != gameID || (g.strictIP && session.ClientIP != clientIP) {
		if err := g.Restore(ctx, token, session); err != nil {
			return nil, err
		}
		return nil, ErrSessionInvalid
	}

	return session, nil
}

// Restore puts a consumed session back with its remaining lifetime. Called
// when the submission it authorized failed before commit, so the client
// can retry with the same token.
func (g *SessionGuard) Restore(ctx context.Context, token string, session *PlaySession) error {
	remaining := g.ttl - time.Since(session.IssuedAt)
	if remaining <= 0 {
		return nil
	}
	return g.store.Save(ctx, token, session, remaining)
}
