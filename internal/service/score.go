package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"playportal/internal/config"
	"playportal/internal/infrastructure/lock"
	"playportal/internal/model"
	"playportal/internal/repository"
	"playportal/pkg/idgen"
)

// ScoreService runs the submit-score flow: session validation, daily-limit
// check, integrity evaluation, and the transactional persist of score,
// wallet credit, daily counter and activity event.
type ScoreService struct {
	db          *gorm.DB
	redisClient *redis.Client
	cfg         *config.Config
	guard       *SessionGuard
	checker     *IntegrityChecker
	ledger      *Ledger
	activity    *ActivityLogger
	gameRepo    *repository.GameRepository
	scoreRepo   *repository.ScoreRepository
	dailyRepo   *repository.DailyPlayRepository
}

func NewScoreService(db *gorm.DB, redisClient *redis.Client, store TokenStore, cfg *config.Config) *ScoreService {
	return &ScoreService{
		db:          db,
		redisClient: redisClient,
		cfg:         cfg,
		guard:       NewSessionGuard(db, store, cfg),
		checker:     NewIntegrityChecker(cfg.AntiCheat),
		ledger:      NewLedger(db, cfg),
		activity:    NewActivityLogger(db, cfg),
		gameRepo:    repository.NewGameRepository(db),
		scoreRepo:   repository.NewScoreRepository(db),
		dailyRepo:   repository.NewDailyPlayRepository(db),
	}
}

// Guard exposes the session guard for the catalog/status endpoints.
func (s *ScoreService) Guard() *SessionGuard {
	return s.guard
}

// StartSession begins a play attempt for an active game.
func (s *ScoreService) StartSession(ctx context.Context, userID int64, gameSlug, clientIP string) (string, *DailyLimitStatus, error) {
	game, err := s.gameRepo.GetBySlug(ctx, gameSlug)
	if err != nil {
		return "", nil, err
	}
	if game.Status != model.GameStatusActive {
		return "", nil, repository.ErrGameNotFound
	}

	token, err := s.guard.StartSession(ctx, userID, game.ID, game.MaxPlaysPerDay, clientIP)
	if err != nil {
		return "", nil, err
	}

	limit, err := s.guard.CheckDailyPlayLimit(ctx, userID, game.ID, game.MaxPlaysPerDay)
	if err != nil {
		return "", nil, err
	}

	return token, limit, nil
}

type SubmitScoreRequest struct {
	UserID       int64
	GameSlug     string
	SessionToken string
	Score        int64
	PlayTime     int64 // seconds
	Completed    bool
	GameData     json.RawMessage
	ClientIP     string
}

type SubmitScoreResult struct {
	ScoreNo        string `json:"score_no"`
	PointsEarned   int64  `json:"points_earned"`
	NewBalance     int64  `json:"new_balance"`
	Validated      bool   `json:"validated"`
	Reason         string `json:"reason,omitempty"`
	PlaysToday     int    `json:"plays_today"`
	PlaysRemaining int    `json:"plays_remaining"`
}

// SubmitScore records one play result. The score row is always written;
// points are zeroed when the integrity check fails or the daily ceiling is
// exhausted. The whole persist is one transaction, serialized per user.
func (s *ScoreService) SubmitScore(ctx context.Context, req *SubmitScoreRequest) (*SubmitScoreResult, error) {
	game, err := s.gameRepo.GetBySlug(ctx, req.GameSlug)
	if err != nil {
		return nil, err
	}
	if game.Status != model.GameStatusActive {
		return nil, repository.ErrGameNotFound
	}

	session, err := s.guard.Consume(ctx, req.SessionToken, req.UserID, game.ID, req.ClientIP)
	if err != nil {
		return nil, err
	}

	// The token is out of the store from here on. Put it back on any
	// failure before commit, so the client can retry the same play.
	committed := false
	defer func() {
		if !committed {
			if err := s.guard.Restore(ctx, req.SessionToken, session); err != nil {
				logrus.WithError(err).Warn("failed to restore play session token")
			}
		}
	}()

	if s.redisClient != nil {
		walletLock := lock.NewWalletLock(s.redisClient, req.UserID, uuid.NewString())
		if err := walletLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
			return nil, err
		}
		defer walletLock.Unlock(ctx)
	}

	// The counter is read under the lock: the point decision must see
	// every play a concurrent submission already committed, or two
	// near-simultaneous plays could both earn at the ceiling.
	limit, err := s.guard.CheckDailyPlayLimit(ctx, req.UserID, game.ID, game.MaxPlaysPerDay)
	if err != nil {
		return nil, err
	}
	if !limit.Allowed {
		return nil, ErrDailyLimitReached
	}

	var gameData *GameData
	if len(req.GameData) > 0 {
		gameData = &GameData{}
		if err := json.Unmarshal(req.GameData, gameData); err != nil {
			// Unparseable payloads are kept raw and skip the heuristics.
			gameData = nil
		}
	}

	verdict := s.checker.EvaluateScore(req.GameSlug, req.Score, req.PlayTime, gameData)

	var points int64
	if verdict.Valid && limit.CanEarnPoints {
		points = CalculatePoints(req.Score, game.PointsRewardBase, game.DifficultyMultiplier,
			game.MinScoreForPoints, s.cfg.Business.MaxPointsPerSubmission)
	}

	if _, err := s.ledger.EnsureWallet(ctx, req.UserID); err != nil {
		return nil, err
	}

	score := &model.Score{
		ScoreNo:      idgen.GenerateScoreNo(),
		UserID:       req.UserID,
		GameID:       game.ID,
		Score:        req.Score,
		PointsEarned: points,
		PlayTime:     req.PlayTime,
		Completed:    req.Completed,
		GameData:     string(req.GameData),
		SessionToken: req.SessionToken,
		Validated:    verdict.Valid,
		Flagged:      verdict.Flagged,
		FlagReason:   strings.Join(verdict.Reasons, "; "),
	}

	var newBalance int64
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.scoreRepo.Create(ctx, tx, score); err != nil {
			return err
		}

		if points > 0 {
			result, err := s.ledger.CreditTx(ctx, tx, req.UserID, points,
				model.TransactionTypeEarn,
				fmt.Sprintf("Points for %s (score %d)", game.Name, req.Score),
				model.ReferenceTypeGame, &score.ID)
			if err != nil {
				return err
			}
			newBalance = result.NewBalance
		}

		if err := s.dailyRepo.RecordPlay(ctx, tx, req.UserID, game.ID,
			model.PlayDateKey(time.Now()), points); err != nil {
			return err
		}

		return s.activity.LogTx(ctx, tx, "score_submitted",
			fmt.Sprintf("game=%s score=%d points=%d valid=%t", game.Slug, req.Score, points, verdict.Valid),
			req.UserID)
	})
	if err != nil {
		return nil, err
	}
	committed = true

	if points == 0 {
		balance, err := s.ledger.walletRepo.GetByUserID(ctx, nil, req.UserID)
		if err == nil {
			newBalance = balance.Balance
		}
	}

	if !verdict.Valid {
		logrus.WithFields(logrus.Fields{
			"user_id": req.UserID,
			"game":    game.Slug,
			"score":   req.Score,
			"reasons": verdict.Reasons,
			"flagged": verdict.Flagged,
		}).Warn("score failed integrity checks, points withheld")
	}

	return &SubmitScoreResult{
		ScoreNo:        score.ScoreNo,
		PointsEarned:   points,
		NewBalance:     newBalance,
		Validated:      verdict.Valid,
		Reason:         strings.Join(verdict.Reasons, "; "),
		PlaysToday:     limit.PlaysToday + 1,
		PlaysRemaining: maxInt(limit.PlaysRemaining-1, 0),
	}, nil
}

// ListScores pages through the user's play history for one game.
func (s *ScoreService) ListScores(ctx context.Context, userID int64, gameSlug string, page, pageSize int) ([]*model.Score, int64, error) {
	game, err := s.gameRepo.GetBySlug(ctx, gameSlug)
	if err != nil {
		return nil, 0, err
	}
	return s.scoreRepo.ListByUserAndGame(ctx, userID, game.ID, page, pageSize)
}

// ResetDailyPlays clears today's counter for a user/game. Admin only.
func (s *ScoreService) ResetDailyPlays(ctx context.Context, userID int64, gameSlug string, adminID int64) error {
	game, err := s.gameRepo.GetBySlug(ctx, gameSlug)
	if err != nil {
		return err
	}

	if err := s.dailyRepo.Reset(ctx, userID, game.ID, model.PlayDateKey(time.Now())); err != nil {
		return err
	}

	s.activity.Log(ctx, "daily_plays_reset",
		fmt.Sprintf("game=%s reset_by=%d", gameSlug, adminID), userID)
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
