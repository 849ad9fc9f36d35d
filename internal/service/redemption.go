package service

import (
	"context"
	"fmt"
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

// RedemptionWorkflow orchestrates reward redemption and its lifecycle.
// The debit, the redemption row and the stock decrement commit as one
// transaction; refunds commit atomically with the status transition and
// are issued at most once per redemption.
type RedemptionWorkflow struct {
	db             *gorm.DB
	redisClient    *redis.Client
	cfg            *config.Config
	ledger         *Ledger
	activity       *ActivityLogger
	rewardRepo     *repository.RewardRepository
	redemptionRepo *repository.RedemptionRepository
}

func NewRedemptionWorkflow(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *RedemptionWorkflow {
	return &RedemptionWorkflow{
		db:             db,
		redisClient:    redisClient,
		cfg:            cfg,
		ledger:         NewLedger(db, cfg),
		activity:       NewActivityLogger(db, cfg),
		rewardRepo:     repository.NewRewardRepository(db),
		redemptionRepo: repository.NewRedemptionRepository(db),
	}
}

func (w *RedemptionWorkflow) ListRewards(ctx context.Context) ([]*model.Reward, error) {
	return w.rewardRepo.ListActive(ctx)
}

func (w *RedemptionWorkflow) ListUserRedemptions(ctx context.Context, userID int64, page, pageSize int) ([]*model.Redemption, int64, error) {
	return w.redemptionRepo.ListByUserID(ctx, userID, page, pageSize)
}

func (w *RedemptionWorkflow) ListPending(ctx context.Context, page, pageSize int) ([]*model.Redemption, int64, error) {
	return w.redemptionRepo.ListByStatus(ctx, model.RedemptionStatusPending, page, pageSize)
}

type RedeemResult struct {
	RedemptionNo string `json:"redemption_no"`
	Status       string `json:"status"`
	PointsSpent  int64  `json:"points_spent"`
	NewBalance   int64  `json:"new_balance"`
}

// Redeem claims a reward for the user. Eligibility checks run up front;
// the ledger debit inside the transaction is the final arbiter, so a
// failed debit leaves no redemption row and untouched stock.
func (w *RedemptionWorkflow) Redeem(ctx context.Context, userID, rewardID int64, notes string) (*RedeemResult, error) {
	reward, err := w.rewardRepo.GetByID(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	// A depleted reward is a limit problem, not a missing one; only rewards
	// the catalog retired are "not available".
	if reward.Status != model.RewardStatusActive && reward.Status != model.RewardStatusOutOfStock {
		return nil, ErrRewardNotActive
	}

	// Eligibility is decided under the per-user lock, so a second redeem by
	// the same user sees this one's committed row and balance.
	if unlock, err := w.lockWallet(ctx, userID); err != nil {
		return nil, err
	} else if unlock != nil {
		defer unlock()
	}

	if reward.MaxPerUser != nil {
		count, err := w.redemptionRepo.CountActiveByUserAndReward(ctx, userID, rewardID)
		if err != nil {
			return nil, err
		}
		if count >= int64(*reward.MaxPerUser) {
			return nil, ErrRedemptionLimitReached
		}
	}

	if reward.Status == model.RewardStatusOutOfStock || (reward.Quantity != nil && *reward.Quantity <= 0) {
		return nil, repository.ErrRewardOutOfStock
	}

	wallet, err := w.ledger.EnsureWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet.Balance < reward.PointsCost {
		return nil, repository.ErrInsufficientBalance
	}

	status := model.RedemptionStatusPending
	if !reward.RequiresApproval {
		status = model.RedemptionStatusApproved
	}

	redemption := &model.Redemption{
		RedemptionNo: idgen.GenerateRedemptionNo(),
		UserID:       userID,
		RewardID:     rewardID,
		PointsSpent:  reward.PointsCost,
		Status:       status,
		UserNotes:    notes,
	}

	var newBalance int64
	err = w.db.Transaction(func(tx *gorm.DB) error {
		if err := w.redemptionRepo.Create(ctx, tx, redemption); err != nil {
			return err
		}

		result, err := w.ledger.DebitTx(ctx, tx, userID, reward.PointsCost,
			model.TransactionTypeSpend,
			fmt.Sprintf("Redeemed %s", reward.Name),
			model.ReferenceTypeRedemption, &redemption.ID)
		if err != nil {
			return err
		}
		newBalance = result.NewBalance

		if reward.Quantity != nil {
			if err := w.rewardRepo.DecrementStock(ctx, tx, rewardID); err != nil {
				return err
			}
		}

		return w.activity.LogTx(ctx, tx, "reward_redeemed",
			fmt.Sprintf("reward=%d points=%d status=%s", rewardID, reward.PointsCost, status),
			userID)
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":       userID,
		"reward_id":     rewardID,
		"redemption_no": redemption.RedemptionNo,
		"points_spent":  reward.PointsCost,
	}).Info("reward redeemed")

	return &RedeemResult{
		RedemptionNo: redemption.RedemptionNo,
		Status:       status,
		PointsSpent:  reward.PointsCost,
		NewBalance:   newBalance,
	}, nil
}

// Approve moves a pending redemption to approved. No wallet effect.
func (w *RedemptionWorkflow) Approve(ctx context.Context, redemptionID, adminID int64) error {
	err := w.redemptionRepo.UpdateStatus(ctx, nil, redemptionID,
		model.RedemptionStatusPending, model.RedemptionStatusApproved, &adminID, "")
	if err != nil {
		return err
	}

	redemption, err := w.redemptionRepo.GetByID(ctx, redemptionID)
	if err == nil {
		w.activity.Log(ctx, "redemption_approved",
			fmt.Sprintf("redemption=%s by=%d", redemption.RedemptionNo, adminID), redemption.UserID)
	}
	return nil
}

// Fulfill marks an approved redemption as handed out. No wallet effect.
func (w *RedemptionWorkflow) Fulfill(ctx context.Context, redemptionID, adminID int64, notes string) error {
	err := w.redemptionRepo.UpdateStatus(ctx, nil, redemptionID,
		model.RedemptionStatusApproved, model.RedemptionStatusFulfilled, &adminID, notes)
	if err != nil {
		return err
	}

	redemption, err := w.redemptionRepo.GetByID(ctx, redemptionID)
	if err == nil {
		w.activity.Log(ctx, "redemption_fulfilled",
			fmt.Sprintf("redemption=%s by=%d", redemption.RedemptionNo, adminID), redemption.UserID)
	}
	return nil
}

// Reject refunds the user and moves the redemption to rejected. Refund and
// transition are one transaction; a second reject fails the transition and
// therefore cannot refund again.
func (w *RedemptionWorkflow) Reject(ctx context.Context, redemptionID, adminID int64, notes string) error {
	return w.refundAndTransition(ctx, redemptionID, model.RedemptionStatusRejected, adminID, notes)
}

// CancelByUser lets the owner cancel while pending or approved.
func (w *RedemptionWorkflow) CancelByUser(ctx context.Context, redemptionID, userID int64, notes string) error {
	redemption, err := w.redemptionRepo.GetByID(ctx, redemptionID)
	if err != nil {
		return err
	}
	if redemption.UserID != userID {
		return ErrNotRedemptionOwner
	}
	return w.refundAndTransition(ctx, redemptionID, model.RedemptionStatusCancelled, userID, notes)
}

// CancelByAdmin cancels on the user's behalf with the same refund contract.
func (w *RedemptionWorkflow) CancelByAdmin(ctx context.Context, redemptionID, adminID int64, notes string) error {
	return w.refundAndTransition(ctx, redemptionID, model.RedemptionStatusCancelled, adminID, notes)
}

// refundAndTransition is the single refund path shared by reject, user
// cancel and admin cancel. The status guard inside the transaction makes
// the refund at-most-once: a transition that does not match the current
// status fails before any credit happens.
func (w *RedemptionWorkflow) refundAndTransition(ctx context.Context, redemptionID int64, toStatus string, actorID int64, notes string) error {
	// Only the refunding transitions may come through here; anything else
	// would credit the user for a state change that keeps the claim alive.
	if !model.RefundableStatus(toStatus) {
		return repository.ErrInvalidTransition
	}

	redemption, err := w.redemptionRepo.GetByID(ctx, redemptionID)
	if err != nil {
		return err
	}
	if !model.CanTransitionTo(redemption.Status, toStatus) {
		return repository.ErrInvalidTransition
	}

	if w.redisClient != nil {
		redemptionLock := lock.NewRedemptionLock(w.redisClient, redemptionID, uuid.NewString())
		if err := redemptionLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
			return err
		}
		defer redemptionLock.Unlock(ctx)
	}

	// Re-read under the lock; a concurrent transition changes the status
	// and the guarded update below refuses.
	redemption, err = w.redemptionRepo.GetByID(ctx, redemptionID)
	if err != nil {
		return err
	}

	err = w.db.Transaction(func(tx *gorm.DB) error {
		if err := w.redemptionRepo.UpdateStatus(ctx, tx, redemptionID,
			redemption.Status, toStatus, &actorID, notes); err != nil {
			return err
		}

		if _, err := w.ledger.CreditTx(ctx, tx, redemption.UserID, redemption.PointsSpent,
			model.TransactionTypeRefund,
			fmt.Sprintf("Refund for redemption %s", redemption.RedemptionNo),
			model.ReferenceTypeRedemption, &redemption.ID); err != nil {
			return err
		}

		return w.activity.LogTx(ctx, tx, "redemption_refunded",
			fmt.Sprintf("redemption=%s status=%s points=%d by=%d",
				redemption.RedemptionNo, toStatus, redemption.PointsSpent, actorID),
			redemption.UserID)
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"redemption_no": redemption.RedemptionNo,
		"status":        toStatus,
		"points":        redemption.PointsSpent,
	}).Info("redemption refunded")

	return nil
}

func (w *RedemptionWorkflow) lockWallet(ctx context.Context, userID int64) (func(), error) {
	if w.redisClient == nil {
		return nil, nil
	}
	walletLock := lock.NewWalletLock(w.redisClient, userID, uuid.NewString())
	if err := walletLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, err
	}
	return func() { walletLock.Unlock(ctx) }, nil
}
