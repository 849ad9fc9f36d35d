package service

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"playportal/internal/model"
	"playportal/internal/repository"
)

func seedBalance(t *testing.T, db *gorm.DB, userID, balance int64) {
	t.Helper()
	cfg := testConfig()
	ledger := NewLedger(db, cfg)
	extra := balance - cfg.Business.WelcomeBonus
	if extra > 0 {
		if _, err := ledger.Credit(context.Background(), userID, extra,
			model.TransactionTypeEarn, "seed", model.ReferenceTypeOther, nil); err != nil {
			t.Fatalf("failed to seed balance: %v", err)
		}
	} else if _, err := ledger.EnsureWallet(context.Background(), userID); err != nil {
		t.Fatalf("failed to seed wallet: %v", err)
	}
}

func seedReward(t *testing.T, db *gorm.DB, reward *model.Reward) *model.Reward {
	t.Helper()
	if reward.Status == "" {
		reward.Status = model.RewardStatusActive
	}
	if err := db.Create(reward).Error; err != nil {
		t.Fatalf("failed to seed reward: %v", err)
	}
	return reward
}

func userBalance(t *testing.T, db *gorm.DB, userID int64) int64 {
	t.Helper()
	wallet, err := repository.NewWalletRepository(db).GetByUserID(context.Background(), nil, userID)
	if err != nil {
		t.Fatalf("failed to load wallet: %v", err)
	}
	return wallet.Balance
}

func TestRedeem_AutoApproval(t *testing.T) {
	db := newTestDB(t)
	workflow := NewRedemptionWorkflow(db, nil, testConfig())
	ctx := context.Background()

	seedBalance(t, db, 1, 500)
	reward := seedReward(t, db, &model.Reward{
		Name:             "Mug",
		PointsCost:       300,
		Quantity:         intPtr(1),
		MaxPerUser:       intPtr(1),
		RequiresApproval: false,
	})

	result, err := workflow.Redeem(ctx, 1, reward.ID, "please")
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}

	if result.Status != model.RedemptionStatusApproved {
		t.Errorf("expected APPROVED for a no-approval reward, got %s", result.Status)
	}
	if result.PointsSpent != 300 {
		t.Errorf("expected 300 points spent, got %d", result.PointsSpent)
	}
	if result.NewBalance != 200 {
		t.Errorf("expected balance 200, got %d", result.NewBalance)
	}

	var updated model.Reward
	if err := db.First(&updated, reward.ID).Error; err != nil {
		t.Fatalf("failed to reload reward: %v", err)
	}
	if updated.Quantity == nil || *updated.Quantity != 0 {
		t.Errorf("expected stock 0, got %v", updated.Quantity)
	}
	if updated.Status != model.RewardStatusOutOfStock {
		t.Errorf("expected depleted reward marked OUT_OF_STOCK, got %s", updated.Status)
	}

	// Second attempt trips the per-user limit; the balance is untouched.
	if _, err := workflow.Redeem(ctx, 1, reward.ID, ""); !errors.Is(err, ErrRedemptionLimitReached) {
		t.Errorf("expected ErrRedemptionLimitReached, got %v", err)
	}
	if balance := userBalance(t, db, 1); balance != 200 {
		t.Errorf("expected balance to stay 200, got %d", balance)
	}
}

func TestRedeem_DepletedRewardIsOutOfStock(t *testing.T) {
	db := newTestDB(t)
	workflow := NewRedemptionWorkflow(db, nil, testConfig())
	ctx := context.Background()

	seedBalance(t, db, 1, 500)
	seedBalance(t, db, 2, 500)
	reward := seedReward(t, db, &model.Reward{
		Name:             "Mug",
		PointsCost:       300,
		Quantity:         intPtr(1),
		MaxPerUser:       intPtr(1),
		RequiresApproval: false,
	})

	if _, err := workflow.Redeem(ctx, 1, reward.ID, ""); err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}

	// The reward is now depleted and flagged OUT_OF_STOCK. Another user
	// must see an out-of-stock refusal, not a missing reward.
	if _, err := workflow.Redeem(ctx, 2, reward.ID, ""); !errors.Is(err, repository.ErrRewardOutOfStock) {
		t.Errorf("expected ErrRewardOutOfStock for second user, got %v", err)
	}

	// The first user still hits the per-user limit, which takes priority
	// over stock.
	if _, err := workflow.Redeem(ctx, 1, reward.ID, ""); !errors.Is(err, ErrRedemptionLimitReached) {
		t.Errorf("expected ErrRedemptionLimitReached for first user, got %v", err)
	}
}

func TestRedeem_InsufficientBalance(t *testing.T) {
	db := newTestDB(t)
	workflow := NewRedemptionWorkflow(db, nil, testConfig())
	ctx := context.Background()

	seedBalance(t, db, 1, 100)
	reward := seedReward(t, db, &model.Reward{
		Name:       "Console",
		PointsCost: 5000,
		Quantity:   intPtr(10),
	})

	if _, err := workflow.Redeem(ctx, 1, reward.ID, ""); !errors.Is(err, repository.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// A failed redemption leaves neither a row nor a stock change.
	var count int64
	if err := db.Model(&model.Redemption{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count redemptions: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no redemption rows, got %d", count)
	}

	var updated model.Reward
	if err := db.First(&updated, reward.ID).Error; err != nil {
		t.Fatalf("failed to reload reward: %v", err)
	}
	if *updated.Quantity != 10 {
		t.Errorf("expected stock unchanged at 10, got %d", *updated.Quantity)
	}
}

func TestRedeem_OutOfStock(t *testing.T) {
	db := newTestDB(t)
	workflow := NewRedemptionWorkflow(db, nil, testConfig())
	ctx := context.Background()

	seedBalance(t, db, 1, 500)
	reward := seedReward(t, db, &model.Reward{
		Name:       "Sticker",
		PointsCost: 10,
		Quantity:   intPtr(0),
	})

	if _, err := workflow.Redeem(ctx, 1, reward.ID, ""); !errors.Is(err, repository.ErrRewardOutOfStock) {
		t.Errorf("expected ErrRewardOutOfStock, got %v", err)
	}
}

func TestRedeem_InactiveReward(t *testing.T) {
	db := newTestDB(t)
	workflow := NewRedemptionWorkflow(db, nil, testConfig())
	ctx := context.Background()

	seedBalance(t, db, 1, 500)
	reward := seedReward(t, db, &model.Reward{
		Name:       "Retired",
		PointsCost: 10,
		Status:     model.RewardStatusInactive,
	})

	if _, err := workflow.Redeem(ctx, 1, reward.ID, ""); !errors.Is(err, ErrRewardNotActive) {
		t.Errorf("expected ErrRewardNotActive, got %v", err)
	}
}

func TestCancel_RefundsExactlyOnce(t *testing.T) {
	db := newTestDB(t)
	workflow := NewRedemptionWorkflow(db, nil, testConfig())
	ctx := context.Background()

	seedBalance(t, db, 1, 500)
	reward := seedReward(t, db, &model.Reward{
		Name:             "Mug",
		PointsCost:       300,
		RequiresApproval: false,
	})

	result, err := workflow.Redeem(ctx, 1, reward.ID, "")
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}

	var redemption model.Redemption
	if err := db.Where("redemption_no = ?", result.RedemptionNo).First(&redemption).Error; err != nil {
		t.Fatalf("failed to load redemption: %v", err)
	}

	if err := workflow.CancelByUser(ctx, redemption.ID, 1, "changed my mind"); err != nil {
		t.Fatalf("CancelByUser failed: %v", err)
	}
	if balance := userBalance(t, db, 1); balance != 500 {
		t.Errorf("expected full refund back to 500, got %d", balance)
	}

	var updated model.Redemption
	if err := db.First(&updated, redemption.ID).Error; err != nil {
		t.Fatalf("failed to reload redemption: %v", err)
	}
	if updated.Status != model.RedemptionStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", updated.Status)
	}

	// The second cancel is an invalid transition, not a second refund.
	if err := workflow.CancelByUser(ctx, redemption.ID, 1, "again"); !errors.Is(err, repository.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition on double cancel, got %v", err)
	}
	if balance := userBalance(t, db, 1); balance != 500 {
		t.Errorf("expected balance to stay 500 after double cancel, got %d", balance)
	}

	var refunds int64
	if err := db.Model(&model.Transaction{}).
		Where("type = ?", model.TransactionTypeRefund).
		Count(&refunds).Error; err != nil {
		t.Fatalf("failed to count refunds: %v", err)
	}
	if refunds != 1 {
		t.Errorf("expected exactly 1 refund transaction, got %d", refunds)
	}
}

func TestCancelByUser_NotOwner(t *testing.T) {
	db := newTestDB(t)
	workflow := NewRedemptionWorkflow(db, nil, testConfig())
	ctx := context.Background()

	seedBalance(t, db, 1, 500)
	reward := seedReward(t, db, &model.Reward{Name: "Mug", PointsCost: 100})

	result, err := workflow.Redeem(ctx, 1, reward.ID, "")
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}

	var redemption model.Redemption
	if err := db.Where("redemption_no = ?", result.RedemptionNo).First(&redemption).Error; err != nil {
		t.Fatalf("failed to load redemption: %v", err)
	}

	if err := workflow.CancelByUser(ctx, redemption.ID, 2, ""); !errors.Is(err, ErrNotRedemptionOwner) {
		t.Errorf("expected ErrNotRedemptionOwner, got %v", err)
	}
}

func TestApprovalLifecycle(t *testing.T) {
	db := newTestDB(t)
	workflow := NewRedemptionWorkflow(db, nil, testConfig())
	ctx := context.Background()

	seedBalance(t, db, 1, 500)
	reward := seedReward(t, db, &model.Reward{
		Name:             "Hoodie",
		PointsCost:       200,
		RequiresApproval: true,
	})

	result, err := workflow.Redeem(ctx, 1, reward.ID, "")
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	if result.Status != model.RedemptionStatusPending {
		t.Fatalf("expected PENDING for approval-gated reward, got %s", result.Status)
	}

	var redemption model.Redemption
	if err := db.Where("redemption_no = ?", result.RedemptionNo).First(&redemption).Error; err != nil {
		t.Fatalf("failed to load redemption: %v", err)
	}

	if err := workflow.Approve(ctx, redemption.ID, 99); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	// Approval moves no points.
	if balance := userBalance(t, db, 1); balance != 300 {
		t.Errorf("expected balance 300 after approve, got %d", balance)
	}

	// Approving twice is an invalid transition.
	if err := workflow.Approve(ctx, redemption.ID, 99); !errors.Is(err, repository.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition on double approve, got %v", err)
	}

	if err := workflow.Fulfill(ctx, redemption.ID, 99, "shipped"); err != nil {
		t.Fatalf("Fulfill failed: %v", err)
	}
	if balance := userBalance(t, db, 1); balance != 300 {
		t.Errorf("expected balance 300 after fulfill, got %d", balance)
	}

	// Fulfilled is terminal: no reject, no cancel, no refund.
	if err := workflow.Reject(ctx, redemption.ID, 99, "too late"); !errors.Is(err, repository.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition rejecting a fulfilled redemption, got %v", err)
	}
	if err := workflow.CancelByAdmin(ctx, redemption.ID, 99, "too late"); !errors.Is(err, repository.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition cancelling a fulfilled redemption, got %v", err)
	}
	if balance := userBalance(t, db, 1); balance != 300 {
		t.Errorf("expected balance to stay 300, got %d", balance)
	}
}

func TestReject_RefundsPending(t *testing.T) {
	db := newTestDB(t)
	workflow := NewRedemptionWorkflow(db, nil, testConfig())
	ctx := context.Background()

	seedBalance(t, db, 1, 500)
	reward := seedReward(t, db, &model.Reward{
		Name:             "Hoodie",
		PointsCost:       200,
		RequiresApproval: true,
	})

	result, err := workflow.Redeem(ctx, 1, reward.ID, "")
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}

	var redemption model.Redemption
	if err := db.Where("redemption_no = ?", result.RedemptionNo).First(&redemption).Error; err != nil {
		t.Fatalf("failed to load redemption: %v", err)
	}

	if err := workflow.Reject(ctx, redemption.ID, 99, "out of policy"); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if balance := userBalance(t, db, 1); balance != 500 {
		t.Errorf("expected refund back to 500, got %d", balance)
	}

	if err := workflow.Reject(ctx, redemption.ID, 99, "again"); !errors.Is(err, repository.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition on double reject, got %v", err)
	}
	if balance := userBalance(t, db, 1); balance != 500 {
		t.Errorf("expected balance to stay 500, got %d", balance)
	}
}

func TestRedeem_MaxPerUserIgnoresCancelled(t *testing.T) {
	db := newTestDB(t)
	workflow := NewRedemptionWorkflow(db, nil, testConfig())
	ctx := context.Background()

	seedBalance(t, db, 1, 500)
	reward := seedReward(t, db, &model.Reward{
		Name:       "Mug",
		PointsCost: 100,
		MaxPerUser: intPtr(1),
	})

	result, err := workflow.Redeem(ctx, 1, reward.ID, "")
	if err != nil {
		t.Fatalf("first Redeem failed: %v", err)
	}

	var redemption model.Redemption
	if err := db.Where("redemption_no = ?", result.RedemptionNo).First(&redemption).Error; err != nil {
		t.Fatalf("failed to load redemption: %v", err)
	}
	if err := workflow.CancelByUser(ctx, redemption.ID, 1, ""); err != nil {
		t.Fatalf("CancelByUser failed: %v", err)
	}

	// The cancelled claim does not count against max_per_user.
	if _, err := workflow.Redeem(ctx, 1, reward.ID, ""); err != nil {
		t.Errorf("expected redeem to succeed after cancellation, got %v", err)
	}
}
