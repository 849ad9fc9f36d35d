package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"playportal/internal/model"
)

var (
	ErrRedemptionNotFound = errors.New("redemption not found")
	ErrInvalidTransition  = errors.New("redemption status does not allow this transition")
)

type RedemptionRepository struct {
	db *gorm.DB
}

func NewRedemptionRepository(db *gorm.DB) *RedemptionRepository {
	return &RedemptionRepository{db: db}
}

func (r *RedemptionRepository) Create(ctx context.Context, tx *gorm.DB, redemption *model.Redemption) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(redemption).Error
}

func (r *RedemptionRepository) GetByID(ctx context.Context, id int64) (*model.Redemption, error) {
	var redemption model.Redemption
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&redemption).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRedemptionNotFound
		}
		return nil, err
	}
	return &redemption, nil
}

// CountActiveByUserAndReward counts this user's claims against the reward,
// excluding rejected and cancelled ones. Compared against max_per_user.
func (r *RedemptionRepository) CountActiveByUserAndReward(ctx context.Context, userID, rewardID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Redemption{}).
		Where("user_id = ? AND reward_id = ? AND status NOT IN ?",
			userID, rewardID,
			[]string{model.RedemptionStatusRejected, model.RedemptionStatusCancelled}).
		Count(&count).Error
	return count, err
}

// UpdateStatus performs a guarded state transition. The WHERE status = from
// condition makes a second transition into a terminal state fail with
// ErrInvalidTransition instead of re-applying side effects.
func (r *RedemptionRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, fromStatus, toStatus string, processedBy *int64, adminNotes string) error {
	if !model.CanTransitionTo(fromStatus, toStatus) {
		return ErrInvalidTransition
	}

	if tx == nil {
		tx = r.db
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":       toStatus,
		"processed_at": &now,
	}
	if processedBy != nil {
		updates["processed_by"] = processedBy
	}
	if adminNotes != "" {
		updates["admin_notes"] = adminNotes
	}

	result := tx.WithContext(ctx).
		Model(&model.Redemption{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInvalidTransition
	}

	return nil
}

func (r *RedemptionRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.Redemption, int64, error) {
	var redemptions []*model.Redemption
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Redemption{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&redemptions).Error

	return redemptions, total, err
}

func (r *RedemptionRepository) ListByStatus(ctx context.Context, status string, page, pageSize int) ([]*model.Redemption, int64, error) {
	var redemptions []*model.Redemption
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Redemption{}).Where("status = ?", status)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&redemptions).Error

	return redemptions, total, err
}
