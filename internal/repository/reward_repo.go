package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"playportal/internal/model"
)

var (
	ErrRewardNotFound   = errors.New("reward not found")
	ErrRewardOutOfStock = errors.New("reward out of stock")
)

type RewardRepository struct {
	db *gorm.DB
}

func NewRewardRepository(db *gorm.DB) *RewardRepository {
	return &RewardRepository{db: db}
}

func (r *RewardRepository) GetByID(ctx context.Context, id int64) (*model.Reward, error) {
	var reward model.Reward
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&reward).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRewardNotFound
		}
		return nil, err
	}
	return &reward, nil
}

func (r *RewardRepository) ListActive(ctx context.Context) ([]*model.Reward, error) {
	var rewards []*model.Reward
	err := r.db.WithContext(ctx).
		Where("status = ?", model.RewardStatusActive).
		Order("points_cost ASC").
		Find(&rewards).Error
	return rewards, err
}

// DecrementStock takes one unit off a finite stock. The quantity > 0 guard
// in the WHERE clause is what keeps stock from going negative under
// concurrent redemptions; unlimited rewards (quantity NULL) are a no-op
// handled by the caller.
func (r *RewardRepository) DecrementStock(ctx context.Context, tx *gorm.DB, rewardID int64) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.Reward{}).
		Where("id = ? AND quantity IS NOT NULL AND quantity > 0", rewardID).
		Updates(map[string]interface{}{
			"quantity": gorm.Expr("quantity - 1"),
			"version":  gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRewardOutOfStock
	}

	// Flip depleted rewards out of the catalog listing.
	return tx.WithContext(ctx).
		Model(&model.Reward{}).
		Where("id = ? AND quantity = 0 AND status = ?", rewardID, model.RewardStatusActive).
		Update("status", model.RewardStatusOutOfStock).Error
}
