package repository

import (
	"context"

	"gorm.io/gorm"

	"playportal/internal/model"
)

type ScoreRepository struct {
	db *gorm.DB
}

func NewScoreRepository(db *gorm.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

func (r *ScoreRepository) Create(ctx context.Context, tx *gorm.DB, score *model.Score) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(score).Error
}

func (r *ScoreRepository) ListByUserAndGame(ctx context.Context, userID, gameID int64, page, pageSize int) ([]*model.Score, int64, error) {
	var scores []*model.Score
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Score{}).
		Where("user_id = ? AND game_id = ?", userID, gameID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&scores).Error

	return scores, total, err
}
