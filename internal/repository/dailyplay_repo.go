package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"playportal/internal/model"
)

type DailyPlayRepository struct {
	db *gorm.DB
}

func NewDailyPlayRepository(db *gorm.DB) *DailyPlayRepository {
	return &DailyPlayRepository{db: db}
}

// GetForDay returns nil without error when the user has not played the
// game that day.
func (r *DailyPlayRepository) GetForDay(ctx context.Context, userID, gameID int64, playDate string) (*model.DailyPlayRecord, error) {
	var record model.DailyPlayRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND game_id = ? AND play_date = ?", userID, gameID, playDate).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// RecordPlay upserts the (user, game, day) counter: insert-or-increment in
// a single statement so concurrent submissions cannot both start from the
// same count.
func (r *DailyPlayRepository) RecordPlay(ctx context.Context, tx *gorm.DB, userID, gameID int64, playDate string, points int64) error {
	if tx == nil {
		tx = r.db
	}

	record := &model.DailyPlayRecord{
		UserID:       userID,
		GameID:       gameID,
		PlayDate:     playDate,
		PlayCount:    1,
		PointsEarned: points,
	}

	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "game_id"}, {Name: "play_date"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"play_count":    gorm.Expr("play_count + 1"),
				"points_earned": gorm.Expr("points_earned + ?", points),
			}),
		}).
		Create(record).Error
}

// Reset clears the counter for one user/game/day. Administrative use only.
func (r *DailyPlayRepository) Reset(ctx context.Context, userID, gameID int64, playDate string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND game_id = ? AND play_date = ?", userID, gameID, playDate).
		Delete(&model.DailyPlayRecord{}).Error
}

// DeleteBefore prunes rows older than playDate. Driven by the retention job.
func (r *DailyPlayRepository) DeleteBefore(ctx context.Context, playDate string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("play_date < ?", playDate).
		Delete(&model.DailyPlayRecord{})
	return result.RowsAffected, result.Error
}
