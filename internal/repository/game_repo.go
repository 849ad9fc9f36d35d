package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"playportal/internal/model"
)

var ErrGameNotFound = errors.New("game not found")

// GameRepository is read-only: the catalog belongs to the back office.
type GameRepository struct {
	db *gorm.DB
}

func NewGameRepository(db *gorm.DB) *GameRepository {
	return &GameRepository{db: db}
}

func (r *GameRepository) GetBySlug(ctx context.Context, slug string) (*model.Game, error) {
	var game model.Game
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&game).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	return &game, nil
}

func (r *GameRepository) GetByID(ctx context.Context, id int64) (*model.Game, error) {
	var game model.Game
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&game).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	return &game, nil
}

func (r *GameRepository) ListActive(ctx context.Context) ([]*model.Game, error) {
	var games []*model.Game
	err := r.db.WithContext(ctx).
		Where("status = ?", model.GameStatusActive).
		Order("name ASC").
		Find(&games).Error
	return games, err
}
