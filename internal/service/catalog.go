package service

import (
	"context"

	"gorm.io/gorm"

	"playportal/internal/model"
	"playportal/internal/repository"
)

// CatalogService is the read-only view over the externally managed game
// catalog, plus the caller's daily standing per game.
type CatalogService struct {
	gameRepo *repository.GameRepository
	guard    *SessionGuard
}

func NewCatalogService(db *gorm.DB, guard *SessionGuard) *CatalogService {
	return &CatalogService{
		gameRepo: repository.NewGameRepository(db),
		guard:    guard,
	}
}

func (s *CatalogService) ListGames(ctx context.Context) ([]*model.Game, error) {
	return s.gameRepo.ListActive(ctx)
}

// GameStatus returns the game plus the user's daily-limit standing.
func (s *CatalogService) GameStatus(ctx context.Context, userID int64, gameSlug string) (*model.Game, *DailyLimitStatus, error) {
	game, err := s.gameRepo.GetBySlug(ctx, gameSlug)
	if err != nil {
		return nil, nil, err
	}
	if game.Status != model.GameStatusActive {
		return nil, nil, repository.ErrGameNotFound
	}

	limit, err := s.guard.CheckDailyPlayLimit(ctx, userID, game.ID, game.MaxPlaysPerDay)
	if err != nil {
		return nil, nil, err
	}

	return game, limit, nil
}
