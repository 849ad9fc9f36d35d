package model

import (
	"time"
)

const (
	GameStatusActive   = "ACTIVE"
	GameStatusInactive = "INACTIVE"
)

// Game is the catalog entry for a playable game. The catalog is managed by
// the admin back office; this service only reads it.
type Game struct {
	ID                   int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug                 string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"slug"`
	Name                 string    `gorm:"type:varchar(128);not null" json:"name"`
	PointsRewardBase     int64     `gorm:"not null;default:50" json:"points_reward_base"`
	DifficultyMultiplier float64   `gorm:"not null;default:1.0" json:"difficulty_multiplier"`
	MinScoreForPoints    int64     `gorm:"not null;default:0" json:"min_score_for_points"`
	MaxPlaysPerDay       int       `gorm:"not null;default:10" json:"max_plays_per_day"`
	Status               string    `gorm:"type:varchar(20);index;not null;default:ACTIVE" json:"status"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Game) TableName() string {
	return "game"
}
