package model

import (
	"time"
)

// Score records one play result. Written exactly once per submission and
// never mutated; a rejected integrity check still produces a row, with
// points_earned forced to zero.
type Score struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ScoreNo      string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"score_no"`
	UserID       int64     `gorm:"index;not null" json:"user_id"`
	GameID       int64     `gorm:"index;not null" json:"game_id"`
	Score        int64     `gorm:"not null" json:"score"`
	PointsEarned int64     `gorm:"not null;default:0" json:"points_earned"`
	PlayTime     int64     `gorm:"not null" json:"play_time"` // seconds
	Completed    bool      `gorm:"not null;default:false" json:"completed"`
	GameData     string    `gorm:"type:text" json:"game_data"` // raw client payload, kept for audit
	SessionToken string    `gorm:"type:varchar(128);index;not null" json:"-"`
	Validated    bool      `gorm:"not null;default:false" json:"validated"`
	FlagReason   string    `gorm:"type:varchar(256)" json:"flag_reason,omitempty"`
	Flagged      bool      `gorm:"not null;default:false" json:"flagged"` // multiple checks failed, needs review
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Score) TableName() string {
	return "game_score"
}
