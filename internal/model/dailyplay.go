package model

import (
	"time"
)

// DailyPlayRecord counts plays and points per (user, game, calendar day).
// Incremented with an upsert, never read-then-write, so concurrent
// submissions cannot slip past the daily ceiling.
type DailyPlayRecord struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       int64     `gorm:"uniqueIndex:uniq_user_game_day;not null" json:"user_id"`
	GameID       int64     `gorm:"uniqueIndex:uniq_user_game_day;not null" json:"game_id"`
	PlayDate     string    `gorm:"type:varchar(10);uniqueIndex:uniq_user_game_day;not null" json:"play_date"` // YYYY-MM-DD
	PlayCount    int       `gorm:"not null;default:0" json:"play_count"`
	PointsEarned int64     `gorm:"not null;default:0" json:"points_earned"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DailyPlayRecord) TableName() string {
	return "daily_play_record"
}

// PlayDateKey formats t as the canonical play_date value.
func PlayDateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
