package model

import (
	"time"
)

const (
	RewardStatusActive     = "ACTIVE"
	RewardStatusInactive   = "INACTIVE"
	RewardStatusOutOfStock = "OUT_OF_STOCK"
)

// Reward is a catalog entry users spend points on. Catalog management is
// the back office's job; this service reads it and decrements stock.
type Reward struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name             string    `gorm:"type:varchar(128);not null" json:"name"`
	Description      string    `gorm:"type:varchar(512)" json:"description"`
	PointsCost       int64     `gorm:"not null" json:"points_cost"`
	Quantity         *int      `json:"quantity"`     // nil = unlimited
	MaxPerUser       *int      `json:"max_per_user"` // nil = unlimited
	Status           string    `gorm:"type:varchar(20);index;not null;default:ACTIVE" json:"status"`
	RequiresApproval bool      `gorm:"not null;default:false" json:"requires_approval"`
	Version          int       `gorm:"not null;default:0" json:"-"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Reward) TableName() string {
	return "reward"
}
