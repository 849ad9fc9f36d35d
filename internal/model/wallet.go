package model

import (
	"time"
)

// Wallet holds a user's point balance and lifetime counters.
// Balance must always equal the running sum of the wallet's ledger entries;
// every mutation goes through the wallet service, never direct writes.
type Wallet struct {
	ID                int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID            int64      `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance           int64      `gorm:"not null;default:0" json:"balance"`
	TotalEarned       int64      `gorm:"not null;default:0" json:"total_earned"`
	TotalSpent        int64      `gorm:"not null;default:0" json:"total_spent"`
	Version           int        `gorm:"not null;default:0" json:"-"` // optimistic lock
	LastTransactionAt *time.Time `json:"last_transaction_at"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallet"
}
