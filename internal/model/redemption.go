package model

import (
	"time"
)

const (
	RedemptionStatusPending   = "PENDING"
	RedemptionStatusApproved  = "APPROVED"
	RedemptionStatusFulfilled = "FULFILLED"
	RedemptionStatusRejected  = "REJECTED"
	RedemptionStatusCancelled = "CANCELLED"
)

// ValidRedemptionTransitions drives the redemption state machine.
// FULFILLED, REJECTED and CANCELLED are terminal.
var ValidRedemptionTransitions = map[string][]string{
	RedemptionStatusPending:  {RedemptionStatusApproved, RedemptionStatusRejected, RedemptionStatusCancelled},
	RedemptionStatusApproved: {RedemptionStatusFulfilled, RedemptionStatusRejected, RedemptionStatusCancelled},
}

func CanTransitionTo(currentStatus, targetStatus string) bool {
	allowed, exists := ValidRedemptionTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// RefundableStatus reports whether entering status pays the user back.
func RefundableStatus(status string) bool {
	return status == RedemptionStatusRejected || status == RedemptionStatusCancelled
}

// Redemption is one user's claim against a reward. points_spent is frozen
// at redemption time and is what gets refunded, regardless of later
// catalog price changes.
type Redemption struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	RedemptionNo string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"redemption_no"`
	UserID       int64      `gorm:"index;not null" json:"user_id"`
	RewardID     int64      `gorm:"index;not null" json:"reward_id"`
	PointsSpent  int64      `gorm:"not null" json:"points_spent"`
	Status       string     `gorm:"type:varchar(20);index;not null" json:"status"`
	UserNotes    string     `gorm:"type:varchar(512)" json:"user_notes"`
	AdminNotes   string     `gorm:"type:varchar(512)" json:"admin_notes"`
	ProcessedBy  *int64     `json:"processed_by"`
	ProcessedAt  *time.Time `json:"processed_at"`
	CreatedAt    time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Redemption) TableName() string {
	return "redemption"
}
