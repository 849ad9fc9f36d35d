package model

import (
	"time"
)

const (
	TransactionTypeEarn    = "EARN"    // points awarded for a play
	TransactionTypeSpend   = "SPEND"   // points spent on a redemption
	TransactionTypeBonus   = "BONUS"   // welcome bonus / positive admin adjustment
	TransactionTypePenalty = "PENALTY" // negative admin adjustment
	TransactionTypeRefund  = "REFUND"  // redemption refund
)

const (
	ReferenceTypeGame       = "GAME"
	ReferenceTypeRedemption = "REDEMPTION"
	ReferenceTypeAdmin      = "ADMIN"
	ReferenceTypeBonus      = "BONUS"
	ReferenceTypeOther      = "OTHER"
)

// Transaction is one immutable ledger entry.
// Append only: rows are never updated or deleted, and balance_after must
// equal the wallet balance at the moment the row was written.
type Transaction struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"`
	WalletID      int64     `gorm:"index;not null" json:"wallet_id"`
	UserID        int64     `gorm:"index;not null" json:"user_id"`
	Type          string    `gorm:"type:varchar(20);not null" json:"type"`
	Amount        int64     `gorm:"not null" json:"amount"` // positive credit, negative debit
	BalanceAfter  int64     `gorm:"not null" json:"balance_after"`
	Description   string    `gorm:"type:varchar(256)" json:"description"`
	ReferenceType string    `gorm:"type:varchar(20);not null" json:"reference_type"`
	ReferenceID   *int64    `gorm:"index" json:"reference_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Transaction) TableName() string {
	return "wallet_transaction"
}
