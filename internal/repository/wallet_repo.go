package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"playportal/internal/model"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOptimisticLock      = errors.New("wallet version conflict, retry")
)

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) GetByUserID(ctx context.Context, tx *gorm.DB, userID int64) (*model.Wallet, error) {
	if tx == nil {
		tx = r.db
	}
	var wallet model.Wallet
	err := tx.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

// CreateIfAbsent inserts a zero wallet for the user, ignoring the insert if
// one already exists. Returns the current row either way.
func (r *WalletRepository) CreateIfAbsent(ctx context.Context, tx *gorm.DB, userID int64) (*model.Wallet, bool, error) {
	if tx == nil {
		tx = r.db
	}

	wallet := &model.Wallet{UserID: userID}
	result := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(wallet)
	if result.Error != nil {
		return nil, false, result.Error
	}
	created := result.RowsAffected > 0

	var current model.Wallet
	if err := tx.WithContext(ctx).Where("user_id = ?", userID).First(&current).Error; err != nil {
		return nil, false, err
	}
	return &current, created, nil
}

// ApplyDelta mutates the balance with a version-guarded conditional update.
// amount may be negative; the update refuses to take the balance below
// floor. RowsAffected distinguishes "insufficient" from "lost the race".
func (r *WalletRepository) ApplyDelta(ctx context.Context, tx *gorm.DB, walletID, amount, floor int64, version int) error {
	if tx == nil {
		tx = r.db
	}

	updates := map[string]interface{}{
		"balance":             gorm.Expr("balance + ?", amount),
		"version":             gorm.Expr("version + 1"),
		"last_transaction_at": time.Now(),
	}
	if amount >= 0 {
		updates["total_earned"] = gorm.Expr("total_earned + ?", amount)
	} else {
		updates["total_spent"] = gorm.Expr("total_spent + ?", -amount)
	}

	result := tx.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("id = ? AND version = ? AND balance + ? >= ?", walletID, version, amount, floor).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		var wallet model.Wallet
		if err := tx.WithContext(ctx).Where("id = ?", walletID).First(&wallet).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWalletNotFound
			}
			return err
		}
		if wallet.Balance+amount < floor {
			return ErrInsufficientBalance
		}
		return ErrOptimisticLock
	}

	return nil
}
