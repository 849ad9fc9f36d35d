package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"playportal/internal/config"
	"playportal/internal/model"
	"playportal/internal/repository"
	"playportal/pkg/idgen"
)

const maxApplyRetries = 3

// Ledger is the single write path for wallet balances. Every mutation is
// an atomic pair: version-guarded balance update plus an append-only
// transaction row whose balance_after matches the guarded read. Either
// both persist or neither does.
type Ledger struct {
	db              *gorm.DB
	cfg             *config.Config
	walletRepo      *repository.WalletRepository
	transactionRepo *repository.TransactionRepository
}

func NewLedger(db *gorm.DB, cfg *config.Config) *Ledger {
	return &Ledger{
		db:              db,
		cfg:             cfg,
		walletRepo:      repository.NewWalletRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
	}
}

// LedgerResult reports the outcome of one applied ledger entry.
type LedgerResult struct {
	WalletID      int64  `json:"wallet_id"`
	NewBalance    int64  `json:"new_balance"`
	TransactionNo string `json:"transaction_no"`
}

// EnsureWallet returns the user's wallet, creating it with the welcome
// bonus on first touch. The bonus and its ledger entry commit together.
func (l *Ledger) EnsureWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	var out *model.Wallet

	err := l.db.Transaction(func(tx *gorm.DB) error {
		wallet, created, err := l.walletRepo.CreateIfAbsent(ctx, tx, userID)
		if err != nil {
			return err
		}

		if created && l.cfg.Business.WelcomeBonus > 0 {
			if _, err := l.applyTx(ctx, tx, wallet, l.cfg.Business.WelcomeBonus,
				model.TransactionTypeBonus, "Welcome bonus", model.ReferenceTypeBonus, nil); err != nil {
				return err
			}
			wallet, err = l.walletRepo.GetByUserID(ctx, tx, userID)
			if err != nil {
				return err
			}
		}

		out = wallet
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Credit adds amount (> 0) to the user's wallet in its own transaction,
// retrying on version conflicts.
func (l *Ledger) Credit(ctx context.Context, userID, amount int64, txType, description, referenceType string, referenceID *int64) (*LedgerResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return l.apply(ctx, userID, amount, txType, description, referenceType, referenceID)
}

// Debit removes amount (> 0) from the user's wallet. Fails with
// repository.ErrInsufficientBalance, side-effect free, when the balance
// would drop below the configured floor.
func (l *Ledger) Debit(ctx context.Context, userID, amount int64, txType, description, referenceType string, referenceID *int64) (*LedgerResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return l.apply(ctx, userID, -amount, txType, description, referenceType, referenceID)
}

// Adjust applies a signed delta; used by admin adjustments which may go
// negative down to the floor.
func (l *Ledger) Adjust(ctx context.Context, userID, signedAmount int64, txType, description, referenceType string, referenceID *int64) (*LedgerResult, error) {
	if signedAmount == 0 {
		return nil, ErrZeroAdjustment
	}
	return l.apply(ctx, userID, signedAmount, txType, description, referenceType, referenceID)
}

func (l *Ledger) apply(ctx context.Context, userID, delta int64, txType, description, referenceType string, referenceID *int64) (*LedgerResult, error) {
	if _, err := l.EnsureWallet(ctx, userID); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxApplyRetries; attempt++ {
		var result *LedgerResult
		err := l.db.Transaction(func(tx *gorm.DB) error {
			wallet, err := l.walletRepo.GetByUserID(ctx, tx, userID)
			if err != nil {
				return err
			}
			result, err = l.applyTx(ctx, tx, wallet, delta, txType, description, referenceType, referenceID)
			return err
		})
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, repository.ErrOptimisticLock) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("wallet contention for user %d: %w", userID, lastErr)
}

// CreditTx and DebitTx apply a single attempt inside a caller-owned
// transaction, so composite operations (score award, redemption) stay
// atomic as a whole. Callers serialize per-user through the wallet lock;
// a version conflict here rolls the whole unit back.
func (l *Ledger) CreditTx(ctx context.Context, tx *gorm.DB, userID, amount int64, txType, description, referenceType string, referenceID *int64) (*LedgerResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	wallet, err := l.walletRepo.GetByUserID(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	return l.applyTx(ctx, tx, wallet, amount, txType, description, referenceType, referenceID)
}

func (l *Ledger) DebitTx(ctx context.Context, tx *gorm.DB, userID, amount int64, txType, description, referenceType string, referenceID *int64) (*LedgerResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	wallet, err := l.walletRepo.GetByUserID(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	return l.applyTx(ctx, tx, wallet, -amount, txType, description, referenceType, referenceID)
}

func (l *Ledger) applyTx(ctx context.Context, tx *gorm.DB, wallet *model.Wallet, delta int64, txType, description, referenceType string, referenceID *int64) (*LedgerResult, error) {
	err := l.walletRepo.ApplyDelta(ctx, tx, wallet.ID, delta, l.cfg.Business.BalanceFloor, wallet.Version)
	if err != nil {
		return nil, err
	}

	trans := &model.Transaction{
		TransactionNo: idgen.GenerateTransactionNo(),
		WalletID:      wallet.ID,
		UserID:        wallet.UserID,
		Type:          txType,
		Amount:        delta,
		BalanceAfter:  wallet.Balance + delta,
		Description:   description,
		ReferenceType: referenceType,
		ReferenceID:   referenceID,
	}
	if err := l.transactionRepo.Create(ctx, tx, trans); err != nil {
		return nil, err
	}

	return &LedgerResult{
		WalletID:      wallet.ID,
		NewBalance:    wallet.Balance + delta,
		TransactionNo: trans.TransactionNo,
	}, nil
}
