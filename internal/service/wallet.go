package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"playportal/internal/config"
	"playportal/internal/model"
	"playportal/internal/repository"
)

// WalletService exposes the domain-level point operations over the ledger.
type WalletService struct {
	ledger          *Ledger
	walletRepo      *repository.WalletRepository
	transactionRepo *repository.TransactionRepository
}

func NewWalletService(db *gorm.DB, cfg *config.Config) *WalletService {
	return &WalletService{
		ledger:          NewLedger(db, cfg),
		walletRepo:      repository.NewWalletRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
	}
}

// Ledger exposes the underlying ledger for composite workflows.
func (s *WalletService) Ledger() *Ledger {
	return s.ledger
}

// AddPoints credits amount (> 0) to the user.
func (s *WalletService) AddPoints(ctx context.Context, userID, amount int64, description, referenceType string, referenceID *int64) (*LedgerResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.ledger.Credit(ctx, userID, amount, model.TransactionTypeEarn, description, referenceType, referenceID)
}

// DeductPoints debits amount (> 0). Insufficient funds come back as
// repository.ErrInsufficientBalance so callers can show a user-facing
// message instead of a generic failure.
func (s *WalletService) DeductPoints(ctx context.Context, userID, amount int64, description, referenceType string, referenceID *int64) (*LedgerResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.ledger.Debit(ctx, userID, amount, model.TransactionTypeSpend, description, referenceType, referenceID)
}

// AdminAdjustment applies a signed delta on behalf of an admin; bonus for
// non-negative amounts, penalty for negative ones. Penalties stop at the
// configured floor like any other debit.
func (s *WalletService) AdminAdjustment(ctx context.Context, userID, signedAmount int64, reason string, adminID int64) (*LedgerResult, error) {
	if signedAmount == 0 {
		return nil, ErrZeroAdjustment
	}

	txType := model.TransactionTypeBonus
	if signedAmount < 0 {
		txType = model.TransactionTypePenalty
	}

	description := fmt.Sprintf("Admin adjustment: %s", reason)
	result, err := s.ledger.Adjust(ctx, userID, signedAmount, txType, description, model.ReferenceTypeAdmin, &adminID)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  userID,
		"amount":   signedAmount,
		"admin_id": adminID,
	}).Info("admin wallet adjustment applied")

	return result, nil
}

// GetBalance returns 0 for users without a wallet.
func (s *WalletService) GetBalance(ctx context.Context, userID int64) (int64, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return wallet.Balance, nil
}

// GetWallet returns the user's wallet, creating it (with the welcome
// bonus) on first touch.
func (s *WalletService) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	return s.ledger.EnsureWallet(ctx, userID)
}

func (s *WalletService) ListTransactions(ctx context.Context, userID int64, page, pageSize int) ([]*model.Transaction, int64, error) {
	return s.transactionRepo.ListByUserID(ctx, userID, page, pageSize)
}

// GetTransaction looks up one ledger entry by its reference number.
// Another user's entry reads as not found; existence is not leaked.
func (s *WalletService) GetTransaction(ctx context.Context, userID int64, transactionNo string) (*model.Transaction, error) {
	trans, err := s.transactionRepo.GetByTransactionNo(ctx, transactionNo)
	if err != nil {
		return nil, err
	}
	if trans.UserID != userID {
		return nil, repository.ErrTransactionNotFound
	}
	return trans, nil
}
