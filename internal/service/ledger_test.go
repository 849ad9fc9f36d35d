package service

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"playportal/internal/config"
	"playportal/internal/infrastructure/database"
	"playportal/internal/model"
	"playportal/internal/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get underlying *sql.DB: %v", err)
	}
	// In-memory sqlite databases are per-connection.
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Business: config.BusinessConfig{
			WelcomeBonus:           100,
			BalanceFloor:           0,
			MaxPointsPerSubmission: 500,
			AllowPlayAfterLimit:    true,
			MaxRetryCount:          3,
		},
		Session: config.SessionConfig{
			Secret:     "test-secret",
			TTLMinutes: 60,
		},
		AntiCheat: map[string]config.GameLimits{
			"fruit-catch": {MaxScore: 10000, MinPlayTime: 10, MaxScoreRate: 50},
		},
	}
}

func intPtr(v int) *int {
	return &v
}

func TestEnsureWallet_WelcomeBonus(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db, testConfig())
	ctx := context.Background()

	wallet, err := ledger.EnsureWallet(ctx, 1)
	if err != nil {
		t.Fatalf("EnsureWallet failed: %v", err)
	}
	if wallet.Balance != 100 {
		t.Errorf("expected welcome bonus balance 100, got %d", wallet.Balance)
	}

	var trans []model.Transaction
	if err := db.Where("wallet_id = ?", wallet.ID).Find(&trans).Error; err != nil {
		t.Fatalf("failed to load transactions: %v", err)
	}
	if len(trans) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(trans))
	}
	if trans[0].Type != model.TransactionTypeBonus {
		t.Errorf("expected BONUS transaction, got %s", trans[0].Type)
	}
	if trans[0].BalanceAfter != 100 {
		t.Errorf("expected balance_after 100, got %d", trans[0].BalanceAfter)
	}

	// A second touch must not re-grant the bonus.
	wallet, err = ledger.EnsureWallet(ctx, 1)
	if err != nil {
		t.Fatalf("second EnsureWallet failed: %v", err)
	}
	if wallet.Balance != 100 {
		t.Errorf("expected balance to stay 100, got %d", wallet.Balance)
	}
}

func TestEnsureWallet_NoBonusConfigured(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	cfg.Business.WelcomeBonus = 0
	ledger := NewLedger(db, cfg)

	wallet, err := ledger.EnsureWallet(context.Background(), 1)
	if err != nil {
		t.Fatalf("EnsureWallet failed: %v", err)
	}
	if wallet.Balance != 0 {
		t.Errorf("expected balance 0, got %d", wallet.Balance)
	}
}

func TestCreditAndDebit(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db, testConfig())
	ctx := context.Background()

	result, err := ledger.Credit(ctx, 1, 200, model.TransactionTypeEarn, "test credit", model.ReferenceTypeOther, nil)
	if err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if result.NewBalance != 300 {
		t.Errorf("expected balance 300 after welcome bonus + 200, got %d", result.NewBalance)
	}

	result, err = ledger.Debit(ctx, 1, 150, model.TransactionTypeSpend, "test debit", model.ReferenceTypeOther, nil)
	if err != nil {
		t.Fatalf("Debit failed: %v", err)
	}
	if result.NewBalance != 150 {
		t.Errorf("expected balance 150, got %d", result.NewBalance)
	}

	// The transaction log must reconcile with the balance.
	transRepo := repository.NewTransactionRepository(db)
	sum, err := transRepo.SumByWalletID(ctx, result.WalletID)
	if err != nil {
		t.Fatalf("SumByWalletID failed: %v", err)
	}
	if sum != 150 {
		t.Errorf("transaction sum %d does not match balance 150", sum)
	}
}

func TestDebit_InsufficientBalance(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db, testConfig())
	ctx := context.Background()

	if _, err := ledger.EnsureWallet(ctx, 1); err != nil {
		t.Fatalf("EnsureWallet failed: %v", err)
	}

	_, err := ledger.Debit(ctx, 1, 500, model.TransactionTypeSpend, "too much", model.ReferenceTypeOther, nil)
	if !errors.Is(err, repository.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// A refused debit leaves no trace.
	wallet, err := repository.NewWalletRepository(db).GetByUserID(ctx, nil, 1)
	if err != nil {
		t.Fatalf("GetByUserID failed: %v", err)
	}
	if wallet.Balance != 100 {
		t.Errorf("expected balance unchanged at 100, got %d", wallet.Balance)
	}

	var count int64
	if err := db.Model(&model.Transaction{}).Where("wallet_id = ?", wallet.ID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count transactions: %v", err)
	}
	if count != 1 {
		t.Errorf("expected only the welcome bonus transaction, got %d rows", count)
	}
}

func TestCredit_RejectsNonPositiveAmounts(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db, testConfig())
	ctx := context.Background()

	for _, amount := range []int64{0, -10} {
		if _, err := ledger.Credit(ctx, 1, amount, model.TransactionTypeEarn, "bad", model.ReferenceTypeOther, nil); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Credit(%d): expected ErrInvalidAmount, got %v", amount, err)
		}
		if _, err := ledger.Debit(ctx, 1, amount, model.TransactionTypeSpend, "bad", model.ReferenceTypeOther, nil); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Debit(%d): expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestAdminAdjustment(t *testing.T) {
	db := newTestDB(t)
	svc := NewWalletService(db, testConfig())
	ctx := context.Background()

	result, err := svc.AdminAdjustment(ctx, 1, 50, "manual bonus", 99)
	if err != nil {
		t.Fatalf("positive adjustment failed: %v", err)
	}
	if result.NewBalance != 150 {
		t.Errorf("expected balance 150, got %d", result.NewBalance)
	}

	result, err = svc.AdminAdjustment(ctx, 1, -30, "penalty", 99)
	if err != nil {
		t.Fatalf("negative adjustment failed: %v", err)
	}
	if result.NewBalance != 120 {
		t.Errorf("expected balance 120, got %d", result.NewBalance)
	}

	if _, err := svc.AdminAdjustment(ctx, 1, 0, "noop", 99); !errors.Is(err, ErrZeroAdjustment) {
		t.Errorf("expected ErrZeroAdjustment, got %v", err)
	}

	// Penalties stop at the floor like any debit.
	if _, err := svc.AdminAdjustment(ctx, 1, -1000, "too harsh", 99); !errors.Is(err, repository.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}

	var trans []model.Transaction
	if err := db.Where("user_id = ?", int64(1)).Order("id ASC").Find(&trans).Error; err != nil {
		t.Fatalf("failed to load transactions: %v", err)
	}
	if len(trans) != 3 {
		t.Fatalf("expected 3 transactions (bonus, bonus, penalty), got %d", len(trans))
	}
	if trans[1].Type != model.TransactionTypeBonus {
		t.Errorf("expected BONUS type for positive adjustment, got %s", trans[1].Type)
	}
	if trans[2].Type != model.TransactionTypePenalty {
		t.Errorf("expected PENALTY type for negative adjustment, got %s", trans[2].Type)
	}
}

func TestGetBalance_NoWallet(t *testing.T) {
	db := newTestDB(t)
	svc := NewWalletService(db, testConfig())

	balance, err := svc.GetBalance(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if balance != 0 {
		t.Errorf("expected 0 for unknown user, got %d", balance)
	}
}

func TestGetTransaction(t *testing.T) {
	db := newTestDB(t)
	svc := NewWalletService(db, testConfig())
	ctx := context.Background()

	result, err := svc.AddPoints(ctx, 1, 50, "credit", model.ReferenceTypeOther, nil)
	if err != nil {
		t.Fatalf("AddPoints failed: %v", err)
	}

	trans, err := svc.GetTransaction(ctx, 1, result.TransactionNo)
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	if trans.Amount != 50 {
		t.Errorf("expected amount 50, got %d", trans.Amount)
	}

	// Another user's entry reads as not found.
	if _, err := svc.GetTransaction(ctx, 2, result.TransactionNo); !errors.Is(err, repository.ErrTransactionNotFound) {
		t.Errorf("expected ErrTransactionNotFound for foreign entry, got %v", err)
	}

	if _, err := svc.GetTransaction(ctx, 1, "TXN0"); !errors.Is(err, repository.ErrTransactionNotFound) {
		t.Errorf("expected ErrTransactionNotFound for unknown number, got %v", err)
	}
}

func TestListTransactions_Pagination(t *testing.T) {
	db := newTestDB(t)
	svc := NewWalletService(db, testConfig())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.AddPoints(ctx, 1, 10, "credit", model.ReferenceTypeOther, nil); err != nil {
			t.Fatalf("AddPoints failed: %v", err)
		}
	}

	list, total, err := svc.ListTransactions(ctx, 1, 1, 3)
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if total != 6 {
		t.Errorf("expected 6 total (welcome bonus + 5 credits), got %d", total)
	}
	if len(list) != 3 {
		t.Errorf("expected page of 3, got %d", len(list))
	}
}
