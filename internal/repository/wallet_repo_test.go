package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"playportal/internal/infrastructure/database"
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
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func TestCreateIfAbsent(t *testing.T) {
	db := newTestDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()

	wallet, created, err := repo.CreateIfAbsent(ctx, nil, 1)
	if err != nil {
		t.Fatalf("CreateIfAbsent failed: %v", err)
	}
	if !created {
		t.Error("expected created=true on first call")
	}
	if wallet.Balance != 0 {
		t.Errorf("expected zero balance, got %d", wallet.Balance)
	}

	again, created, err := repo.CreateIfAbsent(ctx, nil, 1)
	if err != nil {
		t.Fatalf("second CreateIfAbsent failed: %v", err)
	}
	if created {
		t.Error("expected created=false on second call")
	}
	if again.ID != wallet.ID {
		t.Errorf("expected the same wallet row, got %d and %d", wallet.ID, again.ID)
	}
}

func TestApplyDelta_VersionGuard(t *testing.T) {
	db := newTestDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()

	wallet, _, err := repo.CreateIfAbsent(ctx, nil, 1)
	if err != nil {
		t.Fatalf("CreateIfAbsent failed: %v", err)
	}

	if err := repo.ApplyDelta(ctx, nil, wallet.ID, 100, 0, wallet.Version); err != nil {
		t.Fatalf("ApplyDelta failed: %v", err)
	}

	// A second write against the stale version must lose cleanly.
	err = repo.ApplyDelta(ctx, nil, wallet.ID, 50, 0, wallet.Version)
	if !errors.Is(err, ErrOptimisticLock) {
		t.Fatalf("expected ErrOptimisticLock for stale version, got %v", err)
	}

	current, err := repo.GetByUserID(ctx, nil, 1)
	if err != nil {
		t.Fatalf("GetByUserID failed: %v", err)
	}
	if current.Balance != 100 {
		t.Errorf("expected balance 100 after one applied delta, got %d", current.Balance)
	}
	if current.Version != wallet.Version+1 {
		t.Errorf("expected version bump to %d, got %d", wallet.Version+1, current.Version)
	}
	if current.TotalEarned != 100 {
		t.Errorf("expected total_earned 100, got %d", current.TotalEarned)
	}
}

func TestApplyDelta_Floor(t *testing.T) {
	db := newTestDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()

	wallet, _, err := repo.CreateIfAbsent(ctx, nil, 1)
	if err != nil {
		t.Fatalf("CreateIfAbsent failed: %v", err)
	}
	if err := repo.ApplyDelta(ctx, nil, wallet.ID, 100, 0, wallet.Version); err != nil {
		t.Fatalf("seed credit failed: %v", err)
	}

	current, err := repo.GetByUserID(ctx, nil, 1)
	if err != nil {
		t.Fatalf("GetByUserID failed: %v", err)
	}

	// Overdraft is insufficient balance, not a version conflict.
	err = repo.ApplyDelta(ctx, nil, wallet.ID, -200, 0, current.Version)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// Down to exactly the floor is allowed.
	if err := repo.ApplyDelta(ctx, nil, wallet.ID, -100, 0, current.Version); err != nil {
		t.Fatalf("debit to floor failed: %v", err)
	}

	current, err = repo.GetByUserID(ctx, nil, 1)
	if err != nil {
		t.Fatalf("GetByUserID failed: %v", err)
	}
	if current.Balance != 0 {
		t.Errorf("expected balance 0, got %d", current.Balance)
	}
	if current.TotalSpent != 100 {
		t.Errorf("expected total_spent 100, got %d", current.TotalSpent)
	}
}
