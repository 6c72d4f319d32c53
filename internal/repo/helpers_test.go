package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/anidigital/harvest-hub/internal/domain"
)

// newTestDB opens a fresh file-backed database per test. With no models the
// schema stays empty, which lets tests exercise the missing-table paths.
func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func newMigratedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := newTestDB(t)
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return db
}

func seedProfile(t *testing.T, db *gorm.DB, id, name string) {
	t.Helper()
	if err := UpsertProfile(context.Background(), db, &domain.Profile{ID: id, FullName: name}); err != nil {
		t.Fatalf("seed profile %s: %v", id, err)
	}
}

func seedProduct(t *testing.T, db *gorm.DB, seller, name string, price, qty int64) *domain.Product {
	t.Helper()
	p := &domain.Product{
		SellerID: seller,
		Name:     name,
		Category: "Vegetables",
		Price:    decimal.NewFromInt(price),
		Quantity: decimal.NewFromInt(qty),
		Unit:     "kg",
	}
	if err := CreateProduct(context.Background(), db, p); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func seedConversation(t *testing.T, db *gorm.DB, a, b string) *domain.Conversation {
	t.Helper()
	c, _, err := GetOrCreateConversation(context.Background(), db, a, b, "", "")
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	return c
}
