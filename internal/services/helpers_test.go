package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/anidigital/harvest-hub/internal/domain"
	"github.com/anidigital/harvest-hub/internal/repo"
)

// pngBytes is the smallest header mimetype recognises as image/png.
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("svc_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return db
}

// fakeStore records object store calls.
type fakeStore struct {
	mu      sync.Mutex
	puts    []string
	deletes []string
	putErr  error
	delErr  error
}

func (f *fakeStore) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	f.puts = append(f.puts, key)
	return "https://cdn.test/" + key, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, key)
	return f.delErr
}

func (f *fakeStore) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}

var errStore = errors.New("store down")

type fixture struct {
	db       *gorm.DB
	store    *fakeStore
	convs    *ConversationService
	thread   *ThreadService
	orders   *OrderService
	payments *PaymentService
	products *ProductService
	shops    *ShopService
	ledger   *LedgerService
	notes    *NotificationService
	profiles *ProfileService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	st := &fakeStore{}
	log := zerolog.Nop()
	orders := &OrderService{DB: db, Log: log}
	return &fixture{
		db:       db,
		store:    st,
		convs:    &ConversationService{DB: db},
		thread:   &ThreadService{DB: db, Store: st, Log: log, MaxMessageRunes: 200},
		orders:   orders,
		payments: &PaymentService{Orders: orders, Store: st},
		products: &ProductService{DB: db, Store: st, Log: log},
		shops:    &ShopService{DB: db, Store: st, Log: log},
		ledger:   &LedgerService{DB: db},
		notes:    &NotificationService{DB: db},
		profiles: &ProfileService{DB: db},
	}
}

func (f *fixture) seedProduct(t *testing.T, seller, name string, price, qty int64) *domain.Product {
	t.Helper()
	p := &domain.Product{
		SellerID: seller,
		Name:     name,
		Category: "Vegetables",
		Price:    decimal.NewFromInt(price),
		Quantity: decimal.NewFromInt(qty),
		Unit:     "kg",
	}
	if err := repo.CreateProduct(context.Background(), f.db, p); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

// count returns the number of rows in model's table matching where.
func (f *fixture) count(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	q := f.db.Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
