package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anidigital/harvest-hub/internal/domain"
)

// TransactionFilter narrows ListTransactions. Dates are inclusive
// YYYY-MM-DD strings; empty means unbounded.
type TransactionFilter struct {
	From string
	To   string
	Type string
}

// CreateTransaction inserts a ledger row.
func CreateTransaction(ctx context.Context, db *gorm.DB, t *domain.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = now()
	return db.WithContext(ctx).Create(t).Error
}

// ListTransactions returns userID's ledger rows, newest date first.
func ListTransactions(ctx context.Context, db *gorm.DB, userID string, f TransactionFilter) ([]domain.Transaction, error) {
	q := db.WithContext(ctx).Where("user_id = ?", userID)
	if f.From != "" {
		q = q.Where("date >= ?", f.From)
	}
	if f.To != "" {
		q = q.Where("date <= ?", f.To)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	var out []domain.Transaction
	err := q.Order("date DESC, created_at DESC, id DESC").Find(&out).Error
	return out, err
}

// ListTransactionsByOrder returns the rows generated for an order.
func ListTransactionsByOrder(ctx context.Context, db *gorm.DB, orderID string) ([]domain.Transaction, error) {
	var out []domain.Transaction
	err := db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at ASC, id ASC").Find(&out).Error
	return out, err
}

// DeleteTransaction removes a row owned by userID, or returns ErrNotFound.
func DeleteTransaction(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Transaction{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
