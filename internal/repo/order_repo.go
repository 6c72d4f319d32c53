package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anidigital/harvest-hub/internal/domain"
)

// CreateOrder inserts o in the requested state. ID and timestamps are filled
// in when empty.
func CreateOrder(ctx context.Context, db *gorm.DB, o *domain.ChatOrder) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	ts := now()
	o.Status = domain.OrderRequested
	o.CreatedAt, o.UpdatedAt = ts, ts
	return db.WithContext(ctx).Create(o).Error
}

// GetOrder fetches an order by id, or ErrNotFound.
func GetOrder(ctx context.Context, db *gorm.DB, id string) (*domain.ChatOrder, error) {
	var o domain.ChatOrder
	if err := db.WithContext(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOrdersByConversation returns every order of the conversation, oldest first.
func ListOrdersByConversation(ctx context.Context, db *gorm.DB, conversationID string) ([]domain.ChatOrder, error) {
	var out []domain.ChatOrder
	err := db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// TransitionOrder moves the order to `to` only if its current status is one
// of from. It returns false when no row matched, which means the order is
// missing or was already moved by someone else.
func TransitionOrder(ctx context.Context, db *gorm.DB, id string, from []domain.OrderStatus, to domain.OrderStatus, at time.Time) (bool, error) {
	updates := map[string]any{"status": to, "updated_at": at}
	if to == domain.OrderPaid {
		updates["paid_at"] = at
	}
	res := db.WithContext(ctx).
		Model(&domain.ChatOrder{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ProductHasOrders reports whether any order references the product.
func ProductHasOrders(ctx context.Context, db *gorm.DB, productID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.ChatOrder{}).
		Where("product_id = ?", productID).
		Limit(1).
		Count(&n).Error
	return n > 0, err
}
