package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anidigital/harvest-hub/internal/domain"
)

// CreateShop inserts s. A second shop for the same owner yields ErrDuplicate.
func CreateShop(ctx context.Context, db *gorm.DB, s *domain.Shop) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	ts := now()
	s.CreatedAt, s.UpdatedAt = ts, ts
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetShop fetches a shop by id, or ErrNotFound.
func GetShop(ctx context.Context, db *gorm.DB, id string) (*domain.Shop, error) {
	var s domain.Shop
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// GetShopByOwner fetches the shop owned by ownerID, or ErrNotFound.
func GetShopByOwner(ctx context.Context, db *gorm.DB, ownerID string) (*domain.Shop, error) {
	var s domain.Shop
	if err := db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ListShops returns all shops, newest first.
func ListShops(ctx context.Context, db *gorm.DB) ([]domain.Shop, error) {
	var out []domain.Shop
	err := db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}

// UpdateShop applies updates to a shop owned by ownerID.
func UpdateShop(ctx context.Context, db *gorm.DB, id, ownerID string, updates map[string]any) error {
	updates["updated_at"] = now()
	res := db.WithContext(ctx).
		Model(&domain.Shop{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
