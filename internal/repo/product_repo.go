package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/anidigital/harvest-hub/internal/domain"
)

// ProductFilter narrows ListProducts. Zero values mean "no constraint".
type ProductFilter struct {
	Query    string
	Category string
	SellerID string
	ShopID   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	InStock  bool
	Limit    int
	Offset   int
}

// CreateProduct inserts p, filling ID and timestamps.
func CreateProduct(ctx context.Context, db *gorm.DB, p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	ts := now()
	p.CreatedAt, p.UpdatedAt = ts, ts
	return db.WithContext(ctx).Create(p).Error
}

// GetProduct fetches a product by id with its seller name, or ErrNotFound.
func GetProduct(ctx context.Context, db *gorm.DB, id string) (*domain.Product, error) {
	var p domain.Product
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	if err := fillSellerNames(ctx, db, []*domain.Product{&p}); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts returns products matching f, newest first. The free-text
// query is a case-insensitive substring match over name, description and
// the seller's full name.
func ListProducts(ctx context.Context, db *gorm.DB, f ProductFilter) ([]domain.Product, error) {
	q := db.WithContext(ctx).
		Model(&domain.Product{}).
		Select("products.*").
		Joins("LEFT JOIN profiles ON profiles.id = products.seller_id")

	if s := strings.ToLower(strings.TrimSpace(f.Query)); s != "" {
		like := "%" + escapeLike(s) + "%"
		q = q.Where(
			"LOWER(products.name) LIKE ? ESCAPE '\\' OR LOWER(products.description) LIKE ? ESCAPE '\\' OR LOWER(COALESCE(profiles.full_name, '')) LIKE ? ESCAPE '\\'",
			like, like, like,
		)
	}
	if f.Category != "" {
		q = q.Where("products.category = ?", f.Category)
	}
	if f.SellerID != "" {
		q = q.Where("products.seller_id = ?", f.SellerID)
	}
	if f.ShopID != "" {
		q = q.Where("products.shop_id = ?", f.ShopID)
	}
	if f.MinPrice != nil {
		q = q.Where("products.price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("products.price <= ?", *f.MaxPrice)
	}
	if f.InStock {
		q = q.Where("products.quantity > 0")
	}
	q = q.Order("products.created_at DESC, products.id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	var out []domain.Product
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	ptrs := make([]*domain.Product, len(out))
	for i := range out {
		ptrs[i] = &out[i]
	}
	if err := fillSellerNames(ctx, db, ptrs); err != nil {
		return nil, err
	}
	return out, nil
}

func fillSellerNames(ctx context.Context, db *gorm.DB, ps []*domain.Product) error {
	if len(ps) == 0 {
		return nil
	}
	seen := map[string]struct{}{}
	ids := make([]string, 0, len(ps))
	for _, p := range ps {
		if _, ok := seen[p.SellerID]; !ok {
			seen[p.SellerID] = struct{}{}
			ids = append(ids, p.SellerID)
		}
	}
	profiles, err := GetProfiles(ctx, db, ids)
	if err != nil {
		return err
	}
	for _, p := range ps {
		p.SellerName = profiles[p.SellerID].FullName
	}
	return nil
}

// UpdateProduct applies the given column updates to a product owned by
// sellerID. Returns ErrNotFound when nothing matched.
func UpdateProduct(ctx context.Context, db *gorm.DB, id, sellerID string, updates map[string]any) error {
	updates["updated_at"] = now()
	res := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ? AND seller_id = ?", id, sellerID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetProductQuantity overwrites the stock of a product.
func SetProductQuantity(ctx context.Context, db *gorm.DB, id string, qty decimal.Decimal) error {
	return db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{"quantity": qty, "updated_at": now()}).Error
}

// DeleteProduct removes a product owned by sellerID.
func DeleteProduct(ctx context.Context, db *gorm.DB, id, sellerID string) error {
	res := db.WithContext(ctx).Where("id = ? AND seller_id = ?", id, sellerID).Delete(&domain.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
