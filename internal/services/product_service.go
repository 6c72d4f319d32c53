// Package services – ProductService
//
// ProductService manages marketplace listings: filtered browsing with
// optional relevance ranking, seller-owned create/update, and deletion that
// is refused while any chat order references the listing.

package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/anidigital/harvest-hub/internal/domain"
	"github.com/anidigital/harvest-hub/internal/repo"
	"github.com/anidigital/harvest-hub/internal/search"
	"github.com/anidigital/harvest-hub/internal/storage"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ProductCategories are the listing categories sellers may pick from.
var ProductCategories = []string{
	"Vegetables",
	"Fruits",
	"Grains",
	"Root Crops",
	"Herbs",
	"Livestock",
	"Poultry",
	"Fishery",
	"Dairy",
	"Others",
}

// IsProductCategory reports whether s names a known category, ignoring case
// and extra whitespace.
func IsProductCategory(s string) bool {
	c := CanonicalCategory(s)
	for _, known := range ProductCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Sort orders for product listings.
const (
	SortNewest    = "newest"
	SortRelevance = "relevance"
)

// ProductQuery is a listing request.
type ProductQuery struct {
	repo.ProductFilter
	Sort string
}

// ProductInput carries the fields of a new listing.
type ProductInput struct {
	Name        string
	Description string
	Category    string
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	Unit        string
}

// ProductUpdate carries a partial edit; nil fields are left unchanged.
type ProductUpdate struct {
	Name        *string
	Description *string
	Category    *string
	Price       *decimal.Decimal
	Quantity    *decimal.Decimal
	Unit        *string
}

// ProductService coordinates marketplace listings.
type ProductService struct {
	DB    *gorm.DB
	Store storage.Store
	Log   zerolog.Logger
}

// List returns listings matching q. With Sort == SortRelevance and a text
// query the matches are re-ranked by token overlap; otherwise newest first.
func (s *ProductService) List(ctx context.Context, q ProductQuery) ([]domain.Product, error) {
	tr := otel.Tracer("services/ProductService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("query", q.Query),
			attribute.String("category", q.Category),
			attribute.String("sort", q.Sort),
		),
	)
	defer span.End()

	if q.Category != "" {
		q.Category = CanonicalCategory(q.Category)
	}
	items, err := repo.ListProducts(ctx, s.DB, q.ProductFilter)
	if err != nil {
		return nil, err
	}
	if q.Sort == SortRelevance && strings.TrimSpace(q.Query) != "" && len(items) > 1 {
		items = rankProducts(items, q.Query)
	}
	span.SetAttributes(attribute.Int("products.count", len(items)))
	return items, nil
}

// listingStopwords are words nearly every listing carries.
var listingStopwords = []string{"a", "an", "and", "the", "of", "for", "per", "kg", "fresh"}

func rankProducts(items []domain.Product, query string) []domain.Product {
	docs := make([]search.Document, len(items))
	byID := make(map[string]domain.Product, len(items))
	for i, p := range items {
		docs[i] = search.Document{ID: p.ID, Title: p.Name, Body: strings.Join([]string{p.Category, p.Description, p.SellerName}, " ")}
		byID[p.ID] = p
	}
	idx := search.NewIndex(docs, search.WithKeepAll(), search.WithStopwords(listingStopwords...))
	out := make([]domain.Product, 0, len(items))
	for _, r := range idx.TopK(query, 0) {
		out = append(out, byID[r.ID])
	}
	return out
}

// Get returns one listing.
func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	tr := otel.Tracer("services/ProductService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("product.id", id)))
	defer span.End()

	p, err := repo.GetProduct(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

// Create validates and stores a listing for sellerID, attaching it to the
// seller's shop when one exists. image is optional.
func (s *ProductService) Create(ctx context.Context, sellerID string, in ProductInput, image []byte) (*domain.Product, error) {
	tr := otel.Tracer("services/ProductService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("user.id", sellerID),
			attribute.Bool("image", len(image) > 0),
		),
	)
	defer span.End()

	p := &domain.Product{
		SellerID:    sellerID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Category:    CanonicalCategory(in.Category),
		Price:       in.Price,
		Quantity:    in.Quantity,
		Unit:        strings.TrimSpace(in.Unit),
	}
	if p.Unit == "" {
		p.Unit = "kg"
	}
	if p.Name == "" || !IsProductCategory(p.Category) || !p.Price.IsPositive() || p.Quantity.IsNegative() {
		return nil, ErrInvalidInput
	}
	if len(image) > 0 {
		if _, err := storage.ValidateImage(image); err != nil {
			return nil, err
		}
	}

	shop, err := repo.GetShopByOwner(ctx, s.DB, sellerID)
	switch {
	case err == nil:
		p.ShopID = &shop.ID
	case !errors.Is(err, repo.ErrNotFound):
		return nil, err
	}

	if len(image) > 0 {
		obj, err := storage.UploadImage(ctx, s.Store, storage.BucketProductImages, image)
		if err != nil {
			return nil, err
		}
		p.ImageURL, p.ImageKey = obj.URL, obj.Key
	}
	if err := repo.CreateProduct(ctx, s.DB, p); err != nil {
		s.dropImage(ctx, p.ImageKey)
		return nil, err
	}
	return p, nil
}

// Update applies a partial edit to a listing owned by sellerID.
func (s *ProductService) Update(ctx context.Context, sellerID, id string, in ProductUpdate) (*domain.Product, error) {
	tr := otel.Tracer("services/ProductService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(
			attribute.String("product.id", id),
			attribute.String("user.id", sellerID),
		),
	)
	defer span.End()

	if _, err := s.owned(ctx, sellerID, id); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, ErrInvalidInput
		}
		updates["name"] = name
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		if !IsProductCategory(*in.Category) {
			return nil, ErrInvalidInput
		}
		updates["category"] = CanonicalCategory(*in.Category)
	}
	if in.Price != nil {
		if !in.Price.IsPositive() {
			return nil, ErrInvalidInput
		}
		updates["price"] = *in.Price
	}
	if in.Quantity != nil {
		if in.Quantity.IsNegative() {
			return nil, ErrInvalidInput
		}
		updates["quantity"] = *in.Quantity
	}
	if in.Unit != nil && strings.TrimSpace(*in.Unit) != "" {
		updates["unit"] = strings.TrimSpace(*in.Unit)
	}
	if len(updates) > 0 {
		if err := repo.UpdateProduct(ctx, s.DB, id, sellerID, updates); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, ErrProductNotFound
			}
			return nil, err
		}
	}
	return s.Get(ctx, id)
}

// Delete removes a listing owned by sellerID. Listings referenced by any
// chat order are kept and ErrProductHasOrders is returned. The stored image
// is removed best-effort.
func (s *ProductService) Delete(ctx context.Context, sellerID, id string) error {
	tr := otel.Tracer("services/ProductService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.String("product.id", id),
			attribute.String("user.id", sellerID),
		),
	)
	defer span.End()

	p, err := s.owned(ctx, sellerID, id)
	if err != nil {
		return err
	}
	has, err := repo.ProductHasOrders(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if has {
		return ErrProductHasOrders
	}
	if err := repo.DeleteProduct(ctx, s.DB, id, sellerID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	s.dropImage(ctx, p.ImageKey)
	return nil
}

func (s *ProductService) owned(ctx context.Context, sellerID, id string) (*domain.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.SellerID != sellerID {
		return nil, ErrForbidden
	}
	return p, nil
}

func (s *ProductService) dropImage(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.Store.Delete(ctx, key); err != nil {
		s.Log.Warn().Err(err).Str("key", key).Msg("product image not deleted")
	}
}
