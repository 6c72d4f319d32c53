// Package services – ShopService
//
// ShopService manages seller storefronts. A seller owns at most one shop;
// the shop page lists the seller's products.

package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/anidigital/harvest-hub/internal/domain"
	"github.com/anidigital/harvest-hub/internal/repo"
	"github.com/anidigital/harvest-hub/internal/storage"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ShopInput carries shop fields for create and update. On update nil
// fields are left unchanged.
type ShopInput struct {
	Name        *string
	Description *string
	Location    *string
}

// ShopDetail is a shop with its listings.
type ShopDetail struct {
	domain.Shop
	Products []domain.Product `json:"products"`
}

// ShopService coordinates storefronts.
type ShopService struct {
	DB    *gorm.DB
	Store storage.Store
	Log   zerolog.Logger
}

// List returns all shops.
func (s *ShopService) List(ctx context.Context) ([]domain.Shop, error) {
	tr := otel.Tracer("services/ShopService")
	ctx, span := tr.Start(ctx, "List")
	defer span.End()
	return repo.ListShops(ctx, s.DB)
}

// Get returns a shop and its products.
func (s *ShopService) Get(ctx context.Context, id string) (*ShopDetail, error) {
	tr := otel.Tracer("services/ShopService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("shop.id", id)))
	defer span.End()

	shop, err := repo.GetShop(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrShopNotFound
		}
		return nil, err
	}
	return s.detail(ctx, shop)
}

// Mine returns the caller's shop.
func (s *ShopService) Mine(ctx context.Context, ownerID string) (*ShopDetail, error) {
	tr := otel.Tracer("services/ShopService")
	ctx, span := tr.Start(ctx, "Mine", trace.WithAttributes(attribute.String("user.id", ownerID)))
	defer span.End()

	shop, err := repo.GetShopByOwner(ctx, s.DB, ownerID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrShopNotFound
		}
		return nil, err
	}
	return s.detail(ctx, shop)
}

func (s *ShopService) detail(ctx context.Context, shop *domain.Shop) (*ShopDetail, error) {
	products, err := repo.ListProducts(ctx, s.DB, repo.ProductFilter{SellerID: shop.OwnerID})
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	return &ShopDetail{Shop: *shop, Products: products}, nil
}

// Create opens ownerID's shop. banner is optional.
func (s *ShopService) Create(ctx context.Context, ownerID string, in ShopInput, banner []byte) (*domain.Shop, error) {
	tr := otel.Tracer("services/ShopService")
	ctx, span := tr.Start(ctx, "Create", trace.WithAttributes(attribute.String("user.id", ownerID)))
	defer span.End()

	shop := &domain.Shop{OwnerID: ownerID}
	if in.Name != nil {
		shop.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		shop.Description = strings.TrimSpace(*in.Description)
	}
	if in.Location != nil {
		shop.Location = strings.TrimSpace(*in.Location)
	}
	if shop.Name == "" {
		return nil, ErrInvalidInput
	}
	if len(banner) > 0 {
		if _, err := storage.ValidateImage(banner); err != nil {
			return nil, err
		}
	}

	if _, err := repo.GetShopByOwner(ctx, s.DB, ownerID); err == nil {
		return nil, ErrShopExists
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	if len(banner) > 0 {
		obj, err := storage.UploadImage(ctx, s.Store, storage.BucketShopBanners, banner)
		if err != nil {
			return nil, err
		}
		shop.BannerURL, shop.BannerKey = obj.URL, obj.Key
	}
	if err := repo.CreateShop(ctx, s.DB, shop); err != nil {
		s.dropBanner(ctx, shop.BannerKey)
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrShopExists
		}
		return nil, err
	}
	return shop, nil
}

// Update edits a shop owned by ownerID. A new banner replaces the old one,
// which is then removed best-effort.
func (s *ShopService) Update(ctx context.Context, ownerID, id string, in ShopInput, banner []byte) (*domain.Shop, error) {
	tr := otel.Tracer("services/ShopService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(
			attribute.String("shop.id", id),
			attribute.String("user.id", ownerID),
		),
	)
	defer span.End()

	shop, err := repo.GetShop(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrShopNotFound
		}
		return nil, err
	}
	if shop.OwnerID != ownerID {
		return nil, ErrForbidden
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
	if in.Location != nil {
		updates["location"] = strings.TrimSpace(*in.Location)
	}

	oldKey := ""
	if len(banner) > 0 {
		obj, err := storage.UploadImage(ctx, s.Store, storage.BucketShopBanners, banner)
		if err != nil {
			return nil, err
		}
		updates["banner_url"], updates["banner_key"] = obj.URL, obj.Key
		oldKey = shop.BannerKey
	}
	if len(updates) == 0 {
		return shop, nil
	}
	if err := repo.UpdateShop(ctx, s.DB, id, ownerID, updates); err != nil {
		if key, ok := updates["banner_key"].(string); ok {
			s.dropBanner(ctx, key)
		}
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrShopNotFound
		}
		return nil, err
	}
	s.dropBanner(ctx, oldKey)

	shop, err = repo.GetShop(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	return shop, nil
}

func (s *ShopService) dropBanner(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.Store.Delete(ctx, key); err != nil {
		s.Log.Warn().Err(err).Str("key", key).Msg("shop banner not deleted")
	}
}
