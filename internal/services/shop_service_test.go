package services

import (
	"context"
	"errors"
	"testing"
)

func strp(s string) *string { return &s }

func TestShopCreate_OnePerOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.shops.Create(ctx, "owner", ShopInput{Name: strp("  ")}, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank name: %v", err)
	}
	shop, err := f.shops.Create(ctx, "owner", ShopInput{Name: strp("Green Acres"), Location: strp("Benguet")}, pngBytes)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if shop.BannerKey == "" || shop.BannerURL == "" || shop.Location != "Benguet" {
		t.Fatalf("shop %+v", shop)
	}
	if _, err := f.shops.Create(ctx, "owner", ShopInput{Name: strp("Second")}, pngBytes); !errors.Is(err, ErrShopExists) {
		t.Fatalf("second shop: %v", err)
	}
	if f.store.putCount() != 1 {
		t.Fatalf("banner uploads = %d", f.store.putCount())
	}
}

func TestShopGetAndMine_IncludeProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shop, err := f.shops.Create(ctx, "owner", ShopInput{Name: strp("Green Acres")}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.seedProduct(t, "owner", "Lettuce", 60, 4)

	d, err := f.shops.Get(ctx, shop.ID)
	if err != nil || len(d.Products) != 1 || d.Products[0].Name != "Lettuce" {
		t.Fatalf("Get: %+v err=%v", d, err)
	}
	mine, err := f.shops.Mine(ctx, "owner")
	if err != nil || mine.ID != shop.ID {
		t.Fatalf("Mine: %+v err=%v", mine, err)
	}
	if _, err := f.shops.Mine(ctx, "nobody"); !errors.Is(err, ErrShopNotFound) {
		t.Fatalf("Mine for nobody: %v", err)
	}
	if _, err := f.shops.Get(ctx, "missing"); !errors.Is(err, ErrShopNotFound) {
		t.Fatalf("Get missing: %v", err)
	}
	list, err := f.shops.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("List: %d err=%v", len(list), err)
	}
}

func TestShopUpdate_ReplacesBanner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shop, err := f.shops.Create(ctx, "owner", ShopInput{Name: strp("Green Acres")}, pngBytes)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	oldKey := shop.BannerKey

	if _, err := f.shops.Update(ctx, "intruder", shop.ID, ShopInput{Name: strp("Mine now")}, nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("intruder update: %v", err)
	}
	got, err := f.shops.Update(ctx, "owner", shop.ID, ShopInput{Description: strp("Highland veggies")}, pngBytes)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Description != "Highland veggies" || got.BannerKey == oldKey || got.Name != "Green Acres" {
		t.Fatalf("updated %+v", got)
	}
	if len(f.store.deletes) != 1 || f.store.deletes[0] != oldKey {
		t.Fatalf("old banner not removed: %v", f.store.deletes)
	}
}
