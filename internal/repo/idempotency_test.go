package repo

import (
	"context"
	"testing"
	"time"

	"github.com/anidigital/harvest-hub/internal/domain"
)

func TestGetIdempotency_NoScope_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	rec, err := GetIdempotency(context.Background(), db, "u1", "   ", "k1", time.Now().UTC())
	if rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for empty scope, got (%v, %v)", rec, err)
	}
}

func TestGetIdempotency_ExpiredOrMissing_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ts := time.Now().UTC()

	exp := &domain.Idempotency{
		ID:         "expired",
		UserID:     "u1",
		Scope:      "purchase",
		Key:        "k1",
		ResourceID: "o1",
		Status:     201,
		CreatedAt:  ts.Add(-2 * time.Hour),
		ExpiresAt:  ts.Add(-time.Hour),
	}
	if err := db.Create(exp).Error; err != nil {
		t.Fatalf("seed expired: %v", err)
	}

	if rec, err := GetIdempotency(context.Background(), db, "u1", "purchase", "k1", ts); rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for expired, got (%v, %v)", rec, err)
	}
	if rec, err := GetIdempotency(context.Background(), db, "u1", "purchase", "missing", ts); rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for missing, got (%v, %v)", rec, err)
	}

	n, err := PurgeExpiredIdempotency(context.Background(), db, ts)
	if err != nil || n != 1 {
		t.Fatalf("PurgeExpiredIdempotency = (%d, %v); want (1, nil)", n, err)
	}
}

func TestCreateAndGetIdempotency(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()
	start := time.Now().UTC()

	rec, err := CreateIdempotency(ctx, db, "u9", "order:o9:paid", "k9", "o9", 200, 90*time.Minute)
	if err != nil {
		t.Fatalf("CreateIdempotency error: %v", err)
	}
	if rec.ID == "" || rec.ResourceID != "o9" || rec.Status != 200 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !(rec.ExpiresAt.After(start) && rec.ExpiresAt.Before(start.Add(2*time.Hour))) {
		t.Fatalf("unexpected ExpiresAt: %v", rec.ExpiresAt)
	}

	got, err := GetIdempotency(ctx, db, "u9", "order:o9:paid", "k9", time.Now().UTC())
	if err != nil || got.ResourceID != "o9" {
		t.Fatalf("GetIdempotency = (%+v, %v)", got, err)
	}

	if _, err := CreateIdempotency(ctx, db, "u9", "order:o9:paid", "k9", "oX", 200, time.Hour); err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	// Another scope with the same key is a separate record.
	if _, err := CreateIdempotency(ctx, db, "u9", "purchase", "k9", "o10", 201, time.Hour); err != nil {
		t.Fatalf("different scope should succeed: %v", err)
	}
}

func TestCreateIdempotency_Error_NoTable(t *testing.T) {
	db := newTestDB(t)
	_, err := CreateIdempotency(context.Background(), db, "uX", "s", "kX", "rX", 200, time.Minute)
	if err == nil {
		t.Fatalf("expected error when table is missing")
	}
	if err == ErrDuplicate {
		t.Fatalf("expected non-duplicate error, got ErrDuplicate")
	}
}
