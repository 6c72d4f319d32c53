package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/anidigital/harvest-hub/internal/domain"
)

func TestNotifications_UnreadLifecycle(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()

	n1, err := CreateNotification(ctx, db, "u1", "Payment Sent", "You paid 120.00", domain.NotifyTransaction)
	if err != nil {
		t.Fatalf("CreateNotification: %v", err)
	}
	if _, err := CreateNotification(ctx, db, "u1", "New order", "Tomatoes x3", domain.NotifyOrder); err != nil {
		t.Fatalf("CreateNotification: %v", err)
	}
	if _, err := CreateNotification(ctx, db, "u2", "Other", "", domain.NotifySystem); err != nil {
		t.Fatalf("CreateNotification: %v", err)
	}

	if c, err := CountUnreadNotifications(ctx, db, "u1"); err != nil || c != 2 {
		t.Fatalf("unread = (%d, %v); want 2", c, err)
	}
	if err := MarkNotificationRead(ctx, db, n1.ID, "u2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign mark should be ErrNotFound, got %v", err)
	}
	if err := MarkNotificationRead(ctx, db, n1.ID, "u1"); err != nil {
		t.Fatalf("MarkNotificationRead: %v", err)
	}
	unread, _ := ListNotifications(ctx, db, "u1", true, 0)
	if len(unread) != 1 || unread[0].Title != "New order" {
		t.Fatalf("unread list = %+v", unread)
	}

	n, err := MarkAllNotificationsRead(ctx, db, "u1")
	if err != nil || n != 1 {
		t.Fatalf("MarkAllNotificationsRead = (%d, %v); want 1", n, err)
	}
	if c, _ := CountUnreadNotifications(ctx, db, "u1"); c != 0 {
		t.Fatalf("expected 0 unread, got %d", c)
	}
	all, _ := ListNotifications(ctx, db, "u1", false, 1)
	if len(all) != 1 {
		t.Fatalf("limit not applied: %d", len(all))
	}
}
