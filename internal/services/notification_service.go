// Package services – NotificationService
//
// NotificationService exposes a user's notification inbox. Notifications
// are written by the other services as side effects of orders and payments.

package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/anidigital/harvest-hub/internal/domain"
	"github.com/anidigital/harvest-hub/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MaxNotifications caps one listing.
const MaxNotifications = 100

// NotificationService reads and acknowledges notifications.
type NotificationService struct {
	DB *gorm.DB
}

// List returns the newest notifications of userID.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Bool("unread_only", unreadOnly),
		),
	)
	defer span.End()

	if limit <= 0 || limit > MaxNotifications {
		limit = MaxNotifications
	}
	return repo.ListNotifications(ctx, s.DB, userID, unreadOnly, limit)
}

// UnreadCount returns the number of unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "UnreadCount", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()
	return repo.CountUnreadNotifications(ctx, s.DB, userID)
}

// MarkRead acknowledges one notification.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "MarkRead",
		trace.WithAttributes(
			attribute.String("notification.id", id),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	if err := repo.MarkNotificationRead(ctx, s.DB, id, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotificationNotFound
		}
		return err
	}
	return nil
}

// MarkAllRead acknowledges every unread notification and returns how many
// changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "MarkAllRead", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()
	return repo.MarkAllNotificationsRead(ctx, s.DB, userID)
}
