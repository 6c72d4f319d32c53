package thread

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/anidigital/harvest-hub/internal/domain"
)

// DefaultNotificationInterval is the notification poll period.
const DefaultNotificationInterval = 5 * time.Second

// NotificationAPI is the subset of the HTTP client a Notifier needs.
type NotificationAPI interface {
	Notifications(ctx context.Context, unreadOnly bool, limit int) ([]domain.Notification, error)
}

// Notifier polls unread notifications and reports each one once.
type Notifier struct {
	api      NotificationAPI
	interval time.Duration
	log      zerolog.Logger

	// OnNew receives notifications not reported before, oldest first.
	OnNew func([]domain.Notification)

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewNotifier builds a notifier. A non-positive interval uses
// DefaultNotificationInterval.
func NewNotifier(api NotificationAPI, interval time.Duration, log zerolog.Logger) *Notifier {
	if interval <= 0 {
		interval = DefaultNotificationInterval
	}
	return &Notifier{api: api, interval: interval, log: log, seen: make(map[string]struct{})}
}

// Poll fetches unread notifications and returns the unseen ones.
func (n *Notifier) Poll(ctx context.Context) ([]domain.Notification, error) {
	list, err := n.api.Notifications(ctx, true, 50)
	if err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	var fresh []domain.Notification
	// The feed is newest first.
	for i := len(list) - 1; i >= 0; i-- {
		if _, ok := n.seen[list[i].ID]; ok {
			continue
		}
		n.seen[list[i].ID] = struct{}{}
		fresh = append(fresh, list[i])
	}
	return fresh, nil
}

// Run polls immediately and then every interval until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) error {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()
	for {
		fresh, err := n.Poll(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			n.log.Warn().Err(err).Msg("notification poll failed")
		case len(fresh) > 0 && n.OnNew != nil:
			n.OnNew(fresh)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
