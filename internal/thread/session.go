// Package thread keeps a live view of one conversation on the client side:
// it loads the thread once, then polls for messages after a watermark and
// refreshes read state and orders on every tick.
package thread

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/anidigital/harvest-hub/internal/domain"
)

// DefaultInterval is the thread poll period.
const DefaultInterval = 3 * time.Second

// API is the subset of the HTTP client a Session needs.
type API interface {
	Header(ctx context.Context, conversationID string) (*domain.ConversationHeader, error)
	Messages(ctx context.Context, conversationID string, after *time.Time) ([]domain.MessageView, error)
	MarkRead(ctx context.Context, conversationID string) (int64, error)
	Orders(ctx context.Context, conversationID string) ([]domain.OrderView, error)
	SendText(ctx context.Context, conversationID, text string) (*domain.MessageView, error)
}

// Snapshot is a copy of the session state safe to read without locking.
type Snapshot struct {
	Header    *domain.ConversationHeader
	Messages  []domain.MessageView
	Orders    map[string]domain.OrderView
	Unread    int
	Watermark time.Time
}

// Session is the client-side state of one open thread. Safe for concurrent
// use; Run owns the poll loop.
type Session struct {
	api            API
	conversationID string
	viewerID       string
	interval       time.Duration
	log            zerolog.Logger

	// OnChange, when set, receives a snapshot after every state change.
	OnChange func(Snapshot)

	mu        sync.Mutex
	header    *domain.ConversationHeader
	messages  []domain.MessageView
	seen      map[string]struct{}
	orders    map[string]domain.OrderView
	watermark time.Time
}

// NewSession prepares a session for viewerID. A non-positive interval uses
// DefaultInterval.
func NewSession(api API, conversationID, viewerID string, interval time.Duration, log zerolog.Logger) *Session {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Session{
		api:            api,
		conversationID: conversationID,
		viewerID:       viewerID,
		interval:       interval,
		log:            log.With().Str("conversation_id", conversationID).Logger(),
		seen:           make(map[string]struct{}),
		orders:         make(map[string]domain.OrderView),
	}
}

// Start loads the header and full history, marks inbound messages read and
// loads the thread's orders.
func (s *Session) Start(ctx context.Context) error {
	hdr, err := s.api.Header(ctx, s.conversationID)
	if err != nil {
		return err
	}
	msgs, err := s.api.Messages(ctx, s.conversationID, nil)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		return ctx.Err()
	}
	s.header = hdr
	s.merge(msgs, true)
	s.mu.Unlock()

	s.refresh(ctx)
	s.notify(ctx)
	return nil
}

// Poll fetches messages after the watermark, then re-marks read and reloads
// orders. Fetch errors are returned; refresh errors are logged.
func (s *Session) Poll(ctx context.Context) error {
	s.mu.Lock()
	var after *time.Time
	if !s.watermark.IsZero() {
		w := s.watermark
		after = &w
	}
	s.mu.Unlock()

	msgs, err := s.api.Messages(ctx, s.conversationID, after)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		return ctx.Err()
	}
	changed := s.merge(msgs, true)
	s.mu.Unlock()

	if s.refresh(ctx) || changed {
		s.notify(ctx)
	}
	return nil
}

// Run starts the session and polls every interval until ctx is cancelled.
// Poll failures are logged and retried on the next tick.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Poll(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn().Err(err).Msg("thread poll failed")
			}
		}
	}
}

// Send posts a text message and shows it immediately. The watermark is left
// to the poll loop so a peer message committed just before ours is not
// skipped; the echo from the next poll is dropped by id.
func (s *Session) Send(ctx context.Context, text string) (*domain.MessageView, error) {
	m, err := s.api.SendText(ctx, s.conversationID, text)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		return m, nil
	}
	s.merge([]domain.MessageView{*m}, false)
	s.mu.Unlock()
	s.notify(ctx)
	return m, nil
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	msgs := make([]domain.MessageView, len(s.messages))
	copy(msgs, s.messages)
	orders := make(map[string]domain.OrderView, len(s.orders))
	for k, v := range s.orders {
		orders[k] = v
	}
	return Snapshot{
		Header:    s.header,
		Messages:  msgs,
		Orders:    orders,
		Unread:    s.unreadLocked(),
		Watermark: s.watermark,
	}
}

// merge adds unseen messages in (created_at, id) order and, when advance is
// set, moves the watermark forward. Caller holds mu.
func (s *Session) merge(msgs []domain.MessageView, advance bool) bool {
	added := false
	for _, m := range msgs {
		if advance && m.CreatedAt.After(s.watermark) {
			s.watermark = m.CreatedAt
		}
		if _, dup := s.seen[m.ID]; dup {
			continue
		}
		s.seen[m.ID] = struct{}{}
		s.messages = append(s.messages, m)
		added = true
	}
	if added {
		sort.SliceStable(s.messages, func(i, j int) bool {
			a, b := s.messages[i], s.messages[j]
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		})
	}
	return added
}

// refresh marks inbound messages read and reloads orders. It reports whether
// visible state changed.
func (s *Session) refresh(ctx context.Context) bool {
	changed := false

	if _, err := s.api.MarkRead(ctx, s.conversationID); err != nil {
		if ctx.Err() == nil {
			s.log.Warn().Err(err).Msg("mark read failed")
		}
	} else {
		s.mu.Lock()
		if ctx.Err() == nil {
			now := time.Now().UTC()
			for i := range s.messages {
				m := &s.messages[i]
				if m.SenderID != s.viewerID && m.ReadAt == nil {
					m.ReadAt = &now
					changed = true
				}
			}
		}
		s.mu.Unlock()
	}

	orders, err := s.api.Orders(ctx, s.conversationID)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn().Err(err).Msg("order reload failed")
		}
		return changed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return changed
	}
	for _, o := range orders {
		if prev, ok := s.orders[o.ID]; !ok || prev.Status != o.Status || len(prev.Actions) != len(o.Actions) {
			changed = true
		}
		s.orders[o.ID] = o
	}
	return changed
}

func (s *Session) unreadLocked() int {
	n := 0
	for _, m := range s.messages {
		if m.SenderID != s.viewerID && m.ReadAt == nil {
			n++
		}
	}
	return n
}

func (s *Session) notify(ctx context.Context) {
	if s.OnChange == nil || ctx.Err() != nil {
		return
	}
	s.OnChange(s.Snapshot())
}
