package thread

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/anidigital/harvest-hub/internal/domain"
)

// fakeAPI serves messages from an in-memory log and records calls.
type fakeAPI struct {
	mu       sync.Mutex
	msgs     []domain.MessageView
	orders   []domain.OrderView
	afters   []*time.Time
	reads    int
	orderGet int
	fetchErr error
	onFetch  func()
	nextID   int
}

func (f *fakeAPI) Header(context.Context, string) (*domain.ConversationHeader, error) {
	return &domain.ConversationHeader{
		Conversation: domain.Conversation{ID: "c1"},
		Other:        domain.PublicProfile{ID: "seller", FullName: "Maria"},
	}, nil
}

func (f *fakeAPI) Messages(_ context.Context, _ string, after *time.Time) ([]domain.MessageView, error) {
	f.mu.Lock()
	f.afters = append(f.afters, after)
	err := f.fetchErr
	var out []domain.MessageView
	for _, m := range f.msgs {
		if after == nil || m.CreatedAt.After(*after) {
			out = append(out, m)
		}
	}
	hook := f.onFetch
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeAPI) MarkRead(context.Context, string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	return 0, nil
}

func (f *fakeAPI) Orders(context.Context, string) ([]domain.OrderView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderGet++
	return append([]domain.OrderView(nil), f.orders...), nil
}

func (f *fakeAPI) SendText(_ context.Context, _ string, text string) (*domain.MessageView, error) {
	m := f.add("buyer", text, t0.Add(time.Hour))
	return &m, nil
}

func (f *fakeAPI) add(sender, text string, at time.Time) domain.MessageView {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	m := domain.MessageView{
		ID:        string(rune('a'+f.nextID-1)) + "-msg",
		SenderID:  sender,
		CreatedAt: at,
		Body:      domain.ParseContent(text),
	}
	f.msgs = append(f.msgs, m)
	return m
}

var t0 = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

func newSession(api *fakeAPI) *Session {
	return NewSession(api, "c1", "buyer", time.Hour, zerolog.Nop())
}

func TestStart_LoadsEverything(t *testing.T) {
	api := &fakeAPI{}
	api.add("seller", "hello", t0)
	api.add("buyer", "hi", t0.Add(time.Second))
	api.add("seller", "order:o1", t0.Add(2*time.Second))
	api.orders = []domain.OrderView{{ChatOrder: domain.ChatOrder{ID: "o1", Status: domain.OrderRequested}}}

	s := newSession(api)
	var changes int
	s.OnChange = func(Snapshot) { changes++ }
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	snap := s.Snapshot()
	if snap.Header == nil || snap.Header.Other.FullName != "Maria" {
		t.Fatalf("header = %+v", snap.Header)
	}
	if len(snap.Messages) != 3 || !snap.Watermark.Equal(t0.Add(2*time.Second)) {
		t.Fatalf("messages=%d watermark=%v", len(snap.Messages), snap.Watermark)
	}
	if snap.Unread != 0 || api.reads != 1 || api.orderGet != 1 {
		t.Fatalf("unread=%d reads=%d orders=%d", snap.Unread, api.reads, api.orderGet)
	}
	if _, ok := snap.Orders["o1"]; !ok {
		t.Fatalf("orders not loaded: %v", snap.Orders)
	}
	if api.afters[0] != nil {
		t.Fatalf("first fetch must be the full history")
	}
	if changes != 1 {
		t.Fatalf("OnChange calls = %d", changes)
	}
}

func TestPoll_EmptyPollsLeaveStateUnchanged(t *testing.T) {
	api := &fakeAPI{}
	api.add("seller", "hello", t0)
	s := newSession(api)
	var changes int
	s.OnChange = func(Snapshot) { changes++ }
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	before := s.Snapshot()

	for i := 0; i < 2; i++ {
		if err := s.Poll(ctx); err != nil {
			t.Fatalf("Poll %d: %v", i, err)
		}
	}
	after := s.Snapshot()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("state changed across empty polls:\nbefore %+v\nafter  %+v", before, after)
	}
	if changes != 1 {
		t.Fatalf("empty polls must not notify, got %d calls", changes)
	}
	// Each poll asked for messages after the watermark.
	for _, a := range api.afters[1:] {
		if a == nil || !a.Equal(t0) {
			t.Fatalf("poll watermark = %v", a)
		}
	}
	if api.reads != 3 || api.orderGet != 3 {
		t.Fatalf("poll must re-mark read and reload orders: reads=%d orders=%d", api.reads, api.orderGet)
	}
}

func TestPoll_AppendsAndAdvancesWatermark(t *testing.T) {
	api := &fakeAPI{}
	api.add("seller", "hello", t0)
	s := newSession(api)
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	api.add("seller", "still there?", t0.Add(time.Minute))
	if err := s.Poll(ctx); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Messages) != 2 || snap.Messages[1].Body.Text != "still there?" {
		t.Fatalf("messages = %+v", snap.Messages)
	}
	if !snap.Watermark.Equal(t0.Add(time.Minute)) {
		t.Fatalf("watermark = %v", snap.Watermark)
	}
	if snap.Unread != 0 {
		t.Fatalf("new inbound message should be marked read, unread=%d", snap.Unread)
	}
}

func TestWatermark_NeverRegresses(t *testing.T) {
	api := &fakeAPI{}
	s := newSession(api)
	s.mu.Lock()
	s.merge([]domain.MessageView{{ID: "late", CreatedAt: t0.Add(time.Hour)}}, true)
	s.merge([]domain.MessageView{{ID: "early", CreatedAt: t0}}, true)
	w := s.watermark
	order := []string{s.messages[0].ID, s.messages[1].ID}
	s.mu.Unlock()

	if !w.Equal(t0.Add(time.Hour)) {
		t.Fatalf("watermark regressed to %v", w)
	}
	if order[0] != "early" || order[1] != "late" {
		t.Fatalf("messages not kept chronological: %v", order)
	}
}

func TestSend_DedupesAgainstPoll(t *testing.T) {
	api := &fakeAPI{}
	api.add("seller", "hello", t0)
	s := newSession(api)
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	m, err := s.Send(ctx, "two sacks please")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := s.Snapshot(); len(got.Messages) != 2 || !got.Watermark.Equal(t0) {
		t.Fatalf("after send: %d messages, watermark %v", len(got.Messages), got.Watermark)
	}

	// The poll returns our own message again.
	if err := s.Poll(ctx); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Messages) != 2 {
		t.Fatalf("sent message duplicated: %+v", snap.Messages)
	}
	if !snap.Watermark.Equal(m.CreatedAt) {
		t.Fatalf("poll should advance the watermark past our message")
	}
}

func TestPoll_NoUpdateAfterCancel(t *testing.T) {
	api := &fakeAPI{}
	api.add("seller", "hello", t0)
	s := newSession(api)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	before := s.Snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	api.add("seller", "late reply", t0.Add(time.Minute))
	api.onFetch = cancel // cancelled while the fetch is in flight

	if err := s.Poll(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Poll err = %v", err)
	}
	if after := s.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Fatalf("state updated after cancel")
	}
}

func TestRun_StopsOnCancelAndSurvivesErrors(t *testing.T) {
	api := &fakeAPI{}
	api.add("seller", "hello", t0)
	s := NewSession(api, "c1", "buyer", 5*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Let a few polls fail, then recover.
	time.Sleep(20 * time.Millisecond)
	api.mu.Lock()
	api.fetchErr = errors.New("network down")
	api.mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	api.mu.Lock()
	api.fetchErr = nil
	api.mu.Unlock()
	api.add("seller", "back online", t0.Add(time.Minute))

	deadline := time.Now().Add(2 * time.Second)
	for len(s.Snapshot().Messages) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("poll loop did not recover")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop")
	}
}

func TestRefresh_TracksOrderChanges(t *testing.T) {
	api := &fakeAPI{}
	api.add("seller", "order:o1", t0)
	api.orders = []domain.OrderView{{ChatOrder: domain.ChatOrder{ID: "o1", Status: domain.OrderRequested, UnitPrice: decimal.NewFromInt(5)}}}
	s := newSession(api)
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var last Snapshot
	s.OnChange = func(snap Snapshot) { last = snap }
	api.mu.Lock()
	api.orders[0].Status = domain.OrderPaid
	api.mu.Unlock()
	if err := s.Poll(ctx); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if last.Orders["o1"].Status != domain.OrderPaid {
		t.Fatalf("status change not published: %+v", last.Orders)
	}
}
