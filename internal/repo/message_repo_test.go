package repo

import (
	"context"
	"testing"
	"time"

	"github.com/anidigital/harvest-hub/internal/domain"
)

func TestCreateMessage_Error_NoTable(t *testing.T) {
	db := newTestDB(t)
	if m, err := CreateMessage(context.Background(), db, "c", "u", "x"); err == nil || m != nil {
		t.Fatalf("expected error creating without table, got m=%v err=%v", m, err)
	}
}

func TestListMessages_OrderAndAfter(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()
	c := seedConversation(t, db, "a", "b")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rows := []domain.Message{
		{ID: "m3", ConversationID: c.ID, SenderID: "a", Content: "third", CreatedAt: base.Add(2 * time.Second)},
		{ID: "m1", ConversationID: c.ID, SenderID: "a", Content: "first", CreatedAt: base},
		{ID: "m2b", ConversationID: c.ID, SenderID: "b", Content: "second-b", CreatedAt: base.Add(time.Second)},
		{ID: "m2a", ConversationID: c.ID, SenderID: "b", Content: "second-a", CreatedAt: base.Add(time.Second)},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	all, err := ListMessages(ctx, db, c.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	want := []string{"m1", "m2a", "m2b", "m3"}
	if len(all) != len(want) {
		t.Fatalf("got %d messages", len(all))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Fatalf("position %d: got %s want %s", i, all[i].ID, id)
		}
	}

	after, err := ListMessagesAfter(ctx, db, c.ID, base.Add(time.Second))
	if err != nil {
		t.Fatalf("ListMessagesAfter: %v", err)
	}
	if len(after) != 1 || after[0].ID != "m3" {
		t.Fatalf("expected only m3 strictly after watermark, got %+v", after)
	}

	none, err := ListMessagesAfter(ctx, db, c.ID, base.Add(2*time.Second))
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no messages after last, got %d (%v)", len(none), err)
	}
}

func TestMarkMessagesRead_OnlyInboundAndOnce(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()
	c := seedConversation(t, db, "a", "b")

	for _, s := range []string{"b", "b", "a"} {
		if _, err := CreateMessage(ctx, db, c.ID, s, "x"); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	first := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	n, err := MarkMessagesRead(ctx, db, c.ID, "a", first)
	if err != nil || n != 2 {
		t.Fatalf("first mark = (%d, %v); want (2, nil)", n, err)
	}
	n, err = MarkMessagesRead(ctx, db, c.ID, "a", first.Add(time.Hour))
	if err != nil || n != 0 {
		t.Fatalf("second mark = (%d, %v); want (0, nil)", n, err)
	}

	msgs, _ := ListMessages(ctx, db, c.ID)
	for _, m := range msgs {
		switch m.SenderID {
		case "a":
			if m.ReadAt != nil {
				t.Fatalf("own message must stay unread: %+v", m)
			}
		case "b":
			if m.ReadAt == nil || !m.ReadAt.Equal(first) {
				t.Fatalf("read_at should keep the first timestamp: %+v", m)
			}
		}
	}

	if unread, err := CountUnread(ctx, db, c.ID, "b"); err != nil || unread != 1 {
		t.Fatalf("b's unread = (%d, %v); want (1, nil)", unread, err)
	}
}

func TestGetMessage(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()
	c := seedConversation(t, db, "a", "b")
	m, err := CreateMessage(ctx, db, c.ID, "a", "order:o1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := GetMessage(ctx, db, m.ID)
	if err != nil || got.Content != "order:o1" {
		t.Fatalf("GetMessage = (%+v, %v)", got, err)
	}
	if _, err := GetMessage(ctx, db, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
