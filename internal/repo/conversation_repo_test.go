package repo

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSortPair(t *testing.T) {
	if a, b := SortPair("z", "a"); a != "a" || b != "z" {
		t.Fatalf("SortPair(z,a) = %s,%s", a, b)
	}
	if a, b := SortPair("a", "z"); a != "a" || b != "z" {
		t.Fatalf("SortPair(a,z) = %s,%s", a, b)
	}
}

func TestGetOrCreateConversation_SameIDRegardlessOfOrder(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()

	c1, created, err := GetOrCreateConversation(ctx, db, "bob", "alice", "product", "p1")
	if err != nil || !created {
		t.Fatalf("first call: created=%v err=%v", created, err)
	}
	if c1.ParticipantAID != "alice" || c1.ParticipantBID != "bob" {
		t.Fatalf("participants not stored sorted: %+v", c1)
	}

	c2, created, err := GetOrCreateConversation(ctx, db, "alice", "bob", "product", "p1")
	if err != nil || created {
		t.Fatalf("second call: created=%v err=%v", created, err)
	}
	if c2.ID != c1.ID {
		t.Fatalf("expected same id, got %s vs %s", c1.ID, c2.ID)
	}

	// A different context is a different conversation.
	c3, created, err := GetOrCreateConversation(ctx, db, "alice", "bob", "shop", "s1")
	if err != nil || !created || c3.ID == c1.ID {
		t.Fatalf("context should scope conversation: %+v created=%v err=%v", c3, created, err)
	}

	if _, err := CreateConversation(ctx, db, "bob", "alice", "product", "p1"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on raw create, got %v", err)
	}
}

func TestGetConversation_NotFound(t *testing.T) {
	db := newMigratedDB(t)
	if _, err := GetConversation(context.Background(), db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := TouchConversation(context.Background(), db, "missing", "x", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Touch on missing: %v", err)
	}
}

func TestListConversationSummaries_OrderProfilesAndUnread(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()

	seedProfile(t, db, "alice", "Alice Farmer")
	seedProfile(t, db, "carol", "Carol Buyer")
	// bob has no profile row.

	withBob := seedConversation(t, db, "alice", "bob")
	withCarol := seedConversation(t, db, "carol", "alice")
	_ = seedConversation(t, db, "bob", "carol") // not alice's

	// bob sends two messages, alice replies once; carol sends one.
	for _, s := range []struct{ conv, sender, text string }{
		{withBob.ID, "bob", "hi"},
		{withBob.ID, "bob", "still there?"},
		{withBob.ID, "alice", "yes"},
		{withCarol.ID, "carol", "price?"},
	} {
		if _, err := CreateMessage(ctx, db, s.conv, s.sender, s.text); err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}

	t1 := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	if err := TouchConversation(ctx, db, withBob.ID, "yes", t1); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if err := TouchConversation(ctx, db, withCarol.ID, "price?", t2); err != nil {
		t.Fatalf("touch: %v", err)
	}

	got, err := ListConversationSummaries(ctx, db, "alice")
	if err != nil {
		t.Fatalf("ListConversationSummaries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(got))
	}
	if got[0].ID != withCarol.ID || got[1].ID != withBob.ID {
		t.Fatalf("expected most recent first, got %s then %s", got[0].ID, got[1].ID)
	}
	if got[0].Other.ID != "carol" || got[0].Other.FullName != "Carol Buyer" || got[0].UnreadCount != 1 {
		t.Fatalf("unexpected carol row: %+v", got[0])
	}
	if got[1].Other.ID != "bob" || got[1].Other.FullName != "" || got[1].UnreadCount != 2 {
		t.Fatalf("unexpected bob row: %+v", got[1])
	}
	if got[1].LastMessagePreview != "yes" || got[1].LastMessageAt == nil || !got[1].LastMessageAt.Equal(t1) {
		t.Fatalf("preview columns not returned: %+v", got[1])
	}

	// After alice reads, bob's conversation has no unread left.
	if _, err := MarkMessagesRead(ctx, db, withBob.ID, "alice", time.Now().UTC()); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	got, _ = ListConversationSummaries(ctx, db, "alice")
	if got[1].UnreadCount != 0 {
		t.Fatalf("expected unread 0 after read, got %d", got[1].UnreadCount)
	}
}

func TestListConversationSummaries_NoTable(t *testing.T) {
	db := newTestDB(t)
	if _, err := ListConversationSummaries(context.Background(), db, "u"); err == nil {
		t.Fatalf("expected error with missing tables")
	}
}
