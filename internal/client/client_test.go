package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/anidigital/harvest-hub/internal/domain"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL + "/api/v1/", UserID: "u1", Timeout: 5 * time.Second})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestMessages_SendsWatermarkAndIdentity(t *testing.T) {
	after := time.Date(2026, 3, 1, 10, 0, 0, 123456000, time.UTC)
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/conversations/c1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("X-User-ID"); got != "u1" {
			t.Errorf("X-User-ID = %q", got)
		}
		if got := r.URL.Query().Get("after"); got != "2026-03-01T10:00:00.123456Z" {
			t.Errorf("after = %q", got)
		}
		writeJSON(w, http.StatusOK, map[string]any{"messages": []domain.MessageView{
			{ID: "m1", Body: domain.TextContent("hi")},
			{ID: "m2", Body: domain.OrderContent("o1")},
		}})
	})

	msgs, err := c.Messages(context.Background(), "c1", &after)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 2 || msgs[1].Body.Kind != domain.KindOrder || msgs[1].Body.OrderID != "o1" {
		t.Fatalf("decoded %+v", msgs)
	}
}

func TestMessages_FullHistoryHasNoWatermark(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.URL.Query()["after"]; ok {
			t.Errorf("unexpected after param")
		}
		writeJSON(w, http.StatusOK, map[string]any{"messages": []any{}})
	})
	if _, err := c.Messages(context.Background(), "c1", nil); err != nil {
		t.Fatalf("Messages: %v", err)
	}
}

func TestBearerTokenWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" || r.Header.Get("X-User-ID") != "" {
			t.Errorf("headers = %v", r.Header)
		}
		writeJSON(w, http.StatusOK, map[string]int{"unread": 3})
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Token: "tok", UserID: "ignored"})
	n, err := c.UnreadNotifications(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("UnreadNotifications = %d, %v", n, err)
	}
}

func TestAPIError_Decoded(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{
			"request_id": "rid-1",
			"code":       "invalid_transition",
			"message":    "order cannot move to that status",
		})
	})

	_, err := c.MarkPending(context.Background(), "o1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want *APIError, got %T %v", err, err)
	}
	if apiErr.Status != http.StatusConflict || apiErr.Code != "invalid_transition" || apiErr.RequestID != "rid-1" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestAPIError_NonJSONBody(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})
	_, err := c.Inbox(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway {
		t.Fatalf("err = %v", err)
	}
}

func TestUnsafeCallsCarryIdempotencyKey(t *testing.T) {
	var keys []string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		switch r.URL.Path {
		case "/api/v1/orders":
			var body struct {
				ProductID string          `json:"product_id"`
				Quantity  decimal.Decimal `json:"quantity"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body.ProductID != "p1" || !body.Quantity.Equal(decimal.RequireFromString("2.5")) {
				t.Errorf("purchase body = %+v", body)
			}
			writeJSON(w, http.StatusCreated, map[string]any{"order": domain.ChatOrder{ID: "o1"}, "conversation_id": "c1"})
		case "/api/v1/orders/o1/paid":
			writeJSON(w, http.StatusOK, domain.OrderView{ChatOrder: domain.ChatOrder{ID: "o1", Status: domain.OrderPaid}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	res, err := c.Purchase(context.Background(), "p1", decimal.RequireFromString("2.5"))
	if err != nil || res.Order.ID != "o1" || res.ConversationID != "c1" {
		t.Fatalf("Purchase = %+v, %v", res, err)
	}
	o, err := c.MarkPaid(context.Background(), "o1")
	if err != nil || o.Status != domain.OrderPaid {
		t.Fatalf("MarkPaid = %+v, %v", o, err)
	}
	if len(keys) != 2 || keys[0] == "" || keys[1] == "" || keys[0] == keys[1] {
		t.Fatalf("idempotency keys = %q", keys)
	}
}
