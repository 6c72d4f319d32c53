// Package client is a small typed client for the Harvest Hub HTTP API. It
// backs the thread and notification poll loops of harvestctl.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/anidigital/harvest-hub/internal/domain"
)

// Options configures a Client. Token takes precedence over UserID, which is
// only honoured by servers running with authentication disabled.
type Options struct {
	BaseURL string // including the API base path, e.g. http://localhost:8080/api/v1
	Token   string
	UserID  string
	Timeout time.Duration
}

// APIError is a non-2xx answer carrying the server's error envelope.
type APIError struct {
	Status    int
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
}

// Client talks to one API base URL as one user.
type Client struct {
	http *resty.Client
}

// New builds a client.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetError(&APIError{})
	switch {
	case opts.Token != "":
		rc.SetAuthToken(opts.Token)
	case opts.UserID != "":
		rc.SetHeader("X-User-ID", opts.UserID)
	}
	return &Client{http: rc}
}

// PurchaseResult is the answer to a purchase.
type PurchaseResult struct {
	Order          domain.ChatOrder `json:"order"`
	ConversationID string           `json:"conversation_id"`
}

// Inbox lists the caller's conversations.
func (c *Client) Inbox(ctx context.Context) ([]domain.ConversationSummary, error) {
	var out struct {
		Conversations []domain.ConversationSummary `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/conversations", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

// Header returns the conversation and the other participant.
func (c *Client) Header(ctx context.Context, conversationID string) (*domain.ConversationHeader, error) {
	var out domain.ConversationHeader
	if err := c.do(ctx, http.MethodGet, "/conversations/"+conversationID, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Messages returns the history, or only messages created strictly after
// *after when after is non-nil.
func (c *Client) Messages(ctx context.Context, conversationID string, after *time.Time) ([]domain.MessageView, error) {
	var q map[string]string
	if after != nil {
		q = map[string]string{"after": after.UTC().Format(time.RFC3339Nano)}
	}
	var out struct {
		Messages []domain.MessageView `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/conversations/"+conversationID+"/messages", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// MarkRead marks inbound messages read and returns how many changed.
func (c *Client) MarkRead(ctx context.Context, conversationID string) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	if err := c.do(ctx, http.MethodPost, "/conversations/"+conversationID+"/read", nil, nil, &out); err != nil {
		return 0, err
	}
	return out.Updated, nil
}

// Orders lists the conversation's orders.
func (c *Client) Orders(ctx context.Context, conversationID string) ([]domain.OrderView, error) {
	var out struct {
		Orders []domain.OrderView `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, "/conversations/"+conversationID+"/orders", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Orders, nil
}

// SendText posts a plain text message.
func (c *Client) SendText(ctx context.Context, conversationID, text string) (*domain.MessageView, error) {
	var out domain.MessageView
	body := map[string]string{"content": text}
	if err := c.do(ctx, http.MethodPost, "/conversations/"+conversationID+"/messages", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Purchase orders quantity of a product. Retries reuse one idempotency key.
func (c *Client) Purchase(ctx context.Context, productID string, quantity decimal.Decimal) (*PurchaseResult, error) {
	var out PurchaseResult
	body := map[string]any{"product_id": productID, "quantity": quantity}
	if err := c.do(ctx, http.MethodPost, "/orders", nil, body, &out, withIdempotencyKey()); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkPending moves an order to pending_payment.
func (c *Client) MarkPending(ctx context.Context, orderID string) (*domain.OrderView, error) {
	var out domain.OrderView
	if err := c.do(ctx, http.MethodPost, "/orders/"+orderID+"/pending", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkPaid confirms payment of an order.
func (c *Client) MarkPaid(ctx context.Context, orderID string) (*domain.OrderView, error) {
	var out domain.OrderView
	if err := c.do(ctx, http.MethodPost, "/orders/"+orderID+"/paid", nil, nil, &out, withIdempotencyKey()); err != nil {
		return nil, err
	}
	return &out, nil
}

// UnreadNotifications is the notification badge count.
func (c *Client) UnreadNotifications(ctx context.Context) (int64, error) {
	var out struct {
		Unread int64 `json:"unread"`
	}
	if err := c.do(ctx, http.MethodGet, "/notifications/unread-count", nil, nil, &out); err != nil {
		return 0, err
	}
	return out.Unread, nil
}

// Notifications returns the newest notifications, optionally unread only.
func (c *Client) Notifications(ctx context.Context, unreadOnly bool, limit int) ([]domain.Notification, error) {
	q := map[string]string{"limit": fmt.Sprint(limit)}
	if unreadOnly {
		q["unread"] = "true"
	}
	var out struct {
		Notifications []domain.Notification `json:"notifications"`
	}
	if err := c.do(ctx, http.MethodGet, "/notifications", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Notifications, nil
}

type reqOption func(*resty.Request)

// withIdempotencyKey pins one key to the request so resty retries replay.
func withIdempotencyKey() reqOption {
	key := uuid.NewString()
	return func(r *resty.Request) { r.SetHeader("Idempotency-Key", key) }
}

func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body, out any, opts ...reqOption) error {
	req := c.http.R().SetContext(ctx).SetResult(out)
	if query != nil {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetBody(body)
	}
	for _, o := range opts {
		o(req)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr, _ := resp.Error().(*APIError)
		if apiErr == nil {
			apiErr = &APIError{}
		}
		apiErr.Status = resp.StatusCode()
		return apiErr
	}
	return nil
}
