package domain

import "time"

// PublicProfile is the subset of Profile visible to other users.
type PublicProfile struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
}

// ConversationSummary is one inbox entry as returned by the directory query.
type ConversationSummary struct {
	ID                 string        `json:"id"`
	ContextType        string        `json:"context_type"`
	ContextID          string        `json:"context_id"`
	LastMessageAt      *time.Time    `json:"last_message_at"`
	LastMessagePreview string        `json:"last_message_preview"`
	CreatedAt          time.Time     `json:"created_at"`
	Other              PublicProfile `json:"other_participant"`
	UnreadCount        int64         `json:"unread_count"`
}

// ConversationHeader is the thread header: the conversation plus the other
// participant's identity.
type ConversationHeader struct {
	Conversation Conversation  `json:"conversation"`
	Other        PublicProfile `json:"other_participant"`
}

// OrderView is a ChatOrder annotated with the actions the viewer may take.
type OrderView struct {
	ChatOrder
	Actions []OrderAction `json:"actions"`
}

// NewOrderView annotates o for viewerID. Only the seller sees actions.
func NewOrderView(o ChatOrder, viewerID string) OrderView {
	v := OrderView{ChatOrder: o, Actions: []OrderAction{}}
	if o.SellerID == viewerID {
		if acts := o.SellerActions(); acts != nil {
			v.Actions = acts
		}
	}
	return v
}

// MessageView is a message with its body decoded into the tagged variant.
// Order is set when Body references an order the view could resolve.
type MessageView struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	CreatedAt      time.Time  `json:"created_at"`
	ReadAt         *time.Time `json:"read_at"`
	Body           Content    `json:"body"`
	Order          *OrderView `json:"order,omitempty"`
}

// NewMessageView decodes m and resolves an order reference against orders.
func NewMessageView(m Message, orders map[string]ChatOrder, viewerID string) MessageView {
	v := MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		CreatedAt:      m.CreatedAt,
		ReadAt:         m.ReadAt,
		Body:           ParseContent(m.Content),
	}
	if v.Body.Kind == KindOrder {
		if o, ok := orders[v.Body.OrderID]; ok {
			ov := NewOrderView(o, viewerID)
			v.Order = &ov
		}
	}
	return v
}
