// Package domain defines the persistence models for profiles, conversations,
// messages, in-chat orders, marketplace listings, the bookkeeping ledger and
// notifications. These types are mapped with GORM and form the core data
// layer of the Harvest Hub backend.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Profile is the public identity of a platform user. Accounts themselves are
// owned by the hosted auth service; this row only carries display fields.
type Profile struct {
	ID        string    `json:"id"         gorm:"type:varchar(64);primaryKey"`
	FullName  string    `json:"full_name"  gorm:"type:varchar(255);not null;default:''"`
	AvatarURL string    `json:"avatar_url" gorm:"type:text;not null;default:''"`
	Location  string    `json:"location"   gorm:"type:varchar(255);not null;default:''"`
	Phone     string    `json:"phone"      gorm:"type:varchar(32);not null;default:''"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Profile.
func (Profile) TableName() string { return "profiles" }

// Context types recorded on conversations.
const (
	ContextProduct = "product"
	ContextShop    = "shop"
)

// Conversation links two participants, optionally scoped to the product or
// shop that started it.
//
// Fields:
//   - ParticipantAID / ParticipantBID: the two users, stored sorted so that
//     (a,b) and (b,a) resolve to the same row.
//   - ContextType / ContextID: "product" or "shop" and the subject id; both
//     empty for a plain direct conversation.
//   - LastMessageAt / LastMessagePreview: denormalized for the inbox listing.
//
// The unique index over the four identity columns backs get-or-create.
type Conversation struct {
	ID                 string     `json:"id"                   gorm:"type:char(36);primaryKey"`
	ParticipantAID     string     `json:"participant_a_id"     gorm:"type:varchar(64);not null;uniqueIndex:ux_conversation_pair_ctx,priority:1;index"`
	ParticipantBID     string     `json:"participant_b_id"     gorm:"type:varchar(64);not null;uniqueIndex:ux_conversation_pair_ctx,priority:2;index"`
	ContextType        string     `json:"context_type"         gorm:"type:varchar(16);not null;default:'';uniqueIndex:ux_conversation_pair_ctx,priority:3"`
	ContextID          string     `json:"context_id"           gorm:"type:varchar(64);not null;default:'';uniqueIndex:ux_conversation_pair_ctx,priority:4"`
	LastMessageAt      *time.Time `json:"last_message_at"`
	LastMessagePreview string     `json:"last_message_preview" gorm:"type:text;not null;default:''"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	return userID != "" && (c.ParticipantAID == userID || c.ParticipantBID == userID)
}

// OtherParticipant returns the participant that is not userID.
func (c *Conversation) OtherParticipant(userID string) string {
	if c.ParticipantAID == userID {
		return c.ParticipantBID
	}
	return c.ParticipantAID
}

// Message is a single chat entry. Content keeps the tagged string encoding
// (see Content) so rows written by older clients stay readable. Only ReadAt
// ever changes after insert.
type Message struct {
	ID             string     `json:"id"              gorm:"type:char(36);primaryKey"`
	ConversationID string     `json:"conversation_id" gorm:"type:char(36);not null;index:idx_conversation_msgs,priority:1"`
	SenderID       string     `json:"sender_id"       gorm:"type:varchar(64);not null;index"`
	Content        string     `json:"content"         gorm:"type:text;not null"`
	CreatedAt      time.Time  `json:"created_at"      gorm:"index:idx_conversation_msgs,priority:2"`
	ReadAt         *time.Time `json:"read_at"`

	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// ChatOrder is a purchase negotiated inside a conversation. ProductName,
// Unit and UnitPrice are copied from the product at creation time and
// TotalAmount is fixed then; none of them are recomputed later.
type ChatOrder struct {
	ID             string          `json:"id"              gorm:"type:char(36);primaryKey"`
	ConversationID string          `json:"conversation_id" gorm:"type:char(36);not null;index"`
	ProductID      string          `json:"product_id"      gorm:"type:char(36);not null;index"`
	ProductName    string          `json:"product_name"    gorm:"type:varchar(255);not null"`
	BuyerID        string          `json:"buyer_id"        gorm:"type:varchar(64);not null;index"`
	SellerID       string          `json:"seller_id"       gorm:"type:varchar(64);not null;index"`
	Quantity       decimal.Decimal `json:"quantity"        gorm:"type:numeric(12,3);not null"`
	Unit           string          `json:"unit"            gorm:"type:varchar(32);not null;default:''"`
	UnitPrice      decimal.Decimal `json:"unit_price"      gorm:"type:numeric(12,2);not null"`
	TotalAmount    decimal.Decimal `json:"total_amount"    gorm:"type:numeric(14,2);not null"`
	Status         OrderStatus     `json:"status"          gorm:"type:varchar(24);not null;default:'requested';index"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName returns the database table name for ChatOrder.
func (ChatOrder) TableName() string { return "chat_orders" }

// SellerActions lists the transitions the seller may trigger from the
// current status. Buyers never get actions.
func (o *ChatOrder) SellerActions() []OrderAction {
	switch o.Status {
	case OrderRequested:
		return []OrderAction{ActionMarkPending, ActionMarkPaid}
	case OrderPendingPayment:
		return []OrderAction{ActionMarkPaid}
	default:
		return nil
	}
}

// Product is a seller-owned marketplace listing. ImageKey is the storage key
// of the uploaded picture so it can be removed together with the listing.
type Product struct {
	ID          string          `json:"id"          gorm:"type:char(36);primaryKey"`
	SellerID    string          `json:"seller_id"   gorm:"type:varchar(64);not null;index"`
	ShopID      *string         `json:"shop_id"     gorm:"type:char(36);index"`
	Name        string          `json:"name"        gorm:"type:varchar(255);not null"`
	Description string          `json:"description" gorm:"type:text;not null;default:''"`
	Category    string          `json:"category"    gorm:"type:varchar(64);not null;index"`
	Price       decimal.Decimal `json:"price"       gorm:"type:numeric(12,2);not null"`
	Quantity    decimal.Decimal `json:"quantity"    gorm:"type:numeric(12,3);not null"`
	Unit        string          `json:"unit"        gorm:"type:varchar(32);not null;default:'kg'"`
	ImageURL    string          `json:"image_url"   gorm:"type:text;not null;default:''"`
	ImageKey    string          `json:"-"           gorm:"type:text;not null;default:''"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// SellerName is filled by listing queries that join profiles.
	SellerName string `json:"seller_name,omitempty" gorm:"-"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string { return "products" }

// Shop is a seller's storefront. A seller owns at most one shop.
type Shop struct {
	ID          string    `json:"id"          gorm:"type:char(36);primaryKey"`
	OwnerID     string    `json:"owner_id"    gorm:"type:varchar(64);not null;uniqueIndex"`
	Name        string    `json:"name"        gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text;not null;default:''"`
	Location    string    `json:"location"    gorm:"type:varchar(255);not null;default:''"`
	BannerURL   string    `json:"banner_url"  gorm:"type:text;not null;default:''"`
	BannerKey   string    `json:"-"           gorm:"type:text;not null;default:''"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for Shop.
func (Shop) TableName() string { return "shops" }

// Ledger entry types.
const (
	TxIncome  = "income"
	TxExpense = "expense"
)

// Transaction is a bookkeeping row. Rows created by a paid order carry the
// order id for reference only; there is no foreign key.
type Transaction struct {
	ID          string          `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID      string          `json:"user_id"     gorm:"type:varchar(64);not null;index:idx_user_tx_date,priority:1"`
	Type        string          `json:"type"        gorm:"type:varchar(16);not null;check:type IN ('income','expense')"`
	Category    string          `json:"category"    gorm:"type:varchar(64);not null"`
	Amount      decimal.Decimal `json:"amount"      gorm:"type:numeric(14,2);not null"`
	Description string          `json:"description" gorm:"type:text;not null;default:''"`
	Date        string          `json:"date"        gorm:"type:char(10);not null;index:idx_user_tx_date,priority:2"`
	OrderID     *string         `json:"order_id"    gorm:"type:char(36);index"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TableName returns the database table name for Transaction.
func (Transaction) TableName() string { return "transactions" }

// Notification types, used by clients for styling.
const (
	NotifyTransaction = "transaction"
	NotifyOrder       = "order"
	NotifyPayment     = "payment"
	NotifySystem      = "system"
)

// Notification is a user-scoped inbox row.
type Notification struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_user_notifications,priority:1"`
	Title     string    `json:"title"      gorm:"type:varchar(255);not null"`
	Message   string    `json:"message"    gorm:"type:text;not null;default:''"`
	Type      string    `json:"type"       gorm:"type:varchar(32);not null;default:'system'"`
	Read      bool      `json:"read"       gorm:"not null;default:false;index:idx_user_notifications,priority:2"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }

// PaymentProof is a buyer-submitted screenshot of a manual payment awaiting
// the seller's verification.
type PaymentProof struct {
	ID          string      `json:"id"           gorm:"type:char(36);primaryKey"`
	OrderID     string      `json:"order_id"     gorm:"type:char(36);not null;index"`
	SubmittedBy string      `json:"submitted_by" gorm:"type:varchar(64);not null"`
	ImageURL    string      `json:"image_url"    gorm:"type:text;not null"`
	ImageKey    string      `json:"-"            gorm:"type:text;not null;default:''"`
	Status      ProofStatus `json:"status"       gorm:"type:varchar(16);not null;default:'pending'"`
	Reason      string      `json:"reason"       gorm:"type:text;not null;default:''"`
	VerifiedBy  string      `json:"verified_by"  gorm:"type:varchar(64);not null;default:''"`
	VerifiedAt  *time.Time  `json:"verified_at"`
	CreatedAt   time.Time   `json:"created_at"`

	Order ChatOrder `json:"-" gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for PaymentProof.
func (PaymentProof) TableName() string { return "payment_proofs" }
