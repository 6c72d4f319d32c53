// Package services defines the business logic for conversations, in-chat
// orders, the marketplace, the ledger and notifications. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import "errors"

// Lookup errors.
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrShopNotFound         = errors.New("shop not found")
	ErrProofNotFound        = errors.New("payment proof not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrProfileNotFound      = errors.New("profile not found")
)

// Authorization errors.
var (
	// ErrForbidden is returned when the caller is authenticated but is not a
	// participant, owner or seller of the resource.
	ErrForbidden = errors.New("forbidden")
)

// Validation errors.
var (
	// ErrInvalidInput wraps field-level validation failures.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSelfConversation is returned when a user tries to open a
	// conversation with themselves.
	ErrSelfConversation = errors.New("cannot start a conversation with yourself")

	// ErrEmptyMessage is returned when a text message is blank.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrTooLong is returned when a text message exceeds the configured limit.
	ErrTooLong = errors.New("message too long")

	// ErrReservedPrefix is returned when free text starts with a tag prefix
	// that would make it decode as an image or order reference.
	ErrReservedPrefix = errors.New("message starts with a reserved prefix")

	// ErrSelfPurchase is returned when a seller tries to buy their own product.
	ErrSelfPurchase = errors.New("cannot buy your own product")

	// ErrInvalidQuantity is returned for non-positive order quantities.
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
)

// State errors.
var (
	// ErrInsufficientStock is returned when the requested quantity exceeds
	// the product's available stock.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidTransition is returned for status moves the order state
	// machine does not allow.
	ErrInvalidTransition = errors.New("invalid order status transition")

	// ErrOrderAlreadyPaid is returned when an order is marked paid twice.
	ErrOrderAlreadyPaid = errors.New("order already paid")

	// ErrProductHasOrders blocks deleting a product that orders reference.
	ErrProductHasOrders = errors.New("product has orders")

	// ErrShopExists is returned when an owner already has a shop.
	ErrShopExists = errors.New("shop already exists")

	// ErrProofDecided is returned when a payment proof was already verified.
	ErrProofDecided = errors.New("payment proof already decided")
)
