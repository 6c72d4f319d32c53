// Package services – OrderService
//
// OrderService runs the order-in-chat workflow: purchase initiation from a
// product listing and the seller-driven status transitions
// requested → pending_payment → paid (or requested → paid directly).
//
// Every transition appends an "order:<id>" message to the conversation.
// Marking an order paid additionally books the buyer expense and the seller
// income, decrements the product stock (floored at zero) and notifies both
// parties. All of it runs in one database transaction guarded by a
// conditional status update, so the side effects apply exactly once.

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/anidigital/harvest-hub/internal/domain"
	"github.com/anidigital/harvest-hub/internal/observability"
	"github.com/anidigital/harvest-hub/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Ledger categories booked when an order is paid.
const (
	CategoryProducePurchase = "Produce Purchase"
	CategoryProduceSales    = "Produce Sales"
)

// PurchaseResult is what purchase initiation hands back to the client, which
// then navigates to the conversation.
type PurchaseResult struct {
	Order               domain.OrderView `json:"order"`
	ConversationID      string           `json:"conversation_id"`
	ConversationCreated bool             `json:"conversation_created"`
}

// OrderService implements purchase initiation and order transitions.
type OrderService struct {
	DB  *gorm.DB
	Log zerolog.Logger
}

// Purchase opens an order for quantity units of productID on behalf of
// buyerID. All validation happens before anything is written.
func (s *OrderService) Purchase(ctx context.Context, buyerID, productID string, quantity decimal.Decimal) (*PurchaseResult, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "Purchase",
		trace.WithAttributes(
			attribute.String("product.id", productID),
			attribute.String("user.id", buyerID),
			attribute.String("quantity", quantity.String()),
		),
	)
	defer span.End()

	if !quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	p, err := repo.GetProduct(ctx, s.DB, productID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if p.SellerID == buyerID {
		return nil, ErrSelfPurchase
	}
	if quantity.GreaterThan(p.Quantity) {
		return nil, ErrInsufficientStock
	}

	conv, created, err := repo.GetOrCreateConversation(ctx, s.DB, buyerID, p.SellerID, domain.ContextProduct, p.ID)
	if err != nil {
		return nil, err
	}

	order := &domain.ChatOrder{
		ConversationID: conv.ID,
		ProductID:      p.ID,
		ProductName:    p.Name,
		BuyerID:        buyerID,
		SellerID:       p.SellerID,
		Quantity:       quantity,
		Unit:           p.Unit,
		UnitPrice:      p.Price,
		TotalAmount:    quantity.Mul(p.Price).Round(2),
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreateOrder(ctx, tx, order); err != nil {
			return err
		}
		if _, err := appendMessage(ctx, tx, conv.ID, buyerID, domain.OrderContent(order.ID), order.ProductName); err != nil {
			return err
		}
		_, err := repo.CreateNotification(ctx, tx, p.SellerID,
			"New Order Request",
			fmt.Sprintf("A buyer requested %s of %s (%s).", quantityLabel(order.Quantity, order.Unit), order.ProductName, peso(order.TotalAmount)),
			domain.NotifyOrder,
		)
		return err
	})
	if err != nil {
		return nil, err
	}

	observability.OrdersCreated.Inc()
	observability.MessagesSent.WithLabelValues(string(domain.KindOrder)).Inc()
	span.SetAttributes(attribute.String("order.id", order.ID))
	return &PurchaseResult{
		Order:               domain.NewOrderView(*order, buyerID),
		ConversationID:      conv.ID,
		ConversationCreated: created,
	}, nil
}

// Get returns an order to one of its two parties.
func (s *OrderService) Get(ctx context.Context, userID, orderID string) (*domain.OrderView, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(
			attribute.String("order.id", orderID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	o, err := s.load(ctx, s.DB, orderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != userID && o.SellerID != userID {
		return nil, ErrForbidden
	}
	v := domain.NewOrderView(*o, userID)
	return &v, nil
}

// MarkPending moves a requested order to pending_payment.
func (s *OrderService) MarkPending(ctx context.Context, sellerID, orderID string) (*domain.OrderView, error) {
	return s.transition(ctx, sellerID, orderID, domain.OrderPendingPayment)
}

// MarkPaid moves an order to paid and applies the payment side effects.
// A second call returns ErrOrderAlreadyPaid and changes nothing.
func (s *OrderService) MarkPaid(ctx context.Context, sellerID, orderID string) (*domain.OrderView, error) {
	return s.transition(ctx, sellerID, orderID, domain.OrderPaid)
}

func (s *OrderService) transition(ctx context.Context, actorID, orderID string, to domain.OrderStatus) (*domain.OrderView, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "Transition",
		trace.WithAttributes(
			attribute.String("order.id", orderID),
			attribute.String("user.id", actorID),
			attribute.String("order.to", string(to)),
		),
	)
	defer span.End()

	var out *domain.ChatOrder
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = s.transitionTx(ctx, tx, actorID, orderID, to)
		return err
	})
	if err != nil {
		return nil, err
	}

	observability.OrderTransitions.WithLabelValues(string(to)).Inc()
	observability.MessagesSent.WithLabelValues(string(domain.KindOrder)).Inc()
	s.Log.Info().Str("order_id", out.ID).Str("status", string(to)).Msg("order transitioned")
	v := domain.NewOrderView(*out, actorID)
	return &v, nil
}

// transitionTx performs one checked status move with its side effects on
// tx. A lost race with a concurrent transition surfaces as the error the
// winner's state implies.
func (s *OrderService) transitionTx(ctx context.Context, tx *gorm.DB, actorID, orderID string, to domain.OrderStatus) (*domain.ChatOrder, error) {
	o, err := s.load(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(o, actorID, to); err != nil {
		return nil, err
	}

	at := clock()
	ok, err := repo.TransitionOrder(ctx, tx, o.ID, sourcesOf(to), to, at)
	if err != nil {
		return nil, err
	}
	if !ok {
		cur, err := s.load(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
		if err := checkTransition(cur, actorID, to); err != nil {
			return nil, err
		}
		return nil, ErrInvalidTransition
	}
	o.Status, o.UpdatedAt = to, at
	if to == domain.OrderPaid {
		o.PaidAt = &at
		if err := applyPayment(ctx, tx, o, at); err != nil {
			return nil, err
		}
	}
	if _, err := appendMessage(ctx, tx, o.ConversationID, o.SellerID, domain.OrderContent(o.ID), o.ProductName); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *OrderService) load(ctx context.Context, db *gorm.DB, orderID string) (*domain.ChatOrder, error) {
	o, err := repo.GetOrder(ctx, db, orderID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return o, nil
}

// checkTransition enforces seller-only, forward-only moves.
func checkTransition(o *domain.ChatOrder, actorID string, to domain.OrderStatus) error {
	if o.SellerID != actorID {
		return ErrForbidden
	}
	if to == domain.OrderPaid && o.Status == domain.OrderPaid {
		return ErrOrderAlreadyPaid
	}
	if !o.Status.CanTransitionTo(to) {
		return ErrInvalidTransition
	}
	return nil
}

// sourcesOf lists the statuses from which to is reachable.
func sourcesOf(to domain.OrderStatus) []domain.OrderStatus {
	var out []domain.OrderStatus
	for _, from := range []domain.OrderStatus{domain.OrderRequested, domain.OrderPendingPayment, domain.OrderPaid} {
		if from.CanTransitionTo(to) {
			out = append(out, from)
		}
	}
	return out
}

// applyPayment books both ledger rows, decrements stock and notifies both
// parties of a paid order.
func applyPayment(ctx context.Context, tx *gorm.DB, o *domain.ChatOrder, at time.Time) error {
	label := quantityLabel(o.Quantity, o.Unit)
	date := at.Format("2006-01-02")
	orderID := o.ID

	entries := []domain.Transaction{
		{
			UserID:      o.BuyerID,
			Type:        domain.TxExpense,
			Category:    CategoryProducePurchase,
			Amount:      o.TotalAmount,
			Description: fmt.Sprintf("Purchased %s of %s", label, o.ProductName),
			Date:        date,
			OrderID:     &orderID,
		},
		{
			UserID:      o.SellerID,
			Type:        domain.TxIncome,
			Category:    CategoryProduceSales,
			Amount:      o.TotalAmount,
			Description: fmt.Sprintf("Sold %s of %s", label, o.ProductName),
			Date:        date,
			OrderID:     &orderID,
		},
	}
	for i := range entries {
		if err := repo.CreateTransaction(ctx, tx, &entries[i]); err != nil {
			return err
		}
	}

	p, err := repo.GetProduct(ctx, tx, o.ProductID)
	switch {
	case err == nil:
		left := p.Quantity.Sub(o.Quantity)
		if left.IsNegative() {
			left = decimal.Zero
		}
		if err := repo.SetProductQuantity(ctx, tx, p.ID, left); err != nil {
			return err
		}
	case !errors.Is(err, repo.ErrNotFound):
		return err
	}

	if _, err := repo.CreateNotification(ctx, tx, o.BuyerID,
		"Payment Sent",
		fmt.Sprintf("Your payment of %s for %s of %s was recorded.", peso(o.TotalAmount), label, o.ProductName),
		domain.NotifyTransaction,
	); err != nil {
		return err
	}
	_, err = repo.CreateNotification(ctx, tx, o.SellerID,
		"Payment Received",
		fmt.Sprintf("You received %s for %s of %s.", peso(o.TotalAmount), label, o.ProductName),
		domain.NotifyTransaction,
	)
	return err
}
