// Package services – PaymentService
//
// PaymentService handles manual payment proofs: a buyer uploads a
// screenshot of an off-platform payment and the seller approves or rejects
// it. Approval marks the order paid through the same path as the seller's
// "mark paid" action; rejection tells the buyer why.

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/anidigital/harvest-hub/internal/domain"
	"github.com/anidigital/harvest-hub/internal/observability"
	"github.com/anidigital/harvest-hub/internal/repo"
	"github.com/anidigital/harvest-hub/internal/storage"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PaymentService manages payment proofs for chat orders.
type PaymentService struct {
	Orders *OrderService
	Store  storage.Store
}

func (s *PaymentService) db() *gorm.DB { return s.Orders.DB }

// SubmitProof stores a buyer's payment screenshot for orderID and notifies
// the seller. The image is validated before anything is uploaded.
func (s *PaymentService) SubmitProof(ctx context.Context, buyerID, orderID string, data []byte) (*domain.PaymentProof, error) {
	tr := otel.Tracer("services/PaymentService")
	ctx, span := tr.Start(ctx, "SubmitProof",
		trace.WithAttributes(
			attribute.String("order.id", orderID),
			attribute.String("user.id", buyerID),
		),
	)
	defer span.End()

	if _, err := storage.ValidateImage(data); err != nil {
		return nil, err
	}
	o, err := s.Orders.load(ctx, s.db(), orderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != buyerID {
		return nil, ErrForbidden
	}
	if o.Status == domain.OrderPaid {
		return nil, ErrOrderAlreadyPaid
	}

	obj, err := storage.UploadImage(ctx, s.Store, storage.BucketPaymentProofs, data)
	if err != nil {
		return nil, err
	}
	proof := &domain.PaymentProof{
		OrderID:     o.ID,
		SubmittedBy: buyerID,
		ImageURL:    obj.URL,
		ImageKey:    obj.Key,
	}
	err = s.db().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreatePaymentProof(ctx, tx, proof); err != nil {
			return err
		}
		_, err := repo.CreateNotification(ctx, tx, o.SellerID,
			"Payment Proof Submitted",
			fmt.Sprintf("The buyer uploaded a payment proof for %s of %s.", quantityLabel(o.Quantity, o.Unit), o.ProductName),
			domain.NotifyPayment,
		)
		return err
	})
	if err != nil {
		if derr := s.Store.Delete(ctx, obj.Key); derr != nil {
			s.Orders.Log.Warn().Err(derr).Str("key", obj.Key).Msg("orphaned payment proof")
		}
		return nil, err
	}
	return proof, nil
}

// ListProofs returns the proofs of orderID to either party.
func (s *PaymentService) ListProofs(ctx context.Context, userID, orderID string) ([]domain.PaymentProof, error) {
	tr := otel.Tracer("services/PaymentService")
	ctx, span := tr.Start(ctx, "ListProofs",
		trace.WithAttributes(
			attribute.String("order.id", orderID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	o, err := s.Orders.load(ctx, s.db(), orderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != userID && o.SellerID != userID {
		return nil, ErrForbidden
	}
	return repo.ListPaymentProofs(ctx, s.db(), orderID)
}

// Verify decides a pending proof. Only the order's seller may call it.
// Approving marks the order paid unless it already is; rejecting notifies
// the buyer with reason.
func (s *PaymentService) Verify(ctx context.Context, sellerID, proofID string, status domain.ProofStatus, reason string) (*domain.PaymentProof, error) {
	tr := otel.Tracer("services/PaymentService")
	ctx, span := tr.Start(ctx, "Verify",
		trace.WithAttributes(
			attribute.String("proof.id", proofID),
			attribute.String("user.id", sellerID),
			attribute.String("proof.status", string(status)),
		),
	)
	defer span.End()

	if !status.Decided() {
		return nil, ErrInvalidInput
	}
	reason = strings.TrimSpace(reason)

	var (
		proof *domain.PaymentProof
		paid  bool
	)
	err := s.db().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := repo.GetPaymentProof(ctx, tx, proofID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrProofNotFound
			}
			return err
		}
		o, err := s.Orders.load(ctx, tx, p.OrderID)
		if err != nil {
			return err
		}
		if o.SellerID != sellerID {
			return ErrForbidden
		}
		if p.Status.Decided() {
			return ErrProofDecided
		}

		at := clock()
		ok, err := repo.DecidePaymentProof(ctx, tx, p.ID, status, reason, sellerID, at)
		if err != nil {
			return err
		}
		if !ok {
			return ErrProofDecided
		}
		p.Status, p.Reason, p.VerifiedBy, p.VerifiedAt = status, reason, sellerID, &at

		switch status {
		case domain.ProofApproved:
			if o.Status != domain.OrderPaid {
				if _, err := s.Orders.transitionTx(ctx, tx, sellerID, o.ID, domain.OrderPaid); err != nil {
					return err
				}
				paid = true
			}
		case domain.ProofRejected:
			msg := fmt.Sprintf("Your payment proof for %s was rejected.", o.ProductName)
			if reason != "" {
				msg += " Reason: " + reason
			}
			if _, err := repo.CreateNotification(ctx, tx, o.BuyerID, "Payment Proof Rejected", msg, domain.NotifyPayment); err != nil {
				return err
			}
		}
		proof = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if paid {
		observability.OrderTransitions.WithLabelValues(string(domain.OrderPaid)).Inc()
		observability.MessagesSent.WithLabelValues(string(domain.KindOrder)).Inc()
	}
	return proof, nil
}
