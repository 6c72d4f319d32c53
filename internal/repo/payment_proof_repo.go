package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anidigital/harvest-hub/internal/domain"
)

// CreatePaymentProof inserts a pending proof.
func CreatePaymentProof(ctx context.Context, db *gorm.DB, p *domain.PaymentProof) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Status = domain.ProofPending
	p.CreatedAt = now()
	return db.WithContext(ctx).Create(p).Error
}

// GetPaymentProof fetches a proof by id, or ErrNotFound.
func GetPaymentProof(ctx context.Context, db *gorm.DB, id string) (*domain.PaymentProof, error) {
	var p domain.PaymentProof
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPaymentProofs returns the proofs submitted for an order, newest first.
func ListPaymentProofs(ctx context.Context, db *gorm.DB, orderID string) ([]domain.PaymentProof, error) {
	var out []domain.PaymentProof
	err := db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}

// DecidePaymentProof records the verification outcome if the proof is still
// pending. It returns false when the proof was already decided or is missing.
func DecidePaymentProof(ctx context.Context, db *gorm.DB, id string, status domain.ProofStatus, reason, verifierID string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.PaymentProof{}).
		Where("id = ? AND status = ?", id, domain.ProofPending).
		Updates(map[string]any{
			"status":      status,
			"reason":      reason,
			"verified_by": verifierID,
			"verified_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
