package postgres

import (
	"context"
	"time"

	"github.com/arjun/temporary-social/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *paymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	var payment domain.Payment
	err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) GetByTransactionID(ctx context.Context, txnID string) (*domain.Payment, error) {
	var payment domain.Payment
	err := r.db.WithContext(ctx).First(&payment, "transaction_id = ?", txnID).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

func (r *paymentRepository) History(ctx context.Context, userID uuid.UUID, status domain.PaymentStatus, limit int) ([]*domain.Payment, error) {
	query := r.db.WithContext(ctx).
		Where("sender_id = ? OR recipient_id = ?", userID, userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var payments []*domain.Payment
	err := query.Order("created_at DESC").Limit(limit).Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) Pending(ctx context.Context, userID uuid.UUID) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? OR recipient_id = ?) AND status = ?", userID, userID, domain.PaymentStatusPending).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) PurgeExpiredBefore(ctx context.Context, t time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", t).
		Delete(&domain.Payment{})
	return result.RowsAffected, result.Error
}
