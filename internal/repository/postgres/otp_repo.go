package postgres

import (
	"context"
	"time"

	"github.com/arjun/temporary-social/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type otpRepository struct {
	db *gorm.DB
}

func NewOTPRepository(db *gorm.DB) *otpRepository {
	return &otpRepository{db: db}
}

func (r *otpRepository) Create(ctx context.Context, challenge *domain.OTPChallenge) error {
	return r.db.WithContext(ctx).Create(challenge).Error
}

func (r *otpRepository) LatestUnverified(ctx context.Context, phone string) (*domain.OTPChallenge, error) {
	var challenge domain.OTPChallenge
	err := r.db.WithContext(ctx).
		Where("phone_number = ? AND verified = false", phone).
		Order("created_at DESC").
		First(&challenge).Error
	if err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (r *otpRepository) InvalidateActive(ctx context.Context, phone string, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.OTPChallenge{}).
		Where("phone_number = ? AND verified = false AND expires_at > ?", phone, now).
		Update("expires_at", now).Error
}

func (r *otpRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	// Single-statement increment; the updated count is read back so the
	// caller never races another verifier on the same challenge.
	err := r.db.WithContext(ctx).
		Model(&domain.OTPChallenge{}).
		Where("id = ?", id).
		UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
	if err != nil {
		return 0, err
	}

	var challenge domain.OTPChallenge
	if err := r.db.WithContext(ctx).Select("attempts").First(&challenge, "id = ?", id).Error; err != nil {
		return 0, err
	}
	return challenge.Attempts, nil
}

func (r *otpRepository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&domain.OTPChallenge{}).
		Where("id = ?", id).
		Update("verified", true).Error
}

func (r *otpRepository) PurgeExpiredBefore(ctx context.Context, t time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", t).
		Delete(&domain.OTPChallenge{})
	return result.RowsAffected, result.Error
}
