package postgres

import (
	"context"
	"time"

	"github.com/arjun/temporary-social/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *messageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *messageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	var message domain.Message
	err := r.db.WithContext(ctx).First(&message, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *messageRepository) Conversation(ctx context.Context, userA, userB uuid.UUID, limit int) ([]*domain.Message, error) {
	// Fetch the newest window, then flip to seq order so the caller sees the
	// conversation oldest first.
	var messages []*domain.Message
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userA, userB, userB, userA).
		Order("seq DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *messageRepository) ConversationPartners(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var partners []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Select("CASE WHEN sender_id = ? THEN recipient_id ELSE sender_id END AS partner", userID).
		Where("sender_id = ? OR recipient_id = ?", userID, userID).
		Group("partner").
		Order("MAX(seq) DESC").
		Pluck("partner", &partners).Error
	if err != nil {
		return nil, err
	}
	return partners, nil
}

func (r *messageRepository) LastMessage(ctx context.Context, userA, userB uuid.UUID) (*domain.Message, error) {
	var message domain.Message
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userA, userB, userB, userA).
		Order("seq DESC").
		First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_read": true, "read_at": at}).Error
}

func (r *messageRepository) MarkConversationRead(ctx context.Context, senderID, recipientID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("sender_id = ? AND recipient_id = ? AND is_read = false", senderID, recipientID).
		Updates(map[string]interface{}{"is_read": true, "read_at": at}).Error
}

func (r *messageRepository) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("recipient_id = ? AND is_read = false", recipientID).
		Count(&count).Error
	return count, err
}

func (r *messageRepository) UnreadCountFrom(ctx context.Context, senderID, recipientID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("sender_id = ? AND recipient_id = ? AND is_read = false", senderID, recipientID).
		Count(&count).Error
	return count, err
}

func (r *messageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Message{}, "id = ?", id).Error
}

func (r *messageRepository) PurgeExpiredBefore(ctx context.Context, t time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", t).
		Delete(&domain.Message{})
	return result.RowsAffected, result.Error
}
