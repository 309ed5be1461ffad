package service

import (
	"context"
	"errors"
	"time"

	"github.com/arjun/temporary-social/internal/config"
	"github.com/arjun/temporary-social/internal/domain"
	"github.com/arjun/temporary-social/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type MessageService struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	cfg         *config.Config
}

func NewMessageService(messageRepo repository.MessageRepository, userRepo repository.UserRepository, cfg *config.Config) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		cfg:         cfg,
	}
}

type SendMessageInput struct {
	SenderID    uuid.UUID
	RecipientID uuid.UUID
	Content     string
	Kind        domain.MessageKind
	PaymentData *domain.PaymentData
}

// Send validates and persists a message. Delivery to a live recipient
// connection is the relay's job, after persistence succeeds.
func (s *MessageService) Send(ctx context.Context, input SendMessageInput) (*domain.Message, error) {
	if input.Content == "" {
		return nil, &domain.ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if len(input.Content) > domain.MaxMessageLength {
		return nil, &domain.ValidationError{Field: "content", Reason: "exceeds maximum length"}
	}
	if input.Kind == "" {
		input.Kind = domain.MessageKindText
	}
	if !input.Kind.Valid() {
		return nil, &domain.ValidationError{Field: "kind", Reason: "unknown message kind"}
	}
	if input.SenderID == input.RecipientID {
		return nil, domain.ErrSelfMessage
	}

	if _, err := s.userRepo.GetByID(ctx, input.RecipientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	message := &domain.Message{
		ID:          uuid.New(),
		SenderID:    input.SenderID,
		RecipientID: input.RecipientID,
		Content:     input.Content,
		Kind:        input.Kind,
		ExpiresAt:   time.Now().Add(s.cfg.MessageTTL),
	}
	if input.PaymentData != nil {
		pd := datatypes.NewJSONType(*input.PaymentData)
		message.PaymentData = &pd
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}
	return message, nil
}

// MarkRead updates read state if, and only if, readerID is the recipient.
// Any other caller gets ErrMessageNotFound, the same as an unknown id, so
// message ids cannot be enumerated.
func (s *MessageService) MarkRead(ctx context.Context, messageID, readerID uuid.UUID) (*domain.Message, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	if message.RecipientID != readerID {
		return nil, domain.ErrMessageNotFound
	}
	if message.IsRead {
		return message, nil
	}

	now := time.Now()
	if err := s.messageRepo.MarkRead(ctx, messageID, now); err != nil {
		return nil, err
	}
	message.IsRead = true
	message.ReadAt = &now
	return message, nil
}

// Conversation returns the message window with the peer and marks all
// inbound messages from the peer as read.
func (s *MessageService) Conversation(ctx context.Context, userID, peerID uuid.UUID, limit int) ([]*domain.Message, error) {
	if _, err := s.userRepo.GetByID(ctx, peerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	messages, err := s.messageRepo.Conversation(ctx, userID, peerID, limit)
	if err != nil {
		return nil, err
	}

	if err := s.messageRepo.MarkConversationRead(ctx, peerID, userID, time.Now()); err != nil {
		return nil, err
	}
	return messages, nil
}

// ConversationSummary is one row in the conversation list.
type ConversationSummary struct {
	Peer        *domain.User    `json:"user"`
	LastMessage *domain.Message `json:"lastMessage"`
	UnreadCount int64           `json:"unreadCount"`
}

// Conversations lists the user's conversations, most recent first.
func (s *MessageService) Conversations(ctx context.Context, userID uuid.UUID) ([]*ConversationSummary, error) {
	partners, err := s.messageRepo.ConversationPartners(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]*ConversationSummary, 0, len(partners))
	for _, peerID := range partners {
		peer, err := s.userRepo.GetByID(ctx, peerID)
		if err != nil {
			// Peer row already purged; its messages follow shortly.
			continue
		}
		last, err := s.messageRepo.LastMessage(ctx, userID, peerID)
		if err != nil {
			continue
		}
		unread, err := s.messageRepo.UnreadCountFrom(ctx, peerID, userID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, &ConversationSummary{
			Peer:        peer,
			LastMessage: last,
			UnreadCount: unread,
		})
	}
	return summaries, nil
}

func (s *MessageService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.messageRepo.UnreadCount(ctx, userID)
}

// Delete removes a message; only the sender may delete.
func (s *MessageService) Delete(ctx context.Context, messageID, callerID uuid.UUID) error {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrMessageNotFound
		}
		return err
	}
	if message.SenderID != callerID {
		return domain.ErrMessageNotFound
	}
	return s.messageRepo.Delete(ctx, messageID)
}
