package repository

import (
	"context"
	"time"

	"github.com/arjun/temporary-social/internal/domain"
	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByPhoneNumber(ctx context.Context, phone string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	// TouchLastActive writes only last_active so a stale in-memory snapshot
	// can never clobber a concurrent session_end or is_active change.
	TouchLastActive(ctx context.Context, id uuid.UUID, t time.Time) error
	Search(ctx context.Context, query string, excludeID uuid.UUID, limit int) ([]*domain.User, error)

	// Sweep queries. ExpiringBetween selects active users whose session ends
	// inside (from, to]; ExpiredBefore selects users whose session already
	// ended.
	ExpiringBetween(ctx context.Context, from, to time.Time) ([]*domain.User, error)
	ExpiredBefore(ctx context.Context, t time.Time) ([]*domain.User, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	PurgeExpiredBefore(ctx context.Context, t time.Time) (int64, error)
}

type FollowRepository interface {
	Create(ctx context.Context, follow *domain.Follow) error
	Delete(ctx context.Context, followerID, followeeID uuid.UUID) error
	Exists(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error)
	CountFollowers(ctx context.Context, userID uuid.UUID) (int64, error)
	CountFollowing(ctx context.Context, userID uuid.UUID) (int64, error)
	Followers(ctx context.Context, userID uuid.UUID) ([]*domain.User, error)
	Following(ctx context.Context, userID uuid.UUID) ([]*domain.User, error)
}

type OTPRepository interface {
	Create(ctx context.Context, challenge *domain.OTPChallenge) error
	// LatestUnverified returns the most recently created unverified challenge
	// for the phone number, regardless of expiry.
	LatestUnverified(ctx context.Context, phone string) (*domain.OTPChallenge, error)
	// InvalidateActive expires every unverified challenge for the phone
	// number so a stale code can never verify after a newer one is issued.
	InvalidateActive(ctx context.Context, phone string, now time.Time) error
	IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error)
	MarkVerified(ctx context.Context, id uuid.UUID) error
	PurgeExpiredBefore(ctx context.Context, t time.Time) (int64, error)
}

type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	// Conversation returns messages between two users in seq order, newest
	// last, at most limit.
	Conversation(ctx context.Context, userA, userB uuid.UUID, limit int) ([]*domain.Message, error)
	// ConversationPartners returns the distinct peers the user has exchanged
	// messages with, most recent conversation first.
	ConversationPartners(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	LastMessage(ctx context.Context, userA, userB uuid.UUID) (*domain.Message, error)
	MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkConversationRead(ctx context.Context, senderID, recipientID uuid.UUID, at time.Time) error
	UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error)
	UnreadCountFrom(ctx context.Context, senderID, recipientID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	PurgeExpiredBefore(ctx context.Context, t time.Time) (int64, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	GetByTransactionID(ctx context.Context, txnID string) (*domain.Payment, error)
	Update(ctx context.Context, payment *domain.Payment) error
	History(ctx context.Context, userID uuid.UUID, status domain.PaymentStatus, limit int) ([]*domain.Payment, error)
	Pending(ctx context.Context, userID uuid.UUID) ([]*domain.Payment, error)
	PurgeExpiredBefore(ctx context.Context, t time.Time) (int64, error)
}

type Repositories struct {
	User    UserRepository
	Follow  FollowRepository
	OTP     OTPRepository
	Message MessageRepository
	Payment PaymentRepository
}
