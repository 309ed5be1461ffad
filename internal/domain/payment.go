package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PaymentTTL is how long a payment record survives after creation.
const PaymentTTL = 5 * time.Hour

// Amount bounds in whole currency units (INR).
const (
	MinPaymentAmount = 1
	MaxPaymentAmount = 100000
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// Terminal reports whether no further transition is allowed out of s.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	}
	return false
}

// CanTransition reports whether the pending → {processing → completed|failed,
// cancelled} state machine permits moving from s to next.
func (s PaymentStatus) CanTransition(next PaymentStatus) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case PaymentStatusPending:
		return next == PaymentStatusProcessing || next == PaymentStatusCompleted ||
			next == PaymentStatusFailed || next == PaymentStatusCancelled
	case PaymentStatusProcessing:
		return next == PaymentStatusCompleted || next == PaymentStatusFailed
	}
	return false
}

// PaymentMetadata captures request context at creation time.
type PaymentMetadata struct {
	DeviceInfo string `json:"deviceInfo,omitempty"`
	IPAddress  string `json:"ipAddress,omitempty"`
}

// Payment is a UPI payment request between two identities. The gateway order
// and payment ids stay empty until the external gateway assigns them.
type Payment struct {
	ID               uuid.UUID                           `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SenderID         uuid.UUID                           `json:"senderId" gorm:"type:uuid;index;not null"`
	RecipientID      uuid.UUID                           `json:"recipientId" gorm:"type:uuid;index;not null"`
	Amount           int64                               `json:"amount" gorm:"not null"`
	Currency         string                              `json:"currency" gorm:"not null;default:'INR'"`
	Description      string                              `json:"description" gorm:"size:200"`
	SenderUpiID      string                              `json:"senderUpiId" gorm:"not null"`
	RecipientUpiID   string                              `json:"recipientUpiId" gorm:"not null"`
	TransactionID    string                              `json:"transactionId" gorm:"uniqueIndex;not null"`
	GatewayOrderID   string                              `json:"gatewayOrderId"`
	GatewayPaymentID string                              `json:"gatewayPaymentId"`
	Status           PaymentStatus                       `json:"status" gorm:"index;not null;default:'pending'"`
	FailureReason    string                              `json:"failureReason"`
	QRCodeData       string                              `json:"qrCodeData"`
	Metadata         datatypes.JSONType[PaymentMetadata] `json:"metadata"`
	ExpiresAt        time.Time                           `json:"expiresAt" gorm:"index;not null"`
	CompletedAt      *time.Time                          `json:"completedAt"`
	CreatedAt        time.Time                           `json:"createdAt"`
	UpdatedAt        time.Time                           `json:"updatedAt"`
}
