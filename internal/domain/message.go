package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MessageTTL is how long a message survives after creation, independent of
// the sender's or recipient's session length.
const MessageTTL = 5 * time.Hour

// MaxMessageLength bounds message content size.
const MaxMessageLength = 1000

type MessageKind string

const (
	MessageKindText                MessageKind = "text"
	MessageKindPaymentRequest     MessageKind = "payment_request"
	MessageKindPaymentConfirmation MessageKind = "payment_confirmation"
)

// Valid reports whether k is a known message kind.
func (k MessageKind) Valid() bool {
	switch k {
	case MessageKindText, MessageKindPaymentRequest, MessageKindPaymentConfirmation:
		return true
	}
	return false
}

// PaymentData is the optional payment reference embedded in a message.
type PaymentData struct {
	Amount        int64  `json:"amount,omitempty"`
	UpiID         string `json:"upiId,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
	Status        string `json:"status,omitempty"`
}

// Message is a direct message between two identities. Seq is assigned by the
// store on insert and breaks creation-timestamp ties, so conversation order
// is total.
type Message struct {
	ID          uuid.UUID                        `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Seq         int64                            `json:"seq" gorm:"autoIncrement;uniqueIndex"`
	SenderID    uuid.UUID                        `json:"senderId" gorm:"type:uuid;index;not null"`
	RecipientID uuid.UUID                        `json:"recipientId" gorm:"type:uuid;index;not null"`
	Content     string                           `json:"content" gorm:"size:1000;not null"`
	Kind        MessageKind                      `json:"kind" gorm:"not null;default:'text'"`
	IsRead      bool                             `json:"isRead" gorm:"not null;default:false"`
	ReadAt      *time.Time                       `json:"readAt"`
	PaymentData *datatypes.JSONType[PaymentData] `json:"paymentData,omitempty"`
	ExpiresAt   time.Time                        `json:"expiresAt" gorm:"index;not null"`
	CreatedAt   time.Time                        `json:"createdAt"`
}
