package relay

import (
	"encoding/json"
	"time"

	"github.com/arjun/temporary-social/internal/domain"
)

type EventType string

const (
	// Client to Server
	EventTypeJoin            EventType = "join"
	EventTypeSendMessage     EventType = "sendMessage"
	EventTypeMarkMessageRead EventType = "markMessageRead"
	EventTypeTyping          EventType = "typing"

	// Server to Client
	EventTypeNewMessage     EventType = "newMessage"
	EventTypeMessageSent    EventType = "messageSent"
	EventTypeMessageError   EventType = "messageError"
	EventTypeMessageRead    EventType = "messageRead"
	EventTypeUserTyping     EventType = "userTyping"
	EventTypeSessionWarning EventType = "sessionWarning"
	EventTypeSessionExpired EventType = "sessionExpired"
	EventTypeError          EventType = "error"
)

// Event is the relay's wire envelope, both directions.
type Event struct {
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

func NewEvent(eventType EventType, payload interface{}) (*Event, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = b
	}
	return &Event{
		Type:      eventType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Encode marshals the full envelope for the socket.
func (e *Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Client to Server payloads

type SendMessagePayload struct {
	RecipientID string              `json:"recipientId"`
	Content     string              `json:"content"`
	Kind        string              `json:"kind,omitempty"`
	PaymentData *domain.PaymentData `json:"paymentData,omitempty"`
}

type MarkMessageReadPayload struct {
	MessageID string `json:"messageId"`
}

type TypingPayload struct {
	RecipientID string `json:"recipientId"`
	IsTyping    bool   `json:"isTyping"`
}

// Server to Client payloads

type MessagePayload struct {
	Message        *domain.Message `json:"message"`
	SenderUsername string          `json:"senderUsername,omitempty"`
}

type MessageErrorPayload struct {
	Error string `json:"error"`
}

type MessageReadPayload struct {
	MessageID string    `json:"messageId"`
	ReadAt    time.Time `json:"readAt"`
}

type UserTypingPayload struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

type SessionWarningPayload struct {
	TimeRemaining domain.SessionRemaining `json:"timeRemaining"`
	Message       string                  `json:"message"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
