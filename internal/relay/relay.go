// Package relay carries messages, read receipts, typing signals and
// session-lifecycle notifications between presence-resolved peers over
// WebSocket connections.
package relay

import (
	"context"
	"fmt"
	"log"

	"github.com/arjun/temporary-social/internal/domain"
	"github.com/arjun/temporary-social/internal/presence"
	"github.com/arjun/temporary-social/internal/service"
	"github.com/google/uuid"
)

// Relay owns the presence registry and routes events between connections.
// All durable state goes through the message service; the relay itself
// persists nothing.
type Relay struct {
	registry *presence.Registry
	messages *service.MessageService
	session  *service.SessionService
}

func New(registry *presence.Registry, messages *service.MessageService, session *service.SessionService) *Relay {
	return &Relay{
		registry: registry,
		messages: messages,
		session:  session,
	}
}

// Registry exposes the presence registry to the sweeps.
func (r *Relay) Registry() *presence.Registry {
	return r.registry
}

// handleJoin registers the connection as the identity's single live entry.
// Last-registered wins; the superseded connection is closed.
func (r *Relay) handleJoin(c *Client) {
	if evicted := r.registry.Register(c.userID, c); evicted != nil {
		if old, ok := evicted.(*Client); ok && old != c {
			old.Close()
		}
	}
	log.Printf("relay: user %s joined", c.userID)
}

// handleDisconnect removes the presence entry, but only if this connection
// still owns it; a reconnect that raced ahead keeps its registration.
func (r *Relay) handleDisconnect(c *Client) {
	c.Close()
	if r.registry.RemoveIf(c.userID, c) {
		log.Printf("relay: user %s disconnected", c.userID)
	}
}

// handleSendMessage persists the message, then pushes it to the recipient if
// present. The sender is always acknowledged, success or error.
func (r *Relay) handleSendMessage(c *Client, payload *SendMessagePayload) {
	recipientID, err := uuid.Parse(payload.RecipientID)
	if err != nil {
		c.sendEvent(EventTypeMessageError, MessageErrorPayload{Error: "invalid recipient id"})
		return
	}

	message, err := r.messages.Send(context.Background(), service.SendMessageInput{
		SenderID:    c.userID,
		RecipientID: recipientID,
		Content:     payload.Content,
		Kind:        domain.MessageKind(payload.Kind),
		PaymentData: payload.PaymentData,
	})
	if err != nil {
		c.sendEvent(EventTypeMessageError, MessageErrorPayload{Error: err.Error()})
		return
	}

	senderName := ""
	if sender, err := r.session.GetUserByID(context.Background(), c.userID); err == nil {
		senderName = sender.Username
	}

	r.pushTo(recipientID, EventTypeNewMessage, MessagePayload{
		Message:        message,
		SenderUsername: senderName,
	})
	c.sendEvent(EventTypeMessageSent, MessagePayload{Message: message})
}

// handleMarkRead updates read state and notifies the sender if present.
// Invalid or foreign message ids are silently ignored.
func (r *Relay) handleMarkRead(c *Client, payload *MarkMessageReadPayload) {
	messageID, err := uuid.Parse(payload.MessageID)
	if err != nil {
		return
	}

	message, err := r.messages.MarkRead(context.Background(), messageID, c.userID)
	if err != nil {
		return
	}

	r.pushTo(message.SenderID, EventTypeMessageRead, MessageReadPayload{
		MessageID: message.ID.String(),
		ReadAt:    *message.ReadAt,
	})
}

// handleTyping forwards the signal if the recipient is present; dropped
// otherwise. Nothing is persisted.
func (r *Relay) handleTyping(c *Client, payload *TypingPayload) {
	recipientID, err := uuid.Parse(payload.RecipientID)
	if err != nil {
		return
	}
	r.pushTo(recipientID, EventTypeUserTyping, UserTypingPayload{
		UserID:   c.userID.String(),
		IsTyping: payload.IsTyping,
	})
}

// pushTo delivers an event to the identity's live connection, if any. Push
// failures mean the handle went stale and are treated as offline.
func (r *Relay) pushTo(userID uuid.UUID, eventType EventType, payload interface{}) {
	handle := r.registry.Lookup(userID)
	if handle == nil {
		return
	}

	data, err := encodeEvent(eventType, payload)
	if err != nil {
		log.Printf("relay: failed to encode %s event: %v", eventType, err)
		return
	}
	_ = handle.Push(data)
}

func encodeEvent(eventType EventType, payload interface{}) ([]byte, error) {
	event, err := NewEvent(eventType, payload)
	if err != nil {
		return nil, fmt.Errorf("build %s event: %w", eventType, err)
	}
	return event.Encode()
}
