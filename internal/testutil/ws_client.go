package testutil

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	gorillaWS "github.com/gorilla/websocket"

	"github.com/arjun/temporary-social/internal/relay"
)

// WSClient is a test WebSocket client
type WSClient struct {
	t      *testing.T
	conn   *gorillaWS.Conn
	events chan *relay.Event
	errors chan error
	done   chan struct{}
	mu     sync.Mutex
}

// NewWSClient creates a new WebSocket test client
func NewWSClient(t *testing.T, url string) *WSClient {
	t.Helper()

	dialer := gorillaWS.DefaultDialer
	dialer.HandshakeTimeout = 5 * time.Second

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to connect to websocket: %v", err)
	}

	client := &WSClient{
		t:      t,
		conn:   conn,
		events: make(chan *relay.Event, 100),
		errors: make(chan error, 10),
		done:   make(chan struct{}),
	}

	go client.readPump()

	t.Cleanup(func() {
		client.Close()
	})

	return client
}

// readPump reads events from the WebSocket connection
func (c *WSClient) readPump() {
	defer close(c.events)
	for {
		select {
		case <-c.done:
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				select {
				case <-c.done:
					return
				case c.errors <- err:
				}
				return
			}

			var event relay.Event
			if err := json.Unmarshal(data, &event); err != nil {
				c.errors <- err
				continue
			}

			select {
			case c.events <- &event:
			case <-c.done:
				return
			}
		}
	}
}

// Close closes the WebSocket connection gracefully
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
		close(c.done)
		c.conn.WriteMessage(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.CloseNormalClosure, ""))
		c.conn.Close()
	}
}

// SendEvent sends an event to the server
func (c *WSClient) SendEvent(eventType relay.EventType, payload interface{}) {
	c.t.Helper()

	event := relay.Event{
		Type:      eventType,
		Timestamp: time.Now().UnixMilli(),
	}

	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		if err != nil {
			c.t.Fatalf("failed to marshal event payload: %v", err)
		}
		event.Payload = payloadBytes
	}

	data, err := json.Marshal(&event)
	if err != nil {
		c.t.Fatalf("failed to marshal event: %v", err)
	}

	c.mu.Lock()
	err = c.conn.WriteMessage(gorillaWS.TextMessage, data)
	c.mu.Unlock()

	if err != nil {
		c.t.Fatalf("failed to send event: %v", err)
	}
}

// Join announces presence for the authenticated user
func (c *WSClient) Join() {
	c.SendEvent(relay.EventTypeJoin, nil)
}

// SendMessage sends a sendMessage event
func (c *WSClient) SendMessage(recipientID, content string) {
	c.SendEvent(relay.EventTypeSendMessage, relay.SendMessagePayload{
		RecipientID: recipientID,
		Content:     content,
	})
}

// MarkMessageRead sends a markMessageRead event
func (c *WSClient) MarkMessageRead(messageID string) {
	c.SendEvent(relay.EventTypeMarkMessageRead, relay.MarkMessageReadPayload{
		MessageID: messageID,
	})
}

// Typing sends a typing indicator for the given recipient
func (c *WSClient) Typing(recipientID string, isTyping bool) {
	c.SendEvent(relay.EventTypeTyping, relay.TypingPayload{
		RecipientID: recipientID,
		IsTyping:    isTyping,
	})
}

// ExpectEvent waits for an event of the specified type
func (c *WSClient) ExpectEvent(eventType relay.EventType, timeout time.Duration) *relay.Event {
	c.t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case event := <-c.events:
			if event == nil {
				c.t.Fatalf("connection closed while waiting for %s", eventType)
			}
			if event.Type == eventType {
				return event
			}
			// Skip other event types
		case err := <-c.errors:
			c.t.Fatalf("error while waiting for %s: %v", eventType, err)
		case <-deadline:
			c.t.Fatalf("timeout waiting for event type %s", eventType)
		}
	}
}

// ExpectNewMessage waits for and decodes a newMessage event
func (c *WSClient) ExpectNewMessage(timeout time.Duration) *relay.MessagePayload {
	c.t.Helper()

	event := c.ExpectEvent(relay.EventTypeNewMessage, timeout)

	var payload relay.MessagePayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		c.t.Fatalf("failed to decode new message payload: %v", err)
	}

	return &payload
}

// ExpectMessageSent waits for and decodes a messageSent acknowledgement
func (c *WSClient) ExpectMessageSent(timeout time.Duration) *relay.MessagePayload {
	c.t.Helper()

	event := c.ExpectEvent(relay.EventTypeMessageSent, timeout)

	var payload relay.MessagePayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		c.t.Fatalf("failed to decode message sent payload: %v", err)
	}

	return &payload
}

// ExpectMessageRead waits for and decodes a messageRead event
func (c *WSClient) ExpectMessageRead(timeout time.Duration) *relay.MessageReadPayload {
	c.t.Helper()

	event := c.ExpectEvent(relay.EventTypeMessageRead, timeout)

	var payload relay.MessageReadPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		c.t.Fatalf("failed to decode message read payload: %v", err)
	}

	return &payload
}

// ExpectUserTyping waits for and decodes a userTyping event
func (c *WSClient) ExpectUserTyping(timeout time.Duration) *relay.UserTypingPayload {
	c.t.Helper()

	event := c.ExpectEvent(relay.EventTypeUserTyping, timeout)

	var payload relay.UserTypingPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		c.t.Fatalf("failed to decode user typing payload: %v", err)
	}

	return &payload
}

// ExpectSessionWarning waits for and decodes a sessionWarning event
func (c *WSClient) ExpectSessionWarning(timeout time.Duration) *relay.SessionWarningPayload {
	c.t.Helper()

	event := c.ExpectEvent(relay.EventTypeSessionWarning, timeout)

	var payload relay.SessionWarningPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		c.t.Fatalf("failed to decode session warning payload: %v", err)
	}

	return &payload
}

// ExpectMessageError waits for and decodes a messageError event
func (c *WSClient) ExpectMessageError(timeout time.Duration) *relay.MessageErrorPayload {
	c.t.Helper()

	event := c.ExpectEvent(relay.EventTypeMessageError, timeout)

	var payload relay.MessageErrorPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		c.t.Fatalf("failed to decode message error payload: %v", err)
	}

	return &payload
}

// ExpectNoEvent verifies no events are received within timeout
func (c *WSClient) ExpectNoEvent(timeout time.Duration) {
	c.t.Helper()

	select {
	case event := <-c.events:
		if event != nil {
			c.t.Fatalf("unexpected event received: %s", event.Type)
		}
	case <-time.After(timeout):
		// Expected - no event received
	}
}

// ExpectClosed verifies the connection is closed by the server within timeout
func (c *WSClient) ExpectClosed(timeout time.Duration) {
	c.t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case event := <-c.events:
			if event == nil {
				return
			}
			// Events still in flight before the close are fine
		case <-c.errors:
			return
		case <-deadline:
			c.t.Fatal("timeout waiting for connection close")
		}
	}
}
