package relay

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var errClientGone = errors.New("client connection closed")

// Client is one authenticated relay connection. The identity is bound at
// upgrade time from the session token; presence registration happens on the
// join announcement.
type Client struct {
	relay  *Relay
	conn   *websocket.Conn
	send   chan []byte
	userID uuid.UUID

	closeOnce sync.Once
	closed    chan struct{}
}

func NewClient(relay *Relay, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		relay:  relay,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID,
		closed: make(chan struct{}),
	}
}

// UserID returns the identity bound to this connection.
func (c *Client) UserID() uuid.UUID {
	return c.userID
}

// Push queues an encoded event for delivery. It never blocks: a full buffer
// or a closed connection reports an error, which callers treat as
// "recipient offline".
func (c *Client) Push(data []byte) error {
	select {
	case <-c.closed:
		return errClientGone
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.closed:
		return errClientGone
	default:
		return errors.New("send buffer full")
	}
}

// Close makes the connection unusable for pushes and wakes the write pump.
// Idempotent; safe from any goroutine.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}

func (c *Client) ReadPump() {
	defer func() {
		c.relay.handleDisconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("relay: read error: %v", err)
			}
			break
		}

		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			log.Printf("relay: failed to unmarshal event: %v", err)
			continue
		}

		c.handleEvent(&event)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.closed:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleEvent(event *Event) {
	switch event.Type {
	case EventTypeJoin:
		c.relay.handleJoin(c)

	case EventTypeSendMessage:
		var payload SendMessagePayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			c.sendError("INVALID_PAYLOAD", "Invalid send message payload")
			return
		}
		c.relay.handleSendMessage(c, &payload)

	case EventTypeMarkMessageRead:
		var payload MarkMessageReadPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			c.sendError("INVALID_PAYLOAD", "Invalid mark read payload")
			return
		}
		c.relay.handleMarkRead(c, &payload)

	case EventTypeTyping:
		var payload TypingPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			// Typing is best-effort; malformed signals are dropped.
			return
		}
		c.relay.handleTyping(c, &payload)
	}
}

func (c *Client) sendEvent(eventType EventType, payload interface{}) {
	event, err := NewEvent(eventType, payload)
	if err != nil {
		log.Printf("relay: failed to build %s event: %v", eventType, err)
		return
	}
	data, err := event.Encode()
	if err != nil {
		log.Printf("relay: failed to encode %s event: %v", eventType, err)
		return
	}
	if err := c.Push(data); err != nil {
		log.Printf("relay: dropped %s event for %s: %v", eventType, c.userID, err)
	}
}

func (c *Client) sendError(code, message string) {
	c.sendEvent(EventTypeError, ErrorPayload{Code: code, Message: message})
}
