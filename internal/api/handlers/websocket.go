package handlers

import (
	"errors"
	"log"
	"net/http"

	ws "github.com/gorilla/websocket"

	"github.com/arjun/temporary-social/internal/domain"
	"github.com/arjun/temporary-social/internal/relay"
	"github.com/arjun/temporary-social/internal/service"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

type WebSocketHandler struct {
	relay          *relay.Relay
	sessionService *service.SessionService
}

func NewWebSocketHandler(rl *relay.Relay, session *service.SessionService) *WebSocketHandler {
	return &WebSocketHandler{
		relay:          rl,
		sessionService: session,
	}
}

// Handle authenticates the connection via a token query parameter and hands
// it to the relay. Browsers cannot set headers on websocket upgrades.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Token required", http.StatusUnauthorized)
		return
	}

	user, err := h.sessionService.ValidateToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrSessionExpired) {
			http.Error(w, "Session has expired", http.StatusUnauthorized)
			return
		}
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := relay.NewClient(h.relay, conn, user.ID)

	go client.WritePump()
	go client.ReadPump()
}
