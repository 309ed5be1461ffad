package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/arjun/temporary-social/internal/api/middleware"
	"github.com/arjun/temporary-social/internal/domain"
	"github.com/arjun/temporary-social/internal/service"
)

type MessageHandler struct {
	messageService *service.MessageService
}

func NewMessageHandler(messages *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messages}
}

type SendMessageRequest struct {
	RecipientID string              `json:"recipientId"`
	Content     string              `json:"content"`
	Kind        string              `json:"messageType"`
	PaymentData *domain.PaymentData `json:"paymentData"`
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	recipientID, err := uuid.Parse(req.RecipientID)
	if err != nil {
		http.Error(w, "Invalid recipient ID", http.StatusBadRequest)
		return
	}

	msg, err := h.messageService.Send(r.Context(), service.SendMessageInput{
		SenderID:    user.ID,
		RecipientID: recipientID,
		Content:     req.Content,
		Kind:        domain.MessageKind(req.Kind),
		PaymentData: req.PaymentData,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSelfMessage):
			http.Error(w, "You cannot message yourself", http.StatusBadRequest)
		case errors.Is(err, domain.ErrUserNotFound):
			http.Error(w, "Recipient not found", http.StatusNotFound)
		default:
			var vErr *domain.ValidationError
			if errors.As(err, &vErr) {
				http.Error(w, vErr.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"message": msg})
}

func (h *MessageHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	summaries, err := h.messageService.Conversations(r.Context(), user.ID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"conversations": summaries})
}

func (h *MessageHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	peerID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, err := h.messageService.Conversation(r.Context(), user.ID, peerID, limit)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"messages": messages})
}

func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	messageID, err := uuid.Parse(chi.URLParam(r, "messageID"))
	if err != nil {
		http.Error(w, "Invalid message ID", http.StatusBadRequest)
		return
	}

	msg, err := h.messageService.MarkRead(r.Context(), messageID, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrMessageNotFound) {
			http.Error(w, "Message not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"message": msg})
}

func (h *MessageHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	count, err := h.messageService.UnreadCount(r.Context(), user.ID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int64{"unreadCount": count})
}

func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	messageID, err := uuid.Parse(chi.URLParam(r, "messageID"))
	if err != nil {
		http.Error(w, "Invalid message ID", http.StatusBadRequest)
		return
	}

	if err := h.messageService.Delete(r.Context(), messageID, user.ID); err != nil {
		if errors.Is(err, domain.ErrMessageNotFound) {
			http.Error(w, "Message not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Message deleted"})
}
