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

type PaymentHandler struct {
	paymentService *service.PaymentService
}

func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: payments}
}

type CreatePaymentRequest struct {
	RecipientID string `json:"recipientId"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type VerifyPaymentRequest struct {
	GatewayPaymentID string `json:"gatewayPaymentId"`
	Signature        string `json:"signature"`
}

func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	recipientID, err := uuid.Parse(req.RecipientID)
	if err != nil {
		http.Error(w, "Invalid recipient ID", http.StatusBadRequest)
		return
	}

	payment, err := h.paymentService.Create(r.Context(), service.CreatePaymentInput{
		SenderID:    user.ID,
		RecipientID: recipientID,
		Amount:      req.Amount,
		Description: req.Description,
		DeviceInfo:  r.UserAgent(),
		IPAddress:   r.RemoteAddr,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSelfPayment):
			http.Error(w, "You cannot request a payment from yourself", http.StatusBadRequest)
		case errors.Is(err, domain.ErrUpiIDMissing):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, domain.ErrUserNotFound):
			http.Error(w, "Recipient not found", http.StatusNotFound)
		default:
			var vErr *domain.ValidationError
			if errors.As(err, &vErr) {
				http.Error(w, vErr.Error(), http.StatusBadRequest)
				return
			}
			var depErr *domain.DependencyError
			if errors.As(err, &depErr) {
				http.Error(w, "Payment gateway unavailable", http.StatusServiceUnavailable)
				return
			}
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"payment": payment})
}

func (h *PaymentHandler) UPILink(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	paymentID, err := uuid.Parse(chi.URLParam(r, "paymentID"))
	if err != nil {
		http.Error(w, "Invalid payment ID", http.StatusBadRequest)
		return
	}

	link, err := h.paymentService.UPILink(r.Context(), paymentID, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			http.Error(w, "Payment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(link)
}

func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	paymentID, err := uuid.Parse(chi.URLParam(r, "paymentID"))
	if err != nil {
		http.Error(w, "Invalid payment ID", http.StatusBadRequest)
		return
	}

	var req VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	payment, err := h.paymentService.Verify(r.Context(), service.VerifyPaymentInput{
		PaymentID:        paymentID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPaymentNotFound):
			http.Error(w, "Payment not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrInvalidTransition):
			http.Error(w, "Payment cannot be verified in its current state", http.StatusConflict)
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
	json.NewEncoder(w).Encode(map[string]any{
		"message": "Payment verified",
		"payment": payment,
	})
}

func (h *PaymentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	paymentID, err := uuid.Parse(chi.URLParam(r, "paymentID"))
	if err != nil {
		http.Error(w, "Invalid payment ID", http.StatusBadRequest)
		return
	}

	payment, err := h.paymentService.Cancel(r.Context(), paymentID, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPaymentNotFound):
			http.Error(w, "Payment not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrInvalidTransition):
			http.Error(w, "Payment cannot be cancelled in its current state", http.StatusConflict)
		default:
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"message": "Payment cancelled",
		"payment": payment,
	})
}

func (h *PaymentHandler) History(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	status := domain.PaymentStatus(r.URL.Query().Get("status"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	payments, err := h.paymentService.History(r.Context(), user.ID, status, limit)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"payments": payments})
}

func (h *PaymentHandler) Pending(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	payments, err := h.paymentService.Pending(r.Context(), user.ID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"payments": payments})
}
