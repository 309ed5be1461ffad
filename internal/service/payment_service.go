package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/arjun/temporary-social/internal/config"
	"github.com/arjun/temporary-social/internal/domain"
	"github.com/arjun/temporary-social/internal/gateway"
	"github.com/arjun/temporary-social/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PaymentService struct {
	paymentRepo repository.PaymentRepository
	userRepo    repository.UserRepository
	messages    *MessageService
	gw          gateway.Gateway
	cfg         *config.Config
}

func NewPaymentService(paymentRepo repository.PaymentRepository, userRepo repository.UserRepository, messages *MessageService, gw gateway.Gateway, cfg *config.Config) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		messages:    messages,
		gw:          gw,
		cfg:         cfg,
	}
}

type CreatePaymentInput struct {
	SenderID    uuid.UUID
	RecipientID uuid.UUID
	Amount      int64
	Description string
	DeviceInfo  string
	IPAddress   string
}

// Create validates the request, registers a gateway order and persists the
// payment plus its payment-request message. All validation runs before any
// write: a sender without a UPI address never produces a record.
func (s *PaymentService) Create(ctx context.Context, input CreatePaymentInput) (*domain.Payment, error) {
	if input.Amount < domain.MinPaymentAmount || input.Amount > domain.MaxPaymentAmount {
		return nil, &domain.ValidationError{Field: "amount", Reason: fmt.Sprintf("must be between %d and %d", domain.MinPaymentAmount, domain.MaxPaymentAmount)}
	}
	if len(input.Description) > 200 {
		return nil, &domain.ValidationError{Field: "description", Reason: "exceeds maximum length"}
	}
	if input.SenderID == input.RecipientID {
		return nil, domain.ErrSelfPayment
	}

	sender, err := s.userRepo.GetByID(ctx, input.SenderID)
	if err != nil {
		return nil, err
	}
	if sender.UpiID == "" {
		return nil, &domain.ValidationError{Field: "upiId", Reason: "sender has no UPI ID configured"}
	}

	recipient, err := s.userRepo.GetByID(ctx, input.RecipientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	if recipient.UpiID == "" {
		return nil, &domain.ValidationError{Field: "upiId", Reason: "recipient has no UPI ID configured"}
	}

	txnID := "TXN_" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:16]
	payment := &domain.Payment{
		ID:             uuid.New(),
		SenderID:       sender.ID,
		RecipientID:    recipient.ID,
		Amount:         input.Amount,
		Currency:       "INR",
		Description:    input.Description,
		SenderUpiID:    sender.UpiID,
		RecipientUpiID: recipient.UpiID,
		TransactionID:  txnID,
		Status:         domain.PaymentStatusPending,
		Metadata: datatypes.NewJSONType(domain.PaymentMetadata{
			DeviceInfo: input.DeviceInfo,
			IPAddress:  input.IPAddress,
		}),
		ExpiresAt: time.Now().Add(s.cfg.PaymentTTL),
	}

	orderID, err := s.gw.CreateOrder(ctx, input.Amount*100, payment.Currency, txnID)
	if err != nil {
		if !s.cfg.IsDevelopment() {
			return nil, &domain.DependencyError{Dependency: "payment gateway", Err: err}
		}
		log.Printf("gateway order creation failed for %s, continuing without order: %v", txnID, err)
	} else {
		payment.GatewayOrderID = orderID
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	content := fmt.Sprintf("Payment request for ₹%d", input.Amount)
	if input.Description != "" {
		content += ": " + input.Description
	}
	_, err = s.messages.Send(ctx, SendMessageInput{
		SenderID:    sender.ID,
		RecipientID: recipient.ID,
		Content:     content,
		Kind:        domain.MessageKindPaymentRequest,
		PaymentData: &domain.PaymentData{
			Amount:        input.Amount,
			UpiID:         recipient.UpiID,
			TransactionID: txnID,
			Status:        string(domain.PaymentStatusPending),
		},
	})
	if err != nil {
		log.Printf("failed to create payment request message for %s: %v", txnID, err)
	}

	return payment, nil
}

// UPILinkResult carries the generated deep link plus the data a client needs
// to render a QR code.
type UPILinkResult struct {
	UPIURL        string `json:"upiUrl"`
	Amount        int64  `json:"amount"`
	RecipientName string `json:"recipientName"`
	RecipientUpi  string `json:"recipientUpi"`
	TransactionID string `json:"transactionId"`
	Description   string `json:"description"`
}

// UPILink builds the upi:// deep link for a payment. Only the payment's
// sender may request it.
func (s *PaymentService) UPILink(ctx context.Context, paymentID, callerID uuid.UUID) (*UPILinkResult, error) {
	payment, err := s.getPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.SenderID != callerID {
		return nil, domain.ErrPaymentNotFound
	}

	recipient, err := s.userRepo.GetByID(ctx, payment.RecipientID)
	if err != nil {
		return nil, err
	}

	note := payment.Description
	if note == "" {
		note = "Payment from Temporary Social"
	}
	upiURL := fmt.Sprintf("upi://pay?pa=%s&pn=%s&am=%d&cu=%s&tn=%s&tr=%s",
		payment.RecipientUpiID, url.QueryEscape(recipient.Username), payment.Amount,
		payment.Currency, url.QueryEscape(note), payment.TransactionID)

	result := &UPILinkResult{
		UPIURL:        upiURL,
		Amount:        payment.Amount,
		RecipientName: recipient.Username,
		RecipientUpi:  payment.RecipientUpiID,
		TransactionID: payment.TransactionID,
		Description:   payment.Description,
	}

	qr, _ := json.Marshal(result)
	payment.QRCodeData = string(qr)
	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return nil, err
	}
	return result, nil
}

type VerifyPaymentInput struct {
	PaymentID        uuid.UUID
	GatewayPaymentID string
	Signature        string
}

// Verify completes a payment. Production requires a valid gateway signature;
// development accepts manual verification. On success a confirmation message
// is sent from the recipient back to the sender.
func (s *PaymentService) Verify(ctx context.Context, input VerifyPaymentInput) (*domain.Payment, error) {
	payment, err := s.getPayment(ctx, input.PaymentID)
	if err != nil {
		return nil, err
	}

	if !s.cfg.IsDevelopment() {
		if input.GatewayPaymentID == "" || input.Signature == "" {
			return nil, &domain.ValidationError{Field: "signature", Reason: "payment id and signature are required"}
		}
		if !s.gw.VerifySignature(payment.GatewayOrderID, input.GatewayPaymentID, input.Signature) {
			if err := s.transition(ctx, payment, domain.PaymentStatusFailed, "invalid signature verification"); err != nil {
				return nil, err
			}
			return nil, &domain.ValidationError{Field: "signature", Reason: "verification failed"}
		}
	}

	payment.GatewayPaymentID = input.GatewayPaymentID
	if err := s.transition(ctx, payment, domain.PaymentStatusCompleted, ""); err != nil {
		return nil, err
	}

	_, err = s.messages.Send(ctx, SendMessageInput{
		SenderID:    payment.RecipientID,
		RecipientID: payment.SenderID,
		Content:     fmt.Sprintf("Payment of ₹%d received successfully!", payment.Amount),
		Kind:        domain.MessageKindPaymentConfirmation,
		PaymentData: &domain.PaymentData{
			Amount:        payment.Amount,
			TransactionID: payment.TransactionID,
			Status:        string(domain.PaymentStatusCompleted),
		},
	})
	if err != nil {
		log.Printf("failed to create payment confirmation message for %s: %v", payment.TransactionID, err)
	}

	return payment, nil
}

// Cancel moves a pending payment to cancelled. Either party may cancel.
func (s *PaymentService) Cancel(ctx context.Context, paymentID, callerID uuid.UUID) (*domain.Payment, error) {
	payment, err := s.getPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.SenderID != callerID && payment.RecipientID != callerID {
		return nil, domain.ErrPaymentNotFound
	}
	if err := s.transition(ctx, payment, domain.PaymentStatusCancelled, ""); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) History(ctx context.Context, userID uuid.UUID, status domain.PaymentStatus, limit int) ([]*domain.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.paymentRepo.History(ctx, userID, status, limit)
}

func (s *PaymentService) Pending(ctx context.Context, userID uuid.UUID) ([]*domain.Payment, error) {
	return s.paymentRepo.Pending(ctx, userID)
}

// transition applies the state machine; terminal states absorb.
func (s *PaymentService) transition(ctx context.Context, payment *domain.Payment, next domain.PaymentStatus, failureReason string) error {
	if !payment.Status.CanTransition(next) {
		return domain.ErrInvalidTransition
	}
	payment.Status = next
	payment.FailureReason = failureReason
	if next == domain.PaymentStatusCompleted {
		now := time.Now()
		payment.CompletedAt = &now
	}
	return s.paymentRepo.Update(ctx, payment)
}

func (s *PaymentService) getPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}
