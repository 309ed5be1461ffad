package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arjun/temporary-social/internal/domain"
)

var phoneCounter atomic.Int64

// nextPhoneNumber returns a unique E.164 number for test users
func nextPhoneNumber() string {
	n := phoneCounter.Add(1)
	return fmt.Sprintf("+9198%08d", n)
}

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	phoneNumber string
	username    string
	upiID       string
	bio         string
	sessionEnd  time.Time
	isActive    bool
}

// NewUserBuilder creates a new UserBuilder with a fresh five-hour session
func NewUserBuilder() *UserBuilder {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return &UserBuilder{
		phoneNumber: nextPhoneNumber(),
		username:    fmt.Sprintf("testuser_%s", suffix),
		upiID:       fmt.Sprintf("test_%s@upi", suffix),
		sessionEnd:  time.Now().Add(domain.SessionDuration),
		isActive:    true,
	}
}

func (b *UserBuilder) WithPhoneNumber(phone string) *UserBuilder {
	b.phoneNumber = phone
	return b
}

func (b *UserBuilder) WithUsername(username string) *UserBuilder {
	b.username = username
	return b
}

func (b *UserBuilder) WithUpiID(upiID string) *UserBuilder {
	b.upiID = upiID
	return b
}

func (b *UserBuilder) WithBio(bio string) *UserBuilder {
	b.bio = bio
	return b
}

// WithSessionEnd overrides the session window close, for expiry tests
func (b *UserBuilder) WithSessionEnd(end time.Time) *UserBuilder {
	b.sessionEnd = end
	return b
}

func (b *UserBuilder) Inactive() *UserBuilder {
	b.isActive = false
	return b
}

// Build creates the user in the database
func (b *UserBuilder) Build(t *testing.T, db *gorm.DB) *domain.User {
	t.Helper()

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		PhoneNumber:  b.phoneNumber,
		Username:     b.username,
		SessionStart: b.sessionEnd.Add(-domain.SessionDuration),
		SessionEnd:   b.sessionEnd,
		IsActive:     b.isActive,
		UpiID:        b.upiID,
		Bio:          b.bio,
		LastActive:   now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user
}

// AuthResponse matches the API auth response
type AuthResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

// BuildAndAuthenticate registers the user through the OTP flow and returns
// the user and a session token. Relies on the dev-mode OTP echo.
func (b *UserBuilder) BuildAndAuthenticate(t *testing.T, ts *TestServer) (*domain.User, string) {
	t.Helper()

	code := SendOTP(t, ts, b.phoneNumber)

	body, _ := json.Marshal(map[string]string{
		"phoneNumber": b.phoneNumber,
		"otp":         code,
		"username":    b.username,
	})
	resp, err := http.Post(ts.APIURL("/auth/verify-otp"), "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("failed to verify OTP: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	userID, err := uuid.Parse(authResp.User.ID)
	if err != nil {
		t.Fatalf("invalid user ID in response: %v", err)
	}

	ctx := context.Background()
	user, err := ts.Repos.User.GetByID(ctx, userID)
	if err != nil {
		t.Fatalf("failed to load user: %v", err)
	}

	if b.upiID != "" {
		user.UpiID = b.upiID
		if err := ts.Repos.User.Update(ctx, user); err != nil {
			t.Fatalf("failed to set UPI ID: %v", err)
		}
	}

	return user, authResp.Token
}

// SendOTP requests an OTP for the phone number and returns the echoed code
func SendOTP(t *testing.T, ts *TestServer, phoneNumber string) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"phoneNumber": phoneNumber})
	resp, err := http.Post(ts.APIURL("/auth/send-otp"), "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("failed to send OTP: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	var otpResp struct {
		OTP string `json:"otp"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&otpResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if otpResp.OTP == "" {
		t.Fatal("expected OTP echo in development mode")
	}

	return otpResp.OTP
}

// MessageBuilder creates test messages with a builder pattern
type MessageBuilder struct {
	sender    *domain.User
	recipient *domain.User
	content   string
	kind      domain.MessageKind
	isRead    bool
	expiresAt time.Time
}

func NewMessageBuilder(sender, recipient *domain.User) *MessageBuilder {
	return &MessageBuilder{
		sender:    sender,
		recipient: recipient,
		content:   "hello",
		kind:      domain.MessageKindText,
		expiresAt: time.Now().Add(domain.MessageTTL),
	}
}

func (b *MessageBuilder) WithContent(content string) *MessageBuilder {
	b.content = content
	return b
}

func (b *MessageBuilder) WithKind(kind domain.MessageKind) *MessageBuilder {
	b.kind = kind
	return b
}

func (b *MessageBuilder) Read() *MessageBuilder {
	b.isRead = true
	return b
}

func (b *MessageBuilder) WithExpiresAt(expiresAt time.Time) *MessageBuilder {
	b.expiresAt = expiresAt
	return b
}

func (b *MessageBuilder) Build(t *testing.T, db *gorm.DB) *domain.Message {
	t.Helper()

	msg := &domain.Message{
		ID:          uuid.New(),
		SenderID:    b.sender.ID,
		RecipientID: b.recipient.ID,
		Content:     b.content,
		Kind:        b.kind,
		IsRead:      b.isRead,
		ExpiresAt:   b.expiresAt,
		CreatedAt:   time.Now(),
	}
	if b.isRead {
		now := time.Now()
		msg.ReadAt = &now
	}

	if err := db.Create(msg).Error; err != nil {
		t.Fatalf("failed to create message: %v", err)
	}

	return msg
}

// PaymentBuilder creates test payments with a builder pattern
type PaymentBuilder struct {
	sender    *domain.User
	recipient *domain.User
	amount    int64
	status    domain.PaymentStatus
	expiresAt time.Time
}

func NewPaymentBuilder(sender, recipient *domain.User) *PaymentBuilder {
	return &PaymentBuilder{
		sender:    sender,
		recipient: recipient,
		amount:    500,
		status:    domain.PaymentStatusPending,
		expiresAt: time.Now().Add(domain.PaymentTTL),
	}
}

func (b *PaymentBuilder) WithAmount(amount int64) *PaymentBuilder {
	b.amount = amount
	return b
}

func (b *PaymentBuilder) WithStatus(status domain.PaymentStatus) *PaymentBuilder {
	b.status = status
	return b
}

func (b *PaymentBuilder) WithExpiresAt(expiresAt time.Time) *PaymentBuilder {
	b.expiresAt = expiresAt
	return b
}

func (b *PaymentBuilder) Build(t *testing.T, db *gorm.DB) *domain.Payment {
	t.Helper()

	payment := &domain.Payment{
		ID:             uuid.New(),
		SenderID:       b.sender.ID,
		RecipientID:    b.recipient.ID,
		Amount:         b.amount,
		Currency:       "INR",
		Description:    "test payment",
		SenderUpiID:    b.sender.UpiID,
		RecipientUpiID: b.recipient.UpiID,
		TransactionID:  "TXN_" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:16],
		Status:         b.status,
		ExpiresAt:      b.expiresAt,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}

	return payment
}
