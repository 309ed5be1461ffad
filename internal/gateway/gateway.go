// Package gateway abstracts the external payment provider. The server only
// needs two capabilities: creating an order and verifying a completion
// signature.
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// Gateway is the payment provider capability consumed by PaymentService.
type Gateway interface {
	// CreateOrder registers an order for amountPaise (minor currency units)
	// and returns the provider's order id.
	CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (string, error)
	// VerifySignature checks the provider's completion signature for an
	// order/payment pair.
	VerifySignature(orderID, paymentID, signature string) bool
}

// SignPayload computes the HMAC-SHA256 hex digest of "orderID|paymentID",
// the signature scheme shared by the real and mock gateways.
func SignPayload(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s|%s", orderID, paymentID)
	return hex.EncodeToString(mac.Sum(nil))
}

// MockGateway fabricates order ids locally and accepts signatures produced
// with its own secret. Used in development and tests.
type MockGateway struct {
	Secret string
}

func NewMockGateway(secret string) *MockGateway {
	return &MockGateway{Secret: secret}
}

func (g *MockGateway) CreateOrder(_ context.Context, _ int64, _, _ string) (string, error) {
	return "order_" + uuid.New().String()[:18], nil
}

func (g *MockGateway) VerifySignature(orderID, paymentID, signature string) bool {
	expected := SignPayload(g.Secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
