package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const razorpayAPIBase = "https://api.razorpay.com/v1"

// RazorpayGateway talks to the Razorpay orders API.
type RazorpayGateway struct {
	keyID     string
	keySecret string
	client    *http.Client
}

func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	return &RazorpayGateway{
		keyID:     keyID,
		keySecret: keySecret,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"amount":          amountPaise,
		"currency":        currency,
		"receipt":         receipt,
		"payment_capture": 1,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, razorpayAPIBase+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("razorpay: unexpected status %d", resp.StatusCode)
	}

	var order struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return "", err
	}
	return order.ID, nil
}

func (g *RazorpayGateway) VerifySignature(orderID, paymentID, signature string) bool {
	expected := SignPayload(g.keySecret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
