// Package notify abstracts outbound SMS delivery for OTP codes.
package notify

import (
	"context"
	"log"
)

// Notifier sends a text message to a phone number.
type Notifier interface {
	Send(ctx context.Context, phoneNumber, text string) error
}

// LogNotifier writes messages to the process log instead of sending SMS.
// Used in development and as the fail-open fallback when no gateway is
// configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(_ context.Context, phoneNumber, text string) error {
	log.Printf("[SMS] to %s: %s", phoneNumber, text)
	return nil
}
