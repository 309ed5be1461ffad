package domain

import (
	"time"

	"github.com/google/uuid"
)

// OTPMaxAttempts is the total number of verification attempts allowed per
// challenge. The check runs before the increment, so the third attempt may
// still succeed.
const OTPMaxAttempts = 3

// OTPExpiry is how long an issued code stays verifiable.
const OTPExpiry = 10 * time.Minute

// OTPChallenge is a short-lived verification code for a phone number. Only
// the bcrypt hash of the code is persisted. Rows for a phone number are not
// unique; issuing a new challenge marks all prior unverified ones expired.
type OTPChallenge struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	PhoneNumber string    `gorm:"index;not null"`
	CodeHash    string    `gorm:"not null"`
	Attempts    int       `gorm:"not null;default:0"`
	Verified    bool      `gorm:"not null;default:false"`
	ExpiresAt   time.Time `gorm:"index;not null"`
	CreatedAt   time.Time
}

// Active reports whether the challenge can still be verified.
func (c *OTPChallenge) Active(now time.Time) bool {
	return !c.Verified && now.Before(c.ExpiresAt)
}
