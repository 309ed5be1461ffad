package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/arjun/temporary-social/internal/config"
	"github.com/arjun/temporary-social/internal/domain"
	"github.com/arjun/temporary-social/internal/notify"
	"github.com/arjun/temporary-social/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// OTPService issues and verifies one-time codes. Codes are stored only as
// bcrypt hashes; the plaintext exists in the notifier dispatch and, in
// development mode, in the issue response.
type OTPService struct {
	otpRepo  repository.OTPRepository
	notifier notify.Notifier
	cfg      *config.Config
}

func NewOTPService(otpRepo repository.OTPRepository, notifier notify.Notifier, cfg *config.Config) *OTPService {
	return &OTPService{
		otpRepo:  otpRepo,
		notifier: notifier,
		cfg:      cfg,
	}
}

// Issue invalidates any prior active challenge for the phone number, stores
// a fresh 6-digit code and dispatches it. The returned code is non-empty so
// development mode can echo it; callers must not log it elsewhere.
func (s *OTPService) Issue(ctx context.Context, phoneNumber string) (*domain.OTPChallenge, string, error) {
	if !domain.ValidPhoneNumber(phoneNumber) {
		return nil, "", &domain.ValidationError{Field: "phoneNumber", Reason: "must be a valid phone number"}
	}

	now := time.Now()
	if err := s.otpRepo.InvalidateActive(ctx, phoneNumber, now); err != nil {
		return nil, "", err
	}

	code, err := generateCode()
	if err != nil {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	challenge := &domain.OTPChallenge{
		PhoneNumber: phoneNumber,
		CodeHash:    string(hash),
		ExpiresAt:   now.Add(s.cfg.OTPExpiry),
	}
	if err := s.otpRepo.Create(ctx, challenge); err != nil {
		return nil, "", err
	}

	text := fmt.Sprintf("Your Temporary Social verification code is: %s. Valid for %d minutes.",
		code, int(s.cfg.OTPExpiry.Minutes()))
	if err := s.notifier.Send(ctx, phoneNumber, text); err != nil {
		if !s.cfg.IsDevelopment() {
			return nil, "", &domain.DependencyError{Dependency: "sms notifier", Err: err}
		}
		// Fail open in development: the code still reaches the caller via
		// the response echo.
		log.Printf("OTP delivery failed for %s, falling back to local log: %v", phoneNumber, err)
		log.Printf("[DEV] OTP for %s: %s", phoneNumber, code)
	}

	return challenge, code, nil
}

// Verify checks code against the most recent unverified challenge for the
// phone number. The attempt counter increments on every comparison, success
// included, and is persisted before the comparison result is returned.
func (s *OTPService) Verify(ctx context.Context, phoneNumber, code string) error {
	challenge, err := s.otpRepo.LatestUnverified(ctx, phoneNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrOTPNotFound
		}
		return err
	}

	now := time.Now()
	if !now.Before(challenge.ExpiresAt) {
		return domain.ErrOTPExpired
	}
	if challenge.Attempts >= s.cfg.OTPMaxAttempts {
		return domain.ErrOTPAttemptsExhausted
	}

	attempts, err := s.otpRepo.IncrementAttempts(ctx, challenge.ID)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(challenge.CodeHash), []byte(code)) != nil {
		remaining := s.cfg.OTPMaxAttempts - attempts
		if remaining < 0 {
			remaining = 0
		}
		return &domain.OTPMismatchError{Remaining: remaining}
	}

	return s.otpRepo.MarkVerified(ctx, challenge.ID)
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
