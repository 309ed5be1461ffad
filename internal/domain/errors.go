package domain

import (
	"errors"
	"fmt"
)

// OTP errors
var (
	ErrOTPNotFound          = errors.New("no challenge found for this phone number")
	ErrOTPExpired           = errors.New("challenge has expired")
	ErrOTPAttemptsExhausted = errors.New("maximum verification attempts exceeded")
)

// OTPMismatchError is returned on a wrong code while attempts remain.
type OTPMismatchError struct {
	Remaining int
}

func (e *OTPMismatchError) Error() string {
	return fmt.Sprintf("invalid code, %d attempts remaining", e.Remaining)
}

// Identity errors
var (
	ErrUsernameTaken        = errors.New("username already taken")
	ErrPhoneTaken           = errors.New("phone number already registered")
	ErrUserNotFound         = errors.New("user not found")
	ErrRegistrationRequired = errors.New("username required for new users")
	ErrSessionExpired       = errors.New("session has expired")
)

// Relationship errors
var (
	ErrSelfFollow       = errors.New("cannot follow yourself")
	ErrAlreadyFollowing = errors.New("already following this user")
	ErrNotFollowing     = errors.New("not following this user")
)

// Message errors
var (
	ErrMessageNotFound = errors.New("message not found")
	ErrSelfMessage     = errors.New("cannot send message to yourself")
)

// Payment errors
var (
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrSelfPayment         = errors.New("cannot send payment to yourself")
	ErrUpiIDMissing        = errors.New("UPI ID not configured")
	ErrInvalidTransition   = errors.New("invalid payment status transition")
)

// ValidationError marks malformed input that the caller must fix; it is never
// retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DependencyError wraps a failure of an external collaborator (SMS notifier,
// payment gateway). Development mode may swallow it with a local fallback.
type DependencyError struct {
	Dependency string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}
