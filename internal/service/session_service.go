package service

import (
	"context"
	"errors"
	"time"

	"github.com/arjun/temporary-social/internal/config"
	"github.com/arjun/temporary-social/internal/domain"
	"github.com/arjun/temporary-social/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionService owns the Identity lifecycle: registration, session window
// resets, expiry predicates and token handling. Nothing here deletes a user
// row; the purge sweep collects expired identities.
type SessionService struct {
	userRepo repository.UserRepository
	cfg      *config.Config
}

func NewSessionService(userRepo repository.UserRepository, cfg *config.Config) *SessionService {
	return &SessionService{
		userRepo: userRepo,
		cfg:      cfg,
	}
}

// SessionState classifies how close a session is to expiry.
type SessionState string

const (
	SessionStateOK           SessionState = "ok"
	SessionStateExpiringSoon SessionState = "expiring_soon"
	SessionStateCritical     SessionState = "critical"
	SessionStateExpired      SessionState = "expired"
)

// Register creates a new identity with a fresh session window. The caller is
// responsible for sequencing this after a successful OTP verification.
func (s *SessionService) Register(ctx context.Context, phoneNumber, username string) (*domain.User, error) {
	if !domain.ValidPhoneNumber(phoneNumber) {
		return nil, &domain.ValidationError{Field: "phoneNumber", Reason: "must be a valid phone number"}
	}
	if len(username) < 3 || len(username) > 30 {
		return nil, &domain.ValidationError{Field: "username", Reason: "must be 3-30 characters"}
	}

	if existing, err := s.userRepo.GetByUsername(ctx, username); err == nil && existing != nil {
		return nil, domain.ErrUsernameTaken
	}
	if existing, err := s.userRepo.GetByPhoneNumber(ctx, phoneNumber); err == nil && existing != nil {
		return nil, domain.ErrPhoneTaken
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		PhoneNumber:  phoneNumber,
		Username:     username,
		SessionStart: now,
		SessionEnd:   now.Add(s.cfg.SessionDuration),
		IsActive:     true,
		LastActive:   now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ResumeOrExtend resets the session window for an existing identity, or
// signals that registration must continue when the phone number is unknown.
func (s *SessionService) ResumeOrExtend(ctx context.Context, phoneNumber string) (*domain.User, error) {
	user, err := s.userRepo.GetByPhoneNumber(ctx, phoneNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRegistrationRequired
		}
		return nil, err
	}
	return s.reset(ctx, user)
}

// Extend is the explicit client-triggered session reset, independent of any
// OTP verification.
func (s *SessionService) Extend(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.reset(ctx, user)
}

func (s *SessionService) reset(ctx context.Context, user *domain.User) (*domain.User, error) {
	now := time.Now()
	user.SessionStart = now
	user.SessionEnd = now.Add(s.cfg.SessionDuration)
	user.IsActive = true
	user.LastActive = now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Classify buckets the remaining session time per the warning thresholds.
func (s *SessionService) Classify(user *domain.User, now time.Time) SessionState {
	remaining := user.TimeRemaining(now)
	switch {
	case remaining <= 0:
		return SessionStateExpired
	case remaining <= s.cfg.CriticalWindow:
		return SessionStateCritical
	case remaining <= s.cfg.WarningWindow:
		return SessionStateExpiringSoon
	}
	return SessionStateOK
}

func (s *SessionService) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Touch records activity on every authenticated request. It writes only the
// last_active column; the user snapshot may be stale by the time it runs and
// must not overwrite a concurrent extend or logout.
func (s *SessionService) Touch(ctx context.Context, user *domain.User) {
	user.LastActive = time.Now()
	_ = s.userRepo.TouchLastActive(ctx, user.ID, user.LastActive)
}

// Logout deactivates the identity. The row stays until the purge sweep
// collects it.
func (s *SessionService) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.userRepo.Deactivate(ctx, userID)
}

// GenerateToken mints a session token whose lifetime matches the session
// window. Token validity is still re-checked against the live user row on
// every authenticated request.
func (s *SessionService) GenerateToken(user *domain.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"phone": user.PhoneNumber,
		"exp":   time.Now().Add(s.cfg.SessionDuration).Unix(),
		"iat":   time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// ValidateToken parses the token and returns the identity it names after
// confirming the identity is still live.
func (s *SessionService) ValidateToken(ctx context.Context, tokenString string) (*domain.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, err
	}

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Live(time.Now()) {
		return nil, domain.ErrSessionExpired
	}
	return user, nil
}
