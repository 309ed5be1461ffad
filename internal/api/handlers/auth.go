package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/arjun/temporary-social/internal/api/middleware"
	"github.com/arjun/temporary-social/internal/domain"
	"github.com/arjun/temporary-social/internal/service"
)

type AuthHandler struct {
	otpService     *service.OTPService
	sessionService *service.SessionService
	profileService *service.ProfileService
	devMode        bool
}

func NewAuthHandler(otp *service.OTPService, session *service.SessionService, profile *service.ProfileService, devMode bool) *AuthHandler {
	return &AuthHandler{
		otpService:     otp,
		sessionService: session,
		profileService: profile,
		devMode:        devMode,
	}
}

type SendOTPRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type SendOTPResponse struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
	OTP       string    `json:"otp,omitempty"`
}

type VerifyOTPRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Code        string `json:"otp"`
	Username    string `json:"username,omitempty"`
}

type AuthResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    UserResponse `json:"user"`
}

func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req SendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.PhoneNumber == "" {
		http.Error(w, "Phone number is required", http.StatusBadRequest)
		return
	}

	challenge, code, err := h.otpService.Issue(r.Context(), req.PhoneNumber)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			http.Error(w, vErr.Error(), http.StatusBadRequest)
			return
		}
		var depErr *domain.DependencyError
		if errors.As(err, &depErr) {
			http.Error(w, "Failed to send OTP", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := SendOTPResponse{
		Message:   "OTP sent successfully",
		ExpiresAt: challenge.ExpiresAt,
	}
	if h.devMode {
		resp.OTP = code
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.PhoneNumber == "" || req.Code == "" {
		http.Error(w, "Phone number and OTP are required", http.StatusBadRequest)
		return
	}

	if err := h.otpService.Verify(r.Context(), req.PhoneNumber, req.Code); err != nil {
		var mismatch *domain.OTPMismatchError
		switch {
		case errors.As(err, &mismatch):
			http.Error(w, mismatch.Error(), http.StatusUnauthorized)
		case errors.Is(err, domain.ErrOTPNotFound), errors.Is(err, domain.ErrOTPExpired):
			http.Error(w, "OTP expired or not found, please request a new one", http.StatusUnauthorized)
		case errors.Is(err, domain.ErrOTPAttemptsExhausted):
			http.Error(w, "Too many failed attempts, please request a new OTP", http.StatusUnauthorized)
		default:
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	var user *domain.User
	var err error
	if req.Username != "" {
		user, err = h.sessionService.Register(r.Context(), req.PhoneNumber, req.Username)
		if errors.Is(err, domain.ErrPhoneTaken) {
			// Phone already registered, fall back to resuming that session.
			user, err = h.sessionService.ResumeOrExtend(r.Context(), req.PhoneNumber)
		}
	} else {
		user, err = h.sessionService.ResumeOrExtend(r.Context(), req.PhoneNumber)
	}
	if err != nil {
		if errors.Is(err, domain.ErrRegistrationRequired) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{
				"error":   "Username is required for new users",
				"newUser": true,
			})
			return
		}
		if errors.Is(err, domain.ErrUsernameTaken) {
			http.Error(w, "Username already taken", http.StatusConflict)
			return
		}
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			http.Error(w, vErr.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	token, err := h.sessionService.GenerateToken(user)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	summary, err := h.profileService.Get(r.Context(), user.ID, user.ID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := AuthResponse{
		Message: "Authentication successful",
		Token:   token,
		User:    newOwnUserResponse(summary, time.Now()),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	summary, err := h.profileService.Get(r.Context(), user.ID, user.ID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"user":         newOwnUserResponse(summary, time.Now()),
		"sessionState": h.sessionService.Classify(user, time.Now()),
	})
}

func (h *AuthHandler) ExtendSession(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	updated, err := h.sessionService.Extend(r.Context(), user.ID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	token, err := h.sessionService.GenerateToken(updated)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	summary, err := h.profileService.Get(r.Context(), updated.ID, updated.ID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := AuthResponse{
		Message: "Session extended",
		Token:   token,
		User:    newOwnUserResponse(summary, time.Now()),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	if err := h.sessionService.Logout(r.Context(), user.ID); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Logged out successfully"})
}
