package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/arjun/temporary-social/internal/api/middleware"
	"github.com/arjun/temporary-social/internal/domain"
	"github.com/arjun/temporary-social/internal/service"
)

type UserHandler struct {
	profileService *service.ProfileService
}

func NewUserHandler(profile *service.ProfileService) *UserHandler {
	return &UserHandler{profileService: profile}
}

type UpdateProfileRequest struct {
	Username       *string             `json:"username"`
	Bio            *string             `json:"bio"`
	UpiID          *string             `json:"upiId"`
	ProfilePicture *string             `json:"profilePicture"`
	SocialLinks    *domain.SocialLinks `json:"socialLinks"`
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	updated, err := h.profileService.Update(r.Context(), user.ID, service.UpdateProfileInput{
		Username:       req.Username,
		Bio:            req.Bio,
		UpiID:          req.UpiID,
		ProfilePicture: req.ProfilePicture,
		SocialLinks:    req.SocialLinks,
	})
	if err != nil {
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

	summary, err := h.profileService.Get(r.Context(), updated.ID, updated.ID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"message": "Profile updated",
		"user":    newUserResponse(summary),
	})
}

func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "Search query is required", http.StatusBadRequest)
		return
	}

	summaries, err := h.profileService.Search(r.Context(), query, user.ID, 0)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			http.Error(w, vErr.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	users := make([]UserResponse, 0, len(summaries))
	for _, s := range summaries {
		users = append(users, newUserResponse(s))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"users": users})
}

func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.GetUser(r.Context())

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	summary, err := h.profileService.Get(r.Context(), userID, viewer.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"user": newUserResponse(summary)})
}

func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	followeeID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	if err := h.profileService.Follow(r.Context(), user.ID, followeeID); err != nil {
		switch {
		case errors.Is(err, domain.ErrSelfFollow):
			http.Error(w, "You cannot follow yourself", http.StatusBadRequest)
		case errors.Is(err, domain.ErrAlreadyFollowing):
			http.Error(w, "Already following this user", http.StatusConflict)
		case errors.Is(err, domain.ErrUserNotFound):
			http.Error(w, "User not found", http.StatusNotFound)
		default:
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Followed successfully"})
}

func (h *UserHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	followeeID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	if err := h.profileService.Unfollow(r.Context(), user.ID, followeeID); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFollowing):
			http.Error(w, "Not following this user", http.StatusConflict)
		case errors.Is(err, domain.ErrUserNotFound):
			http.Error(w, "User not found", http.StatusNotFound)
		default:
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Unfollowed successfully"})
}
