package handlers

import (
	"time"

	"github.com/arjun/temporary-social/internal/domain"
	"github.com/arjun/temporary-social/internal/service"
)

// UserResponse is the identity summary returned by auth and user endpoints.
type UserResponse struct {
	ID                   string                   `json:"id"`
	PhoneNumber          string                   `json:"phoneNumber,omitempty"`
	Username             string                   `json:"username"`
	SessionTimeRemaining *domain.SessionRemaining `json:"sessionTimeRemaining,omitempty"`
	SessionStart         *time.Time               `json:"sessionStart,omitempty"`
	SessionEnd           *time.Time               `json:"sessionEnd,omitempty"`
	UpiID                string                   `json:"upiId,omitempty"`
	Bio                  string                   `json:"bio,omitempty"`
	ProfilePicture       string                   `json:"profilePicture,omitempty"`
	SocialLinks          domain.SocialLinks       `json:"socialLinks"`
	FollowersCount       int64                    `json:"followersCount"`
	FollowingCount       int64                    `json:"followingCount"`
	IsFollowing          bool                     `json:"isFollowing,omitempty"`
	IsFollower           bool                     `json:"isFollower,omitempty"`
	LastActive           *time.Time               `json:"lastActive,omitempty"`
}

// newUserResponse renders a public view of a user, without session details.
func newUserResponse(summary *service.UserSummary) UserResponse {
	user := summary.User
	return UserResponse{
		ID:             user.ID.String(),
		Username:       user.Username,
		Bio:            user.Bio,
		ProfilePicture: user.ProfilePicture,
		SocialLinks:    user.SocialLinks.Data(),
		FollowersCount: summary.FollowersCount,
		FollowingCount: summary.FollowingCount,
		IsFollowing:    summary.IsFollowing,
		IsFollower:     summary.IsFollower,
	}
}

// newOwnUserResponse renders the caller's own view, session window included.
func newOwnUserResponse(summary *service.UserSummary, now time.Time) UserResponse {
	user := summary.User
	remaining := user.Remaining(now)
	resp := newUserResponse(summary)
	resp.PhoneNumber = user.PhoneNumber
	resp.UpiID = user.UpiID
	resp.SessionTimeRemaining = &remaining
	resp.SessionStart = &user.SessionStart
	resp.SessionEnd = &user.SessionEnd
	resp.LastActive = &user.LastActive
	return resp
}
