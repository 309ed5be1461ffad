package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SessionDuration is the length of an ephemeral session window. Every
// successful OTP verification or explicit extension resets the window to
// this duration.
const SessionDuration = 5 * time.Hour

var phonePattern = regexp.MustCompile(`^[+]?[1-9]\d{1,14}$`)

// ValidPhoneNumber reports whether s looks like an E.164 phone number.
func ValidPhoneNumber(s string) bool {
	return phonePattern.MatchString(s)
}

// SocialLinks is stored as a JSON column on the user row.
type SocialLinks struct {
	Instagram string `json:"instagram,omitempty"`
	Discord   string `json:"discord,omitempty"`
	Reddit    string `json:"reddit,omitempty"`
	Snapchat  string `json:"snapchat,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
}

// User is an ephemeral identity. The row outlives the session window only
// until the purge sweep collects it; there is no explicit delete operation.
type User struct {
	ID             uuid.UUID                          `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	PhoneNumber    string                             `json:"phoneNumber" gorm:"uniqueIndex;not null"`
	Username       string                             `json:"username" gorm:"uniqueIndex;not null"`
	SessionStart   time.Time                          `json:"sessionStart" gorm:"not null"`
	SessionEnd     time.Time                          `json:"sessionEnd" gorm:"index;not null"`
	IsActive       bool                               `json:"isActive" gorm:"not null;default:true"`
	UpiID          string                             `json:"upiId"`
	Bio            string                             `json:"bio" gorm:"size:150"`
	ProfilePicture string                             `json:"profilePicture"`
	SocialLinks    datatypes.JSONType[SocialLinks]    `json:"socialLinks"`
	LastActive     time.Time                          `json:"lastActive"`
	CreatedAt      time.Time                          `json:"createdAt"`
	UpdatedAt      time.Time                          `json:"updatedAt"`
}

// Live reports whether the identity is currently valid: the session window
// has not closed and the user has not logged out.
func (u *User) Live(now time.Time) bool {
	return u.IsActive && now.Before(u.SessionEnd)
}

// Expired reports whether the session window has passed.
func (u *User) Expired(now time.Time) bool {
	return !now.Before(u.SessionEnd)
}

// TimeRemaining returns max(0, sessionEnd - now).
func (u *User) TimeRemaining(now time.Time) time.Duration {
	remaining := u.SessionEnd.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Follow is one directional edge of the relationship graph: the follower
// follows the followee. A follows B iff exactly one row (A, B) exists.
type Follow struct {
	FollowerID uuid.UUID `gorm:"type:uuid;primaryKey"`
	FolloweeID uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt  time.Time
}

// SessionRemaining is the wire representation of the time left in a session.
type SessionRemaining struct {
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
	Seconds int  `json:"seconds"`
	Expired bool `json:"expired"`
}

// Remaining breaks the session time left into display units.
func (u *User) Remaining(now time.Time) SessionRemaining {
	d := u.TimeRemaining(now)
	if d <= 0 {
		return SessionRemaining{Expired: true}
	}
	return SessionRemaining{
		Hours:   int(d / time.Hour),
		Minutes: int(d % time.Hour / time.Minute),
		Seconds: int(d % time.Minute / time.Second),
	}
}
