package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Gender values accepted on registration.
const (
	GenderMale   = "M"
	GenderFemale = "F"
	GenderOther  = "Other"
)

const (
	MaxUsernameLength = 50
	MaxFullNameLength = 200
	MinPasswordLength = 8

	// SearchLimit caps user search results.
	SearchLimit = 20
)

// User represents an account. Friends are not loaded with the record; they are
// an id set stored on both sides and resolved only when a response needs them.
type User struct {
	ID                uuid.UUID      `db:"id" json:"_id"`
	ExternalID        string         `db:"external_id" json:"auth0_id"`
	Username          string         `db:"username" json:"username"`
	Email             string         `db:"email" json:"email"`
	PasswordHashed    string         `db:"password_hashed" json:"-"` // "-" hides from JSON output
	FullName          string         `db:"full_name" json:"full_name"`
	ProfilePicture    *string        `db:"profile_picture" json:"profile_picture"`
	ProfilePictureKey *string        `db:"profile_picture_key" json:"-"`
	Age               *int           `db:"age" json:"age"`
	Gender            *string        `db:"gender" json:"gender"`
	Challenges        pq.StringArray `db:"challenges" json:"challenges"`
	JoinDate          time.Time      `db:"join_date" json:"join_date"`
}

// UserSummary is the basic public view of a user embedded in other responses.
type UserSummary struct {
	ID             uuid.UUID `db:"id" json:"_id"`
	Username       string    `db:"username" json:"username"`
	FullName       string    `db:"full_name" json:"full_name"`
	ProfilePicture *string   `db:"profile_picture" json:"profile_picture"`
}

// Summary projects a user onto its public view.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:             u.ID,
		Username:       u.Username,
		FullName:       u.FullName,
		ProfilePicture: u.ProfilePicture,
	}
}

// ProfileResponse is the self-view of an account, friends resolved.
type ProfileResponse struct {
	*User
	Friends []UserSummary `json:"friends"`
}

// RegisterRequest represents the data needed to register a new user
type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Username string  `json:"username"`
	FullName string  `json:"full_name"`
	Age      *int    `json:"age"`
	Gender   *string `json:"gender"`
}

// LoginRequest represents the data needed to log in
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest carries the editable profile fields. Empty values are ignored.
type UpdateProfileRequest struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

var (
	ErrUserNotFound       = newError(KindNotFound, "USER_NOT_FOUND", "User not found")
	ErrUsernameExists     = newError(KindConflict, "USERNAME_EXISTS", "Username already exists")
	ErrEmailExists        = newError(KindConflict, "EMAIL_EXISTS", "Email already exists")
	ErrInvalidCredentials = newError(KindUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	ErrEmptySearchQuery   = newError(KindValidation, "BAD_REQUEST", "Search query required")
)
