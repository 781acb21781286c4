// Package model defines the data structures used throughout the application.
package model

import "time"

// Roles a user can hold. Admin unlocks the /api/admin endpoints.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Genders accepted on registration and profile updates. Empty means unset.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
)

// User is a storefront account.
//
// Accounts come from email/password registration or from the first Google
// sign-in. Google users have no PasswordHash; password users have no
// GoogleID. Email is unique across both kinds, which is how a Google login
// links to an account that registered with a password first.
//
// PasswordHash is tagged json:"-" so it can never leak through an API
// response, even when a handler serializes the whole struct.
type User struct {
	ID             string    `json:"id"             db:"id"`
	GoogleID       *string   `json:"googleId,omitempty" db:"google_id"`
	Name           string    `json:"name"           db:"name"`
	Email          string    `json:"email"          db:"email"`
	PasswordHash   string    `json:"-"              db:"password_hash"`
	Phone          string    `json:"phone"          db:"phone"`
	Gender         string    `json:"gender"         db:"gender"`
	Address        string    `json:"address"        db:"address"`
	ProfilePicture *string   `json:"profilePicture" db:"profile_picture"` // blob id, nil when unset
	Role           string    `json:"role"           db:"role"`
	CreatedAt      time.Time `json:"createdAt"      db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt"      db:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
