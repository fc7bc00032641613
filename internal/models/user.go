// Package models defines the persisted entities and API payloads.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a registered account. The password hash never leaves the server.
type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email        string    `gorm:"type:varchar(254);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `gorm:"not null" json:"-"`
}

// TableName returns the database table name for User.
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a server-side identifier.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Public returns the client-facing projection of the user.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email}
}

// PublicUser is the {id, email} shape returned by the auth endpoints.
type PublicUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Identity is the caller resolved from a verified session token. Every post
// operation is scoped by it.
type Identity struct {
	UserID string
	Email  string
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token string     `json:"token"`
	User  PublicUser `json:"user"`
}

// NormalizeEmail trims and lower-cases an address so uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
