// Package domain contains the user records consumed by billing and care flows.
package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleTrainer = "trainer"
	RoleRider   = "rider"
	RoleAdmin   = "admin"
)

// User is a rider, trainer or admin account. Birthday and parent email are the
// sole inputs to guardian resolution; minor status is never persisted.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Email        string       `gorm:"type:text;not null;uniqueIndex" json:"email"`
	DisplayName  string       `gorm:"type:text;not null;default:''" json:"display_name"`
	PasswordHash *string      `gorm:"type:text" json:"-"`
	Birthday     *time.Time   `gorm:"type:date" json:"birthday,omitempty"`
	ParentEmail  *string      `gorm:"type:text" json:"parent_email,omitempty"`
	Roles        string       `gorm:"type:text;not null;default:'rider'" json:"roles"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// HasRole reports whether the comma-separated role set contains role.
func (u User) HasRole(role string) bool {
	for _, r := range strings.Split(u.Roles, ",") {
		if strings.TrimSpace(r) == role {
			return true
		}
	}
	return false
}

// ParentEmailOrEmpty unwraps the optional parent email.
func (u User) ParentEmailOrEmpty() string {
	if u.ParentEmail == nil {
		return ""
	}
	return *u.ParentEmail
}

var (
	ErrUserNotFound = errors.New("user_not_found")
	ErrInvalidEmail = errors.New("invalid_email")
)
