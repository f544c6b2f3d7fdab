// Package domain holds training-session records and their lifecycle contract.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// SessionStatus is the lifecycle state of a training session.
type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// TrainingSession is one scheduled lesson between a trainer and a rider.
// Verification is a one-way transition performed by the rider; only verified
// sessions count toward billing revenue.
type TrainingSession struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	TrainerID   snowflake.ID  `gorm:"not null;index" json:"trainer_id"`
	RiderID     snowflake.ID  `gorm:"not null;index" json:"rider_id"`
	SessionType string        `gorm:"type:text;not null" json:"session_type"`
	SessionDate time.Time     `gorm:"not null" json:"session_date"`
	Status      SessionStatus `gorm:"type:text;not null;default:'scheduled'" json:"status"`
	Verified    bool          `gorm:"not null;default:false" json:"verified"`
	VerifiedAt  *time.Time    `json:"verified_at,omitempty"`
	CreatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (TrainingSession) TableName() string { return "training_sessions" }

type CreateRequest struct {
	RiderID     string    `json:"rider_id"`
	SessionType string    `json:"session_type"`
	SessionDate time.Time `json:"session_date"`
}

type ListRequest struct {
	From *time.Time `form:"from"`
	To   *time.Time `form:"to"`
}

type Service interface {
	Create(ctx context.Context, trainerID snowflake.ID, req CreateRequest) (*TrainingSession, error)
	Verify(ctx context.Context, riderID, sessionID snowflake.ID) (*TrainingSession, error)
	Cancel(ctx context.Context, trainerID, sessionID snowflake.ID) (*TrainingSession, error)
	ListForTrainer(ctx context.Context, trainerID snowflake.ID, req ListRequest) ([]TrainingSession, error)
}

var (
	ErrInvalidRider       = errors.New("invalid_rider")
	ErrInvalidSessionType = errors.New("invalid_session_type")
	ErrInvalidSessionDate = errors.New("invalid_session_date")
	ErrSessionNotFound    = errors.New("session_not_found")
	ErrNotSessionRider    = errors.New("not_session_rider")
	ErrNotSessionTrainer  = errors.New("not_session_trainer")
	ErrAlreadyVerified    = errors.New("session_already_verified")
	ErrSessionCancelled   = errors.New("session_cancelled")
)
