// Package domain holds competition entries and per-rider paid services.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PaymentStatus tracks whether a rider's competition services were paid for.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusRequested PaymentStatus = "requested"
	PaymentStatusPaid      PaymentStatus = "paid"
)

// CompetitionEntry is one competition a trainer takes riders to.
type CompetitionEntry struct {
	ID              snowflake.ID       `gorm:"primaryKey" json:"id"`
	TrainerID       snowflake.ID       `gorm:"not null;index" json:"trainer_id"`
	Name            string             `gorm:"type:text;not null;default:''" json:"name"`
	CompetitionDate time.Time          `gorm:"not null" json:"competition_date"`
	Riders          []CompetitionRider `gorm:"foreignKey:CompetitionID" json:"riders,omitempty"`
	CreatedAt       time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (CompetitionEntry) TableName() string { return "competition_entries" }

// CompetitionRider links a rider to a competition with the billable services
// they consumed. Only riders with payment_status=paid count toward revenue.
type CompetitionRider struct {
	ID            snowflake.ID   `gorm:"primaryKey" json:"id"`
	CompetitionID snowflake.ID   `gorm:"not null;index;uniqueIndex:ux_competition_riders,priority:1" json:"competition_id"`
	RiderID       snowflake.ID   `gorm:"not null;uniqueIndex:ux_competition_riders,priority:2" json:"rider_id"`
	Services      datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"services"`
	PaymentStatus PaymentStatus  `gorm:"type:text;not null;default:'pending'" json:"payment_status"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (CompetitionRider) TableName() string { return "competition_riders" }

type RiderEntryRequest struct {
	RiderID  string   `json:"rider_id"`
	Services []string `json:"services"`
}

type CreateRequest struct {
	Name            string              `json:"name"`
	CompetitionDate time.Time           `json:"competition_date"`
	Riders          []RiderEntryRequest `json:"riders"`
}

type Service interface {
	Create(ctx context.Context, trainerID snowflake.ID, req CreateRequest) (*CompetitionEntry, error)
	GetByID(ctx context.Context, trainerID, id snowflake.ID) (*CompetitionEntry, error)
	SetRiderPaymentStatus(ctx context.Context, trainerID, competitionID, riderID snowflake.ID, status PaymentStatus) (*CompetitionRider, error)
}

var (
	ErrInvalidCompetitionDate = errors.New("invalid_competition_date")
	ErrInvalidRider           = errors.New("invalid_rider")
	ErrInvalidServices        = errors.New("invalid_services")
	ErrInvalidPaymentStatus   = errors.New("invalid_payment_status")
	ErrCompetitionNotFound    = errors.New("competition_not_found")
	ErrRiderEntryNotFound     = errors.New("rider_entry_not_found")
	ErrNotCompetitionTrainer  = errors.New("not_competition_trainer")
	ErrPaymentStatusBackwards = errors.New("payment_status_backwards")
)

// Rank orders payment statuses for forward-only transitions.
func (s PaymentStatus) Rank() int {
	switch s {
	case PaymentStatusPending:
		return 0
	case PaymentStatusRequested:
		return 1
	case PaymentStatusPaid:
		return 2
	default:
		return -1
	}
}
