// Package domain defines the per-trainer price list.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// RateEntry prices one service type for one trainer. There is exactly one row
// per (trainer, service type); changes overwrite in place with no history, so
// a rate change retroactively affects any not-yet-generated statement.
type RateEntry struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	TrainerID   snowflake.ID `gorm:"not null;uniqueIndex:ux_rate_entries_trainer_service,priority:1" json:"trainer_id"`
	ServiceType string       `gorm:"type:text;not null;uniqueIndex:ux_rate_entries_trainer_service,priority:2" json:"service_type"`
	Currency    string       `gorm:"type:text;not null" json:"currency"`
	AmountCents int64        `gorm:"not null" json:"amount_cents"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_date"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_date"`
}

// TableName sets the database table name.
func (RateEntry) TableName() string { return "rate_entries" }

type UpsertRequest struct {
	ServiceType string `json:"service_type"`
	Currency    string `json:"currency"`
	AmountCents int64  `json:"amount_cents"`
}

type Service interface {
	Upsert(ctx context.Context, trainerID snowflake.ID, req UpsertRequest) (*RateEntry, error)
	Lookup(ctx context.Context, trainerID snowflake.ID, serviceType string) (*RateEntry, error)
	List(ctx context.Context, trainerID snowflake.ID) ([]RateEntry, error)
	Delete(ctx context.Context, trainerID snowflake.ID, serviceType string) error
}

var (
	ErrInvalidServiceType = errors.New("invalid_service_type")
	ErrInvalidCurrency    = errors.New("invalid_currency")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrRateNotFound       = errors.New("rate_not_found")
)
