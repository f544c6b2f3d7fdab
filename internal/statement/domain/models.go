// Package domain defines monthly billing statements and their generation
// contract.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stablehq/paddock/internal/period"
)

// PaymentStatus tracks whether the rider settled a statement.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusRequested PaymentStatus = "requested"
	PaymentStatusPaid      PaymentStatus = "paid"
)

// BillingStatement is the per-(trainer, rider, period) monthly summary. The
// unique index on that triple is the storage-level idempotency guard: a
// duplicate generation attempt inserts nothing.
type BillingStatement struct {
	ID                       snowflake.ID  `gorm:"primaryKey" json:"id"`
	TrainerID                snowflake.ID  `gorm:"not null;uniqueIndex:ux_billing_statements_trainer_rider_period,priority:1" json:"trainer_id"`
	RiderID                  snowflake.ID  `gorm:"not null;uniqueIndex:ux_billing_statements_trainer_rider_period,priority:2" json:"rider_id"`
	PeriodKey                string        `gorm:"type:text;not null;uniqueIndex:ux_billing_statements_trainer_rider_period,priority:3" json:"period_key"`
	SessionsRevenueCents     int64         `gorm:"not null;default:0" json:"sessions_revenue_cents"`
	CompetitionsRevenueCents int64         `gorm:"not null;default:0" json:"competitions_revenue_cents"`
	TotalRevenueCents        int64         `gorm:"not null;default:0" json:"total_revenue_cents"`
	Currency                 string        `gorm:"type:text;not null" json:"currency"`
	SessionCount             int           `gorm:"not null;default:0" json:"session_count"`
	PaymentRequested         bool          `gorm:"not null;default:false" json:"payment_requested"`
	PaymentStatus            PaymentStatus `gorm:"type:text;not null;default:'pending'" json:"payment_status"`
	CreatedAt                time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt                time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (BillingStatement) TableName() string { return "billing_statements" }

type UpdateRequest struct {
	PaymentStatus *PaymentStatus `json:"payment_status"`
}

type Service interface {
	// Generate produces the statement set for one trainer and period. It is
	// idempotent: a period already generated for the trainer is a no-op.
	// Returns the number of statements created.
	Generate(ctx context.Context, trainerID snowflake.ID, p period.Period) (int, error)
	ListForTrainer(ctx context.Context, trainerID snowflake.ID, periodKey string) ([]BillingStatement, error)
	Update(ctx context.Context, trainerID, statementID snowflake.ID, req UpdateRequest) (*BillingStatement, error)
}

var (
	ErrStatementNotFound    = errors.New("statement_not_found")
	ErrNotStatementTrainer  = errors.New("not_statement_trainer")
	ErrInvalidPaymentStatus = errors.New("invalid_payment_status")
	ErrPeriodNotClosed      = errors.New("period_not_closed")
)
