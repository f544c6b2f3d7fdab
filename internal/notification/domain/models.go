// Package domain defines notification intents and the dispatcher contract.
// The core only ever produces intents; delivery belongs to the dispatcher.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Template keys understood by dispatchers.
const (
	TemplatePaymentRequest = "payment_request"
	TemplateCareReminder   = "care_reminder"
)

// IntentStatus is the outbox delivery state.
type IntentStatus string

const (
	IntentStatusPending IntentStatus = "pending"
	IntentStatusSent    IntentStatus = "sent"
	IntentStatusFailed  IntentStatus = "failed"
)

// Intent is a stored notification request: who to notify, with which template
// and parameters. Rows are written transactionally with the operation that
// caused them and drained by the sender worker.
type Intent struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Recipient string            `gorm:"type:text;not null" json:"recipient"`
	Template  string            `gorm:"type:text;not null" json:"template"`
	Params    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"params"`
	DedupeKey *string           `gorm:"type:text;uniqueIndex" json:"dedupe_key,omitempty"`
	Status    IntentStatus      `gorm:"type:text;not null;default:'pending'" json:"status"`
	Attempts  int               `gorm:"not null;default:0" json:"attempts"`
	LastError *string           `gorm:"type:text" json:"last_error,omitempty"`
	SentAt    *time.Time        `json:"sent_at,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Intent) TableName() string { return "notification_intents" }

// Dispatcher delivers one intent. Implementations must be safe for concurrent
// use; failures are reported to the caller and never roll back the operation
// that enqueued the intent.
type Dispatcher interface {
	Send(ctx context.Context, intent Intent) error
}

var (
	ErrMissingRecipient = errors.New("missing_recipient")
	ErrMissingTemplate  = errors.New("missing_template")
)
