// Package domain defines horses and their recurring care events.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Horse struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	OwnerID   snowflake.ID `gorm:"not null;index" json:"owner_id"`
	Stable    string       `gorm:"type:text;not null;default:''" json:"stable"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Horse) TableName() string { return "horses" }

// EventStatus is the lifecycle of a care event. Completion is terminal; a
// recurring event continues as a freshly scheduled successor row instead of
// being rescheduled in place.
type EventStatus string

const (
	EventStatusScheduled EventStatus = "scheduled"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
)

// CareEvent is one occurrence of veterinary or maintenance care (vaccination,
// farrier, dental, worming). Recurring events carry their cadence in weeks and
// the date the next occurrence falls due.
type CareEvent struct {
	ID                  snowflake.ID  `gorm:"primaryKey" json:"id"`
	HorseID             snowflake.ID  `gorm:"not null;index" json:"horse_id"`
	EventType           string        `gorm:"type:text;not null" json:"event_type"`
	EventDate           time.Time     `gorm:"not null" json:"event_date"`
	NextDueDate         *time.Time    `json:"next_due_date,omitempty"`
	IsRecurring         bool          `gorm:"not null;default:false" json:"is_recurring"`
	RecurrenceWeeks     int           `gorm:"not null;default:0" json:"recurrence_weeks"`
	ReminderWeeksBefore int           `gorm:"not null;default:0" json:"reminder_weeks_before"`
	ReminderEmail       string        `gorm:"type:text;not null;default:''" json:"reminder_email"`
	ProviderName        string        `gorm:"type:text;not null;default:''" json:"provider_name"`
	Description         string        `gorm:"type:text;not null;default:''" json:"description"`
	CostCents           int64         `gorm:"not null;default:0" json:"cost_cents"`
	Notes               string        `gorm:"type:text;not null;default:''" json:"notes"`
	Status              EventStatus   `gorm:"type:text;not null;default:'scheduled'" json:"status"`
	CompletedDate       *time.Time    `json:"completed_date,omitempty"`
	ParentEventID       *snowflake.ID `json:"parent_event_id,omitempty"`
	CreatedAt           time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (CareEvent) TableName() string { return "care_events" }

type CreateHorseRequest struct {
	Name   string `json:"name"`
	Stable string `json:"stable"`
}

type CreateEventRequest struct {
	HorseID             string     `json:"horse_id"`
	EventType           string     `json:"event_type"`
	EventDate           time.Time  `json:"event_date"`
	NextDueDate         *time.Time `json:"next_due_date"`
	IsRecurring         bool       `json:"is_recurring"`
	RecurrenceWeeks     int        `json:"recurrence_weeks"`
	ReminderWeeksBefore int        `json:"reminder_weeks_before"`
	ReminderEmail       string     `json:"reminder_email"`
	ProviderName        string     `json:"provider_name"`
	Description         string     `json:"description"`
	CostCents           int64      `json:"cost_cents"`
	Notes               string     `json:"notes"`
}

type Service interface {
	CreateHorse(ctx context.Context, ownerID snowflake.ID, req CreateHorseRequest) (*Horse, error)
	ListHorses(ctx context.Context, ownerID snowflake.ID) ([]Horse, error)
	CreateEvent(ctx context.Context, ownerID snowflake.ID, req CreateEventRequest) (*CareEvent, error)
	ListEvents(ctx context.Context, ownerID, horseID snowflake.ID) ([]CareEvent, error)
	// CompleteEvent marks an event done and, for recurring events with a due
	// date, spawns the next occurrence. Returns the completed event and the
	// successor (nil when the chain ends).
	CompleteEvent(ctx context.Context, ownerID, eventID snowflake.ID) (*CareEvent, *CareEvent, error)
	CancelEvent(ctx context.Context, ownerID, eventID snowflake.ID) (*CareEvent, error)
}

var (
	ErrHorseNotFound     = errors.New("horse_not_found")
	ErrNotHorseOwner     = errors.New("not_horse_owner")
	ErrInvalidHorseName  = errors.New("invalid_horse_name")
	ErrEventNotFound     = errors.New("care_event_not_found")
	ErrInvalidEventType  = errors.New("invalid_event_type")
	ErrInvalidEventDate  = errors.New("invalid_event_date")
	ErrInvalidRecurrence = errors.New("invalid_recurrence")
	ErrEventNotScheduled = errors.New("care_event_not_scheduled")
)
