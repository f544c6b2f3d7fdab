package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stablehq/paddock/internal/clock"
	horsecaredomain "github.com/stablehq/paddock/internal/horsecare/domain"
	identityrepository "github.com/stablehq/paddock/internal/identity/repository"
	"github.com/stablehq/paddock/internal/notification"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:horsecare_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	statements := []string{
		`CREATE TABLE users (
			id BIGINT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL DEFAULT '',
			password_hash TEXT,
			birthday DATE,
			parent_email TEXT,
			roles TEXT NOT NULL DEFAULT 'rider',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE horses (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			owner_id BIGINT NOT NULL,
			stable TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE care_events (
			id BIGINT PRIMARY KEY,
			horse_id BIGINT NOT NULL,
			event_type TEXT NOT NULL,
			event_date TIMESTAMP NOT NULL,
			next_due_date TIMESTAMP,
			is_recurring BOOLEAN NOT NULL DEFAULT FALSE,
			recurrence_weeks INT NOT NULL DEFAULT 0,
			reminder_weeks_before INT NOT NULL DEFAULT 0,
			reminder_email TEXT NOT NULL DEFAULT '',
			provider_name TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			cost_cents BIGINT NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'scheduled',
			completed_date TIMESTAMP,
			parent_event_id BIGINT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE notification_intents (
			id BIGINT PRIMARY KEY,
			recipient TEXT NOT NULL,
			template TEXT NOT NULL,
			params TEXT NOT NULL DEFAULT '{}',
			dedupe_key TEXT UNIQUE,
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INT NOT NULL DEFAULT 0,
			last_error TEXT,
			sent_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
	}
	for _, ddl := range statements {
		if err := db.Exec(ddl).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

type fixture struct {
	svc     horsecaredomain.Service
	db      *gorm.DB
	node    *snowflake.Node
	ownerID snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := openTestDB(t)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	ownerID := snowflake.ID(7001)
	now := time.Now().UTC()
	err = db.Exec(
		`INSERT INTO users (id, email, roles, created_at, updated_at) VALUES (?, 'owner@example.com', 'rider', ?, ?)`,
		ownerID, now, now,
	).Error
	if err != nil {
		t.Fatalf("insert owner: %v", err)
	}

	svc := NewService(ServiceParam{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clock.SystemClock{},
		Users:  identityrepository.Provide(),
		Outbox: notification.NewOutbox(db, node),
	})
	return &fixture{svc: svc, db: db, node: node, ownerID: ownerID}
}

func (f *fixture) addHorse(t *testing.T) *horsecaredomain.Horse {
	t.Helper()
	horse, err := f.svc.CreateHorse(context.Background(), f.ownerID, horsecaredomain.CreateHorseRequest{
		Name:   "Whisper",
		Stable: "North Barn",
	})
	if err != nil {
		t.Fatalf("create horse: %v", err)
	}
	return horse
}

func TestCompleteRecurringEventSpawnsSuccessor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	horse := f.addHorse(t)

	eventDate := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	nextDue := time.Date(2025, 7, 13, 0, 0, 0, 0, time.UTC)
	event, err := f.svc.CreateEvent(ctx, f.ownerID, horsecaredomain.CreateEventRequest{
		HorseID:         horse.ID.String(),
		EventType:       "farrier",
		EventDate:       eventDate,
		NextDueDate:     &nextDue,
		IsRecurring:     true,
		RecurrenceWeeks: 6,
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	completed, successor, err := f.svc.CompleteEvent(ctx, f.ownerID, event.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != horsecaredomain.EventStatusCompleted || completed.CompletedDate == nil {
		t.Fatalf("event not completed: %+v", completed)
	}
	if successor == nil {
		t.Fatal("expected a successor event")
	}
	if !successor.EventDate.Equal(nextDue) {
		t.Fatalf("successor event date: got %v, want %v", successor.EventDate, nextDue)
	}
	wantNextDue := nextDue.Add(6 * 7 * 24 * time.Hour)
	if successor.NextDueDate == nil || !successor.NextDueDate.Equal(wantNextDue) {
		t.Fatalf("successor next due: got %v, want %v", successor.NextDueDate, wantNextDue)
	}
	if successor.ParentEventID == nil || *successor.ParentEventID != event.ID {
		t.Fatalf("successor parent: %+v", successor.ParentEventID)
	}
	if successor.Status != horsecaredomain.EventStatusScheduled {
		t.Fatalf("successor status: %s", successor.Status)
	}
}

func TestCompleteNonRecurringEventEndsChain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	horse := f.addHorse(t)

	event, err := f.svc.CreateEvent(ctx, f.ownerID, horsecaredomain.CreateEventRequest{
		HorseID:   horse.ID.String(),
		EventType: "dental",
		EventDate: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	_, successor, err := f.svc.CompleteEvent(ctx, f.ownerID, event.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if successor != nil {
		t.Fatalf("non-recurring event spawned a successor: %+v", successor)
	}
}

func TestCompleteEventTwiceIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	horse := f.addHorse(t)

	event, err := f.svc.CreateEvent(ctx, f.ownerID, horsecaredomain.CreateEventRequest{
		HorseID:   horse.ID.String(),
		EventType: "worming",
		EventDate: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	if _, _, err := f.svc.CompleteEvent(ctx, f.ownerID, event.ID); err != nil {
		t.Fatalf("first complete: %v", err)
	}
	if _, _, err := f.svc.CompleteEvent(ctx, f.ownerID, event.ID); err != horsecaredomain.ErrEventNotScheduled {
		t.Fatalf("second complete: got %v, want ErrEventNotScheduled", err)
	}
}

func TestCreateEventWithDueDateEnqueuesReminder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	horse := f.addHorse(t)

	nextDue := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	_, err := f.svc.CreateEvent(ctx, f.ownerID, horsecaredomain.CreateEventRequest{
		HorseID:       horse.ID.String(),
		EventType:     "vaccination",
		EventDate:     time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		NextDueDate:   &nextDue,
		ReminderEmail: "vet-admin@example.com",
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	var recipient string
	if err := f.db.Raw(`SELECT recipient FROM notification_intents`).Scan(&recipient).Error; err != nil {
		t.Fatalf("load intent: %v", err)
	}
	if recipient != "vet-admin@example.com" {
		t.Fatalf("reminder recipient: %q", recipient)
	}
}

func TestEventOwnershipIsEnforced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	horse := f.addHorse(t)

	event, err := f.svc.CreateEvent(ctx, f.ownerID, horsecaredomain.CreateEventRequest{
		HorseID:   horse.ID.String(),
		EventType: "farrier",
		EventDate: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	if _, _, err := f.svc.CompleteEvent(ctx, snowflake.ID(9999), event.ID); err != horsecaredomain.ErrNotHorseOwner {
		t.Fatalf("got %v, want ErrNotHorseOwner", err)
	}
}

func TestCreateEventValidatesRecurrence(t *testing.T) {
	f := newFixture(t)
	horse := f.addHorse(t)

	_, err := f.svc.CreateEvent(context.Background(), f.ownerID, horsecaredomain.CreateEventRequest{
		HorseID:     horse.ID.String(),
		EventType:   "farrier",
		EventDate:   time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		IsRecurring: true,
	})
	if err != horsecaredomain.ErrInvalidRecurrence {
		t.Fatalf("got %v, want ErrInvalidRecurrence", err)
	}
}
