package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stablehq/paddock/internal/clock"
	"github.com/stablehq/paddock/internal/config"
	identityrepository "github.com/stablehq/paddock/internal/identity/repository"
	"github.com/stablehq/paddock/internal/notification"
	"github.com/stablehq/paddock/internal/period"
	ratecardservice "github.com/stablehq/paddock/internal/ratecard/service"
	revenueservice "github.com/stablehq/paddock/internal/revenue/service"
	statementdomain "github.com/stablehq/paddock/internal/statement/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:statement_%d?mode=memory&cache=shared", testDBSeq.Add(1))
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
		`CREATE TABLE rate_entries (
			id BIGINT PRIMARY KEY,
			trainer_id BIGINT NOT NULL,
			service_type TEXT NOT NULL,
			currency TEXT NOT NULL,
			amount_cents BIGINT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			CONSTRAINT ux_rate_entries_trainer_service UNIQUE (trainer_id, service_type)
		)`,
		`CREATE TABLE training_sessions (
			id BIGINT PRIMARY KEY,
			trainer_id BIGINT NOT NULL,
			rider_id BIGINT NOT NULL,
			session_type TEXT NOT NULL,
			session_date TIMESTAMP NOT NULL,
			status TEXT NOT NULL DEFAULT 'scheduled',
			verified BOOLEAN NOT NULL DEFAULT FALSE,
			verified_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE competition_entries (
			id BIGINT PRIMARY KEY,
			trainer_id BIGINT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			competition_date TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE competition_riders (
			id BIGINT PRIMARY KEY,
			competition_id BIGINT NOT NULL,
			rider_id BIGINT NOT NULL,
			services TEXT NOT NULL DEFAULT '[]',
			payment_status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			CONSTRAINT ux_competition_riders UNIQUE (competition_id, rider_id)
		)`,
		`CREATE TABLE billing_statements (
			id BIGINT PRIMARY KEY,
			trainer_id BIGINT NOT NULL,
			rider_id BIGINT NOT NULL,
			period_key TEXT NOT NULL,
			sessions_revenue_cents BIGINT NOT NULL DEFAULT 0,
			competitions_revenue_cents BIGINT NOT NULL DEFAULT 0,
			total_revenue_cents BIGINT NOT NULL DEFAULT 0,
			currency TEXT NOT NULL,
			session_count INT NOT NULL DEFAULT 0,
			payment_requested BOOLEAN NOT NULL DEFAULT FALSE,
			payment_status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			CONSTRAINT ux_billing_statements_trainer_rider_period UNIQUE (trainer_id, rider_id, period_key)
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
	svc       statementdomain.Service
	db        *gorm.DB
	node      *snowflake.Node
	trainerID snowflake.ID
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := openTestDB(t)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	// Third of August: July is closed and inside the grace window.
	now := time.Date(2025, 8, 3, 10, 0, 0, 0, time.UTC)
	log := zap.NewNop()

	rates := ratecardservice.NewService(ratecardservice.ServiceParam{
		DB: db, Log: log, GenID: node, Cfg: config.Config{},
	})
	revenue := revenueservice.NewService(revenueservice.ServiceParam{
		DB: db, Log: log, Rates: rates,
	})
	svc := NewService(ServiceParam{
		DB:      db,
		Log:     log,
		GenID:   node,
		Clock:   clock.FixedClock{T: now},
		Revenue: revenue,
		Users:   identityrepository.Provide(),
		Outbox:  notification.NewOutbox(db, node),
	})
	return &fixture{svc: svc, db: db, node: node, trainerID: snowflake.ID(7001), now: now}
}

func (f *fixture) addUser(t *testing.T, id snowflake.ID, email string, birthday *time.Time, parentEmail *string) {
	t.Helper()
	err := f.db.Exec(
		`INSERT INTO users (id, email, display_name, birthday, parent_email, roles, created_at, updated_at)
		 VALUES (?, ?, '', ?, ?, 'rider', ?, ?)`,
		id, email, birthday, parentEmail, f.now, f.now,
	).Error
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
}

func (f *fixture) addRate(t *testing.T, serviceType string, amountCents int64) {
	t.Helper()
	err := f.db.Exec(
		`INSERT INTO rate_entries (id, trainer_id, service_type, currency, amount_cents, created_at, updated_at)
		 VALUES (?, ?, ?, 'ILS', ?, ?, ?)`,
		f.node.Generate(), f.trainerID, serviceType, amountCents, f.now, f.now,
	).Error
	if err != nil {
		t.Fatalf("insert rate: %v", err)
	}
}

func (f *fixture) addVerifiedSession(t *testing.T, riderID snowflake.ID, sessionType string, date time.Time) {
	t.Helper()
	err := f.db.Exec(
		`INSERT INTO training_sessions (id, trainer_id, rider_id, session_type, session_date, status, verified, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 'scheduled', TRUE, ?, ?)`,
		f.node.Generate(), f.trainerID, riderID, sessionType, date, f.now, f.now,
	).Error
	if err != nil {
		t.Fatalf("insert session: %v", err)
	}
}

func july() period.Period {
	p, _ := period.Parse("2025-07")
	return p
}

type intentRow struct {
	Recipient string
	Template  string
	DedupeKey string
}

func (f *fixture) intents(t *testing.T) []intentRow {
	t.Helper()
	var rows []intentRow
	if err := f.db.Raw(`SELECT recipient, template, dedupe_key FROM notification_intents ORDER BY id`).Scan(&rows).Error; err != nil {
		t.Fatalf("load intents: %v", err)
	}
	return rows
}

func TestGenerateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	riderID := snowflake.ID(42)

	f.addUser(t, riderID, "rider@example.com", nil, nil)
	f.addRate(t, "Lesson", 10000)
	f.addVerifiedSession(t, riderID, "Lesson", time.Date(2025, 7, 10, 16, 0, 0, 0, time.UTC))
	f.addVerifiedSession(t, riderID, "Lesson", time.Date(2025, 7, 17, 16, 0, 0, 0, time.UTC))

	created, err := f.svc.Generate(ctx, f.trainerID, july())
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	if created != 1 {
		t.Fatalf("first generate created %d statements, want 1", created)
	}

	created, err = f.svc.Generate(ctx, f.trainerID, july())
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if created != 0 {
		t.Fatalf("second generate created %d statements, want 0", created)
	}

	statements, err := f.svc.ListForTrainer(ctx, f.trainerID, "2025-07")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(statements) != 1 {
		t.Fatalf("got %d statements, want 1", len(statements))
	}
	statement := statements[0]
	if statement.TotalRevenueCents != 20000 || statement.SessionCount != 2 {
		t.Fatalf("unexpected statement: %+v", statement)
	}
	if !statement.PaymentRequested || statement.PaymentStatus != statementdomain.PaymentStatusPending {
		t.Fatalf("unexpected payment state: %+v", statement)
	}

	intents := f.intents(t)
	if len(intents) != 1 {
		t.Fatalf("got %d intents, want 1", len(intents))
	}
	if intents[0].Recipient != "rider@example.com" {
		t.Fatalf("intent recipient: %q", intents[0].Recipient)
	}
}

func TestGeneratePaymentRequestGoesToGuardianForMinors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	riderID := snowflake.ID(42)

	birthday := time.Date(2012, 3, 15, 0, 0, 0, 0, time.UTC)
	parent := "parent@example.com"
	f.addUser(t, riderID, "kid@example.com", &birthday, &parent)
	f.addRate(t, "Lesson", 10000)
	f.addVerifiedSession(t, riderID, "Lesson", time.Date(2025, 7, 10, 16, 0, 0, 0, time.UTC))

	if _, err := f.svc.Generate(ctx, f.trainerID, july()); err != nil {
		t.Fatalf("generate: %v", err)
	}

	intents := f.intents(t)
	if len(intents) != 1 {
		t.Fatalf("got %d intents, want 1", len(intents))
	}
	if intents[0].Recipient != parent {
		t.Fatalf("intent recipient: got %q, want %q", intents[0].Recipient, parent)
	}
}

func TestGenerateSkipsZeroTotalRiders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	billed := snowflake.ID(42)
	unbilled := snowflake.ID(43)

	f.addUser(t, billed, "billed@example.com", nil, nil)
	f.addUser(t, unbilled, "unbilled@example.com", nil, nil)
	f.addRate(t, "Lesson", 10000)
	f.addVerifiedSession(t, billed, "Lesson", time.Date(2025, 7, 10, 16, 0, 0, 0, time.UTC))
	// no rate configured for this type, so the session prices at zero
	f.addVerifiedSession(t, unbilled, "Vaulting", time.Date(2025, 7, 11, 16, 0, 0, 0, time.UTC))

	created, err := f.svc.Generate(ctx, f.trainerID, july())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if created != 1 {
		t.Fatalf("created %d statements, want 1", created)
	}
}

func TestGenerateRejectsOpenPeriod(t *testing.T) {
	f := newFixture(t)

	august, _ := period.Parse("2025-08")
	_, err := f.svc.Generate(context.Background(), f.trainerID, august)
	if err != statementdomain.ErrPeriodNotClosed {
		t.Fatalf("got %v, want ErrPeriodNotClosed", err)
	}
}

func TestUpdateEnforcesOwnershipAndStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	riderID := snowflake.ID(42)

	f.addUser(t, riderID, "rider@example.com", nil, nil)
	f.addRate(t, "Lesson", 10000)
	f.addVerifiedSession(t, riderID, "Lesson", time.Date(2025, 7, 10, 16, 0, 0, 0, time.UTC))
	if _, err := f.svc.Generate(ctx, f.trainerID, july()); err != nil {
		t.Fatalf("generate: %v", err)
	}
	statements, err := f.svc.ListForTrainer(ctx, f.trainerID, "")
	if err != nil || len(statements) != 1 {
		t.Fatalf("list: %v (%d statements)", err, len(statements))
	}
	statementID := statements[0].ID

	paid := statementdomain.PaymentStatusPaid
	if _, err := f.svc.Update(ctx, snowflake.ID(9999), statementID, statementdomain.UpdateRequest{PaymentStatus: &paid}); err != statementdomain.ErrNotStatementTrainer {
		t.Fatalf("foreign trainer: got %v, want ErrNotStatementTrainer", err)
	}

	bogus := statementdomain.PaymentStatus("settled")
	if _, err := f.svc.Update(ctx, f.trainerID, statementID, statementdomain.UpdateRequest{PaymentStatus: &bogus}); err != statementdomain.ErrInvalidPaymentStatus {
		t.Fatalf("bogus status: got %v, want ErrInvalidPaymentStatus", err)
	}

	updated, err := f.svc.Update(ctx, f.trainerID, statementID, statementdomain.UpdateRequest{PaymentStatus: &paid})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.PaymentStatus != statementdomain.PaymentStatusPaid {
		t.Fatalf("payment status not updated: %+v", updated)
	}
}
