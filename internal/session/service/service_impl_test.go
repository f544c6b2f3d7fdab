package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	identityrepository "github.com/stablehq/paddock/internal/identity/repository"
	sessiondomain "github.com/stablehq/paddock/internal/session/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:session_%d?mode=memory&cache=shared", testDBSeq.Add(1))
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
	}
	for _, ddl := range statements {
		if err := db.Exec(ddl).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func newFixture(t *testing.T) (sessiondomain.Service, snowflake.ID, snowflake.ID) {
	t.Helper()
	db := openTestDB(t)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	trainerID := snowflake.ID(7001)
	riderID := snowflake.ID(42)
	now := time.Now().UTC()
	err = db.Exec(
		`INSERT INTO users (id, email, roles, created_at, updated_at) VALUES (?, 'rider@example.com', 'rider', ?, ?)`,
		riderID, now, now,
	).Error
	if err != nil {
		t.Fatalf("insert rider: %v", err)
	}

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Users: identityrepository.Provide(),
	})
	return svc, trainerID, riderID
}

func createSession(t *testing.T, svc sessiondomain.Service, trainerID snowflake.ID) *sessiondomain.TrainingSession {
	t.Helper()
	session, err := svc.Create(context.Background(), trainerID, sessiondomain.CreateRequest{
		RiderID:     "42",
		SessionType: "Lesson",
		SessionDate: time.Date(2025, 7, 10, 16, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return session
}

func TestVerifyIsOneWay(t *testing.T) {
	svc, trainerID, riderID := newFixture(t)
	ctx := context.Background()
	session := createSession(t, svc, trainerID)

	verified, err := svc.Verify(ctx, riderID, session.ID)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !verified.Verified || verified.VerifiedAt == nil {
		t.Fatalf("session not verified: %+v", verified)
	}

	if _, err := svc.Verify(ctx, riderID, session.ID); err != sessiondomain.ErrAlreadyVerified {
		t.Fatalf("second verify: got %v, want ErrAlreadyVerified", err)
	}
}

func TestVerifyRequiresTheSessionRider(t *testing.T) {
	svc, trainerID, _ := newFixture(t)
	session := createSession(t, svc, trainerID)

	if _, err := svc.Verify(context.Background(), snowflake.ID(9999), session.ID); err != sessiondomain.ErrNotSessionRider {
		t.Fatalf("got %v, want ErrNotSessionRider", err)
	}
}

func TestVerifyCancelledSessionIsRejected(t *testing.T) {
	svc, trainerID, riderID := newFixture(t)
	ctx := context.Background()
	session := createSession(t, svc, trainerID)

	if _, err := svc.Cancel(ctx, trainerID, session.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.Verify(ctx, riderID, session.ID); err != sessiondomain.ErrSessionCancelled {
		t.Fatalf("got %v, want ErrSessionCancelled", err)
	}
}

func TestCreateRejectsUnknownRider(t *testing.T) {
	svc, trainerID, _ := newFixture(t)

	_, err := svc.Create(context.Background(), trainerID, sessiondomain.CreateRequest{
		RiderID:     "9999",
		SessionType: "Lesson",
		SessionDate: time.Date(2025, 7, 10, 16, 0, 0, 0, time.UTC),
	})
	if err == nil {
		t.Fatal("expected an error for an unknown rider")
	}
}

func TestListForTrainerFiltersByDate(t *testing.T) {
	svc, trainerID, _ := newFixture(t)
	ctx := context.Background()
	createSession(t, svc, trainerID)

	from := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	sessions, err := svc.ListForTrainer(ctx, trainerID, sessiondomain.ListRequest{From: &from, To: &to})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}

	later := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	sessions, err = svc.ListForTrainer(ctx, trainerID, sessiondomain.ListRequest{From: &later})
	if err != nil {
		t.Fatalf("list later: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("got %d sessions, want 0", len(sessions))
	}
}
