package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stablehq/paddock/internal/config"
	ratecarddomain "github.com/stablehq/paddock/internal/ratecard/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:ratecard_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	ddl := `CREATE TABLE rate_entries (
		id BIGINT PRIMARY KEY,
		trainer_id BIGINT NOT NULL,
		service_type TEXT NOT NULL,
		currency TEXT NOT NULL,
		amount_cents BIGINT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		CONSTRAINT ux_rate_entries_trainer_service UNIQUE (trainer_id, service_type)
	)`
	if err := db.Exec(ddl).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (ratecarddomain.Service, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Cfg:   config.Config{},
	})
	return svc, db
}

func TestUpsertReplacesInPlace(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	trainerID := snowflake.ID(1001)

	first, err := svc.Upsert(ctx, trainerID, ratecarddomain.UpsertRequest{
		ServiceType: "Lesson",
		Currency:    "ils",
		AmountCents: 10000,
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if first.Currency != "ILS" {
		t.Fatalf("currency not normalized: %q", first.Currency)
	}

	second, err := svc.Upsert(ctx, trainerID, ratecarddomain.UpsertRequest{
		ServiceType: "Lesson",
		Currency:    "ILS",
		AmountCents: 12000,
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.AmountCents != 12000 {
		t.Fatalf("amount not replaced: %d", second.AmountCents)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert created a new row: %s -> %s", first.ID, second.ID)
	}

	var count int64
	if err := db.Raw(`SELECT COUNT(1) FROM rate_entries`).Scan(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one row, got %d", count)
	}
}

func TestUpsertValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	trainerID := snowflake.ID(1001)

	cases := []struct {
		name string
		req  ratecarddomain.UpsertRequest
		want error
	}{
		{"empty service type", ratecarddomain.UpsertRequest{ServiceType: " ", Currency: "ILS", AmountCents: 100}, ratecarddomain.ErrInvalidServiceType},
		{"bad currency", ratecarddomain.UpsertRequest{ServiceType: "Lesson", Currency: "shekels", AmountCents: 100}, ratecarddomain.ErrInvalidCurrency},
		{"zero amount", ratecarddomain.UpsertRequest{ServiceType: "Lesson", Currency: "ILS", AmountCents: 0}, ratecarddomain.ErrInvalidAmount},
	}
	for _, tc := range cases {
		if _, err := svc.Upsert(ctx, trainerID, tc.req); err != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestLookupMissingRateIsNotAnError(t *testing.T) {
	svc, _ := newTestService(t)

	entry, err := svc.Lookup(context.Background(), snowflake.ID(1001), "Jumping")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected nil entry, got %+v", entry)
	}
}

func TestDeleteMissingRate(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Delete(context.Background(), snowflake.ID(1001), "Lesson")
	if err != ratecarddomain.ErrRateNotFound {
		t.Fatalf("got %v, want ErrRateNotFound", err)
	}
}

func TestRatesAreTrainerScoped(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Upsert(ctx, snowflake.ID(1), ratecarddomain.UpsertRequest{ServiceType: "Lesson", Currency: "ILS", AmountCents: 100}); err != nil {
		t.Fatalf("upsert trainer 1: %v", err)
	}
	if _, err := svc.Upsert(ctx, snowflake.ID(2), ratecarddomain.UpsertRequest{ServiceType: "Lesson", Currency: "EUR", AmountCents: 200}); err != nil {
		t.Fatalf("upsert trainer 2: %v", err)
	}

	entries, err := svc.List(ctx, snowflake.ID(1))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Currency != "ILS" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}
