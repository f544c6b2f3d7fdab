package notification

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	notificationdomain "github.com/stablehq/paddock/internal/notification/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Request describes an intent to enqueue.
type Request struct {
	Recipient string
	Template  string
	Params    map[string]any
	// DedupeKey makes the enqueue idempotent: a second enqueue with the same
	// key is silently dropped at the storage layer.
	DedupeKey string
}

// Outbox inserts notification intents into the notification_intents table.
type Outbox struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func NewOutbox(db *gorm.DB, genID *snowflake.Node) *Outbox {
	return &Outbox{db: db, genID: genID}
}

// Enqueue stores an intent using the default database connection.
func (o *Outbox) Enqueue(ctx context.Context, req Request) error {
	return o.enqueue(ctx, o.db, req)
}

// EnqueueTx stores an intent inside an existing transaction, so the intent
// commits or rolls back together with the operation that produced it.
func (o *Outbox) EnqueueTx(ctx context.Context, tx *gorm.DB, req Request) error {
	if tx == nil {
		return errors.New("missing_transaction")
	}
	return o.enqueue(ctx, tx, req)
}

func (o *Outbox) enqueue(ctx context.Context, db *gorm.DB, req Request) error {
	recipient := strings.TrimSpace(req.Recipient)
	if recipient == "" {
		return notificationdomain.ErrMissingRecipient
	}
	template := strings.TrimSpace(req.Template)
	if template == "" {
		return notificationdomain.ErrMissingTemplate
	}

	params := datatypes.JSONMap{}
	for key, value := range req.Params {
		if strings.TrimSpace(key) == "" {
			continue
		}
		params[key] = value
	}

	var dedupeValue any
	if dedupe := strings.TrimSpace(req.DedupeKey); dedupe != "" {
		dedupeValue = dedupe
	}

	now := time.Now().UTC()
	return db.WithContext(ctx).Exec(
		`INSERT INTO notification_intents (id, recipient, template, params, dedupe_key, status, attempts, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 'pending', 0, ?, ?)
		 ON CONFLICT (dedupe_key) DO NOTHING`,
		o.genID.Generate(),
		recipient,
		template,
		params,
		dedupeValue,
		now,
		now,
	).Error
}
