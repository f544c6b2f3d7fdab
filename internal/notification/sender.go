package notification

import (
	"context"
	"time"

	retry "github.com/avast/retry-go"
	"github.com/stablehq/paddock/internal/config"
	notificationdomain "github.com/stablehq/paddock/internal/notification/domain"
	"github.com/stablehq/paddock/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sender drains pending intents through the dispatcher. Delivery failures are
// recorded on the intent and logged; they never propagate to the operations
// that enqueued the intents.
type Sender struct {
	db         *gorm.DB
	log        *zap.Logger
	dispatcher notificationdomain.Dispatcher
	interval   time.Duration
	batchSize  int
}

type SenderParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Dispatcher notificationdomain.Dispatcher
	Cfg        config.Config
}

func NewSender(p SenderParam) *Sender {
	return &Sender{
		db:         p.DB,
		log:        p.Log.Named("notification.sender"),
		dispatcher: p.Dispatcher,
		interval:   p.Cfg.Billing.DispatchInterval,
		batchSize:  p.Cfg.Billing.DispatchBatchSize,
	}
}

func (s *Sender) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Warn("notification dispatch run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce delivers one batch of pending intents and returns how many were
// attempted.
func (s *Sender) RunOnce(ctx context.Context) (int, error) {
	var intents []notificationdomain.Intent
	err := s.db.WithContext(ctx).
		Where("status = ?", notificationdomain.IntentStatusPending).
		Order("created_at").
		Limit(s.batchSize).
		Find(&intents).Error
	if err != nil {
		return 0, err
	}

	for _, intent := range intents {
		s.deliver(ctx, intent)
	}
	return len(intents), nil
}

func (s *Sender) deliver(ctx context.Context, intent notificationdomain.Intent) {
	err := retry.Do(
		func() error { return s.dispatcher.Send(ctx, intent) },
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.Context(ctx),
	)

	now := time.Now().UTC()
	if err != nil {
		metrics.NotificationSends.WithLabelValues("failed").Inc()
		s.log.Warn("notification delivery failed",
			zap.String("intent_id", intent.ID.String()),
			zap.String("recipient", intent.Recipient),
			zap.String("template", intent.Template),
			zap.Error(err),
		)
		message := err.Error()
		if updateErr := s.db.WithContext(ctx).Exec(
			`UPDATE notification_intents
			 SET status = ?, attempts = attempts + 1, last_error = ?, updated_at = ?
			 WHERE id = ?`,
			notificationdomain.IntentStatusFailed,
			message,
			now,
			intent.ID,
		).Error; updateErr != nil {
			s.log.Warn("failed to record delivery error", zap.Error(updateErr))
		}
		return
	}

	metrics.NotificationSends.WithLabelValues("sent").Inc()
	if updateErr := s.db.WithContext(ctx).Exec(
		`UPDATE notification_intents
		 SET status = ?, attempts = attempts + 1, sent_at = ?, last_error = NULL, updated_at = ?
		 WHERE id = ?`,
		notificationdomain.IntentStatusSent,
		now,
		now,
		intent.ID,
	).Error; updateErr != nil {
		s.log.Warn("failed to record delivery success", zap.Error(updateErr))
	}
}
