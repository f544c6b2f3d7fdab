package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stablehq/paddock/internal/clock"
	"github.com/stablehq/paddock/internal/guardian"
	identitydomain "github.com/stablehq/paddock/internal/identity/domain"
	"github.com/stablehq/paddock/internal/notification"
	notificationdomain "github.com/stablehq/paddock/internal/notification/domain"
	"github.com/stablehq/paddock/internal/observability/metrics"
	"github.com/stablehq/paddock/internal/period"
	revenuedomain "github.com/stablehq/paddock/internal/revenue/domain"
	statementdomain "github.com/stablehq/paddock/internal/statement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clk     clock.Clock
	revenue revenuedomain.Service
	users   identitydomain.Repository
	outbox  *notification.Outbox
	locks   *keyedMutex
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Revenue revenuedomain.Service
	Users   identitydomain.Repository
	Outbox  *notification.Outbox
}

func NewService(p ServiceParam) statementdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("statement.service"),
		genID:   p.GenID,
		clk:     p.Clock,
		revenue: p.Revenue,
		users:   p.Users,
		outbox:  p.Outbox,
		locks:   newKeyedMutex(),
	}
}

// Generate builds the statement set for one trainer and period. Idempotency
// is enforced twice: the keyed mutex serializes concurrent triggers for the
// same (trainer, period), and the unique index on (trainer, rider, period)
// turns any remaining duplicate insert into a no-op. The whole batch commits
// in one transaction, so a failure leaves no partially billed period.
func (s *Service) Generate(ctx context.Context, trainerID snowflake.ID, p period.Period) (int, error) {
	now := s.clk.Now()
	if now.Before(p.End) {
		return 0, statementdomain.ErrPeriodNotClosed
	}

	unlock := s.locks.Lock(trainerID.String() + "|" + p.Key())
	defer unlock()

	existing, err := s.countStatements(ctx, trainerID, p.Key())
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, nil
	}

	result, err := s.revenue.Compute(ctx, trainerID, p)
	if err != nil {
		return 0, err
	}

	riders := make([]*revenuedomain.RiderBreakdown, 0, len(result.PerRider))
	for _, breakdown := range result.PerRider {
		if breakdown.TotalCents() > 0 {
			riders = append(riders, breakdown)
		}
	}
	sort.Slice(riders, func(i, j int) bool { return riders[i].RiderID < riders[j].RiderID })
	if len(riders) == 0 {
		return 0, nil
	}

	created := 0
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, breakdown := range riders {
			inserted, err := s.insertStatement(ctx, tx, trainerID, p, result.Currency, breakdown, now)
			if err != nil {
				return err
			}
			if !inserted {
				continue
			}
			created++
			if err := s.enqueuePaymentRequest(ctx, tx, trainerID, p, result.Currency, breakdown); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		metrics.StatementRuns.WithLabelValues("error").Inc()
		return 0, err
	}

	metrics.StatementRuns.WithLabelValues("ok").Inc()
	metrics.StatementsCreated.Add(float64(created))
	if created > 0 {
		s.log.Info("generated billing statements",
			zap.String("trainer_id", trainerID.String()),
			zap.String("period", p.Key()),
			zap.Int("created", created),
		)
	}
	return created, nil
}

func (s *Service) ListForTrainer(ctx context.Context, trainerID snowflake.ID, periodKey string) ([]statementdomain.BillingStatement, error) {
	query := s.db.WithContext(ctx).Where("trainer_id = ?", trainerID)
	if periodKey != "" {
		query = query.Where("period_key = ?", periodKey)
	}

	var statements []statementdomain.BillingStatement
	if err := query.Order("period_key DESC, rider_id").Find(&statements).Error; err != nil {
		return nil, err
	}
	return statements, nil
}

// Update lets the owning trainer mutate a statement after generation, e.g.
// marking it paid.
func (s *Service) Update(ctx context.Context, trainerID, statementID snowflake.ID, req statementdomain.UpdateRequest) (*statementdomain.BillingStatement, error) {
	statement, err := s.load(ctx, statementID)
	if err != nil {
		return nil, err
	}
	if statement == nil {
		return nil, statementdomain.ErrStatementNotFound
	}
	if statement.TrainerID != trainerID {
		return nil, statementdomain.ErrNotStatementTrainer
	}

	if req.PaymentStatus != nil {
		switch *req.PaymentStatus {
		case statementdomain.PaymentStatusPending, statementdomain.PaymentStatusRequested, statementdomain.PaymentStatusPaid:
		default:
			return nil, statementdomain.ErrInvalidPaymentStatus
		}
		now := time.Now().UTC()
		if err := s.db.WithContext(ctx).Exec(
			`UPDATE billing_statements SET payment_status = ?, updated_at = ? WHERE id = ?`,
			*req.PaymentStatus,
			now,
			statementID,
		).Error; err != nil {
			return nil, err
		}
		statement.PaymentStatus = *req.PaymentStatus
		statement.UpdatedAt = now
	}
	return statement, nil
}

func (s *Service) insertStatement(
	ctx context.Context,
	tx *gorm.DB,
	trainerID snowflake.ID,
	p period.Period,
	currency string,
	breakdown *revenuedomain.RiderBreakdown,
	now time.Time,
) (bool, error) {
	result := tx.WithContext(ctx).Exec(
		`INSERT INTO billing_statements (
			id, trainer_id, rider_id, period_key,
			sessions_revenue_cents, competitions_revenue_cents, total_revenue_cents,
			currency, session_count, payment_requested, payment_status,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, TRUE, 'pending', ?, ?)
		ON CONFLICT (trainer_id, rider_id, period_key) DO NOTHING`,
		s.genID.Generate(),
		trainerID,
		breakdown.RiderID,
		p.Key(),
		breakdown.SessionsRevenueCents,
		breakdown.CompetitionsRevenueCents,
		breakdown.TotalCents(),
		currency,
		breakdown.SessionCount,
		now,
		now,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *Service) enqueuePaymentRequest(
	ctx context.Context,
	tx *gorm.DB,
	trainerID snowflake.ID,
	p period.Period,
	currency string,
	breakdown *revenuedomain.RiderBreakdown,
) error {
	rider, err := s.users.FindByID(ctx, tx, breakdown.RiderID)
	if err != nil {
		return err
	}
	if rider == nil {
		return identitydomain.ErrUserNotFound
	}

	target := guardian.ResolveTarget(guardian.Person{
		Email:       rider.Email,
		Birthday:    rider.Birthday,
		ParentEmail: rider.ParentEmailOrEmpty(),
	}, s.clk.Now())

	amount := fmt.Sprintf("%.2f", float64(breakdown.TotalCents())/100)
	return s.outbox.EnqueueTx(ctx, tx, notification.Request{
		Recipient: target,
		Template:  notificationdomain.TemplatePaymentRequest,
		Params: map[string]any{
			"title":   "Payment request for " + p.Key(),
			"message": fmt.Sprintf("%s total: %s %s", p.Key(), currency, amount),
			"period":  p.Key(),
			"amount":  breakdown.TotalCents(),
		},
		DedupeKey: fmt.Sprintf("payment_request|%s|%s|%s", trainerID, breakdown.RiderID, p.Key()),
	})
}

func (s *Service) countStatements(ctx context.Context, trainerID snowflake.ID, periodKey string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM billing_statements WHERE trainer_id = ? AND period_key = ?`,
		trainerID,
		periodKey,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Service) load(ctx context.Context, id snowflake.ID) (*statementdomain.BillingStatement, error) {
	var statement statementdomain.BillingStatement
	err := s.db.WithContext(ctx).Raw(
		`SELECT * FROM billing_statements WHERE id = ?`,
		id,
	).Scan(&statement).Error
	if err != nil {
		return nil, err
	}
	if statement.ID == 0 {
		return nil, nil
	}
	return &statement, nil
}
