// Package generator runs the scheduled monthly statement generation. Once a
// calendar month closes, each trainer's previous-period statements are
// produced server-side during a short grace window; no client involvement is
// required.
package generator

import (
	"context"
	"errors"
	"time"

	"github.com/stablehq/paddock/internal/clock"
	"github.com/stablehq/paddock/internal/config"
	identitydomain "github.com/stablehq/paddock/internal/identity/domain"
	"github.com/stablehq/paddock/internal/period"
	statementdomain "github.com/stablehq/paddock/internal/statement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Worker struct {
	db         *gorm.DB
	log        *zap.Logger
	clk        clock.Clock
	users      identitydomain.Repository
	statements statementdomain.Service
	interval   time.Duration
	graceDays  int
}

type WorkerParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Users      identitydomain.Repository
	Statements statementdomain.Service
	Cfg        config.Config
}

func NewWorker(p WorkerParam) *Worker {
	return &Worker{
		db:         p.DB,
		log:        p.Log.Named("statement.generator"),
		clk:        p.Clock,
		users:      p.Users,
		statements: p.Statements,
		interval:   p.Cfg.Billing.GeneratorInterval,
		graceDays:  p.Cfg.Billing.GraceDays,
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("statement generation run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce generates previous-period statements for every trainer, but only
// while the current date sits inside the grace window after month close.
// Outside the window this is a no-op; inside it, Generate's idempotency makes
// repeated runs harmless.
func (w *Worker) RunOnce(ctx context.Context) error {
	now := w.clk.Now()
	prev := period.Previous(now)
	if !prev.InGraceWindow(now, w.graceDays) {
		return nil
	}

	trainers, err := w.users.ListByRole(ctx, w.db, identitydomain.RoleTrainer)
	if err != nil {
		return err
	}

	for _, trainer := range trainers {
		created, err := w.statements.Generate(ctx, trainer.ID, prev)
		if err != nil {
			if errors.Is(err, statementdomain.ErrPeriodNotClosed) {
				continue
			}
			w.log.Warn("statement generation failed for trainer",
				zap.String("trainer_id", trainer.ID.String()),
				zap.String("period", prev.Key()),
				zap.Error(err),
			)
			continue
		}
		if created > 0 {
			w.log.Info("scheduled generation produced statements",
				zap.String("trainer_id", trainer.ID.String()),
				zap.String("period", prev.Key()),
				zap.Int("created", created),
			)
		}
	}
	return nil
}
