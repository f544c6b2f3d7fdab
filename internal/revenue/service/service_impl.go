package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stablehq/paddock/internal/period"
	ratecarddomain "github.com/stablehq/paddock/internal/ratecard/domain"
	revenuedomain "github.com/stablehq/paddock/internal/revenue/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	rates ratecarddomain.Service
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Rates ratecarddomain.Service
}

func NewService(p ServiceParam) revenuedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("revenue.service"),
		rates: p.Rates,
	}
}

type sessionRow struct {
	RiderID     snowflake.ID
	SessionType string
	SessionDate time.Time
}

type competitionServiceRow struct {
	RiderID  snowflake.ID
	Services []byte
}

// Compute aggregates the trainer's revenue for the period: verified sessions
// plus paid competition rider-services, priced from the rate catalog. Work
// without a matching rate contributes zero and is not an error.
func (s *Service) Compute(ctx context.Context, trainerID snowflake.ID, p period.Period) (*revenuedomain.Result, error) {
	rates, err := s.rates.List(ctx, trainerID)
	if err != nil {
		return nil, err
	}
	rateByType := make(map[string]ratecarddomain.RateEntry, len(rates))
	currency := ""
	for _, rate := range rates {
		rateByType[rate.ServiceType] = rate
		if currency == "" {
			currency = rate.Currency
		} else if rate.Currency != currency {
			s.log.Warn("mixed currencies in rate catalog, keeping first",
				zap.String("trainer_id", trainerID.String()),
				zap.String("kept", currency),
				zap.String("ignored", rate.Currency),
			)
		}
	}

	result := &revenuedomain.Result{
		TrainerID: trainerID,
		Period:    p,
		Currency:  currency,
		PerRider:  make(map[snowflake.ID]*revenuedomain.RiderBreakdown),
	}

	sessions, err := s.loadVerifiedSessions(ctx, trainerID, p)
	if err != nil {
		return nil, err
	}
	for _, session := range sessions {
		rate, ok := rateByType[session.SessionType]
		if !ok {
			s.log.Debug("session type has no rate, skipping",
				zap.String("trainer_id", trainerID.String()),
				zap.String("session_type", session.SessionType),
			)
			continue
		}
		breakdown := result.PerRider[session.RiderID]
		if breakdown == nil {
			breakdown = &revenuedomain.RiderBreakdown{RiderID: session.RiderID}
			result.PerRider[session.RiderID] = breakdown
		}
		breakdown.SessionsRevenueCents += rate.AmountCents
		breakdown.SessionCount++
		result.SessionsRevenueCents += rate.AmountCents
		result.SessionCount++
	}

	paidServices, err := s.loadPaidCompetitionServices(ctx, trainerID, p)
	if err != nil {
		return nil, err
	}
	for _, row := range paidServices {
		var services []string
		if err := json.Unmarshal(row.Services, &services); err != nil {
			return nil, err
		}
		for _, serviceType := range services {
			rate, ok := rateByType[serviceType]
			if !ok {
				continue
			}
			breakdown := result.PerRider[row.RiderID]
			if breakdown == nil {
				breakdown = &revenuedomain.RiderBreakdown{RiderID: row.RiderID}
				result.PerRider[row.RiderID] = breakdown
			}
			breakdown.CompetitionsRevenueCents += rate.AmountCents
			result.CompetitionsRevenueCents += rate.AmountCents
		}
	}

	return result, nil
}

func (s *Service) loadVerifiedSessions(ctx context.Context, trainerID snowflake.ID, p period.Period) ([]sessionRow, error) {
	var rows []sessionRow
	err := s.db.WithContext(ctx).Raw(
		`SELECT rider_id, session_type, session_date
		 FROM training_sessions
		 WHERE trainer_id = ? AND verified = TRUE AND status = 'scheduled'
		   AND session_date >= ? AND session_date < ?
		 ORDER BY session_date`,
		trainerID,
		p.Start,
		p.End,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) loadPaidCompetitionServices(ctx context.Context, trainerID snowflake.ID, p period.Period) ([]competitionServiceRow, error) {
	var rows []competitionServiceRow
	err := s.db.WithContext(ctx).Raw(
		`SELECT cr.rider_id, cr.services
		 FROM competition_riders cr
		 JOIN competition_entries ce ON ce.id = cr.competition_id
		 WHERE ce.trainer_id = ? AND cr.payment_status = 'paid'
		   AND ce.competition_date >= ? AND ce.competition_date < ?
		 ORDER BY ce.competition_date`,
		trainerID,
		p.Start,
		p.End,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
