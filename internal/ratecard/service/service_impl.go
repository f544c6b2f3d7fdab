package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stablehq/paddock/internal/cache"
	"github.com/stablehq/paddock/internal/config"
	ratecarddomain "github.com/stablehq/paddock/internal/ratecard/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type rateKey struct {
	trainerID   snowflake.ID
	serviceType string
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	cache cache.Cache[rateKey, ratecarddomain.RateEntry]
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Cfg   config.Config
}

func NewService(p ServiceParam) ratecarddomain.Service {
	var c cache.Cache[rateKey, ratecarddomain.RateEntry] = cache.Noop[rateKey, ratecarddomain.RateEntry]{}
	if ttl := p.Cfg.Billing.RateCacheTTL; ttl > 0 {
		c = cache.New[rateKey, ratecarddomain.RateEntry](ttl)
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ratecard.service"),
		genID: p.GenID,
		cache: c,
	}
}

// Upsert replaces any existing entry for (trainer, service type) in place.
// Rate upserts are key-scoped and last-write-wins.
func (s *Service) Upsert(ctx context.Context, trainerID snowflake.ID, req ratecarddomain.UpsertRequest) (*ratecarddomain.RateEntry, error) {
	serviceType, err := normalizeServiceType(req.ServiceType)
	if err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(currency) != 3 {
		return nil, ratecarddomain.ErrInvalidCurrency
	}
	if req.AmountCents <= 0 {
		return nil, ratecarddomain.ErrInvalidAmount
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Exec(
		`INSERT INTO rate_entries (id, trainer_id, service_type, currency, amount_cents, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (trainer_id, service_type)
		 DO UPDATE SET currency = EXCLUDED.currency,
		               amount_cents = EXCLUDED.amount_cents,
		               updated_at = EXCLUDED.updated_at`,
		s.genID.Generate(),
		trainerID,
		serviceType,
		currency,
		req.AmountCents,
		now,
		now,
	).Error
	if err != nil {
		return nil, err
	}

	s.cache.Delete(rateKey{trainerID: trainerID, serviceType: serviceType})
	return s.load(ctx, trainerID, serviceType)
}

// Lookup returns the rate for (trainer, service type), or nil when none is
// configured. Absence is not an error: unpriced work contributes zero revenue.
func (s *Service) Lookup(ctx context.Context, trainerID snowflake.ID, serviceType string) (*ratecarddomain.RateEntry, error) {
	serviceType, err := normalizeServiceType(serviceType)
	if err != nil {
		return nil, err
	}

	key := rateKey{trainerID: trainerID, serviceType: serviceType}
	if entry, ok := s.cache.Get(key); ok {
		return &entry, nil
	}

	entry, err := s.load(ctx, trainerID, serviceType)
	if err != nil || entry == nil {
		return entry, err
	}
	s.cache.Set(key, *entry)
	return entry, nil
}

func (s *Service) List(ctx context.Context, trainerID snowflake.ID) ([]ratecarddomain.RateEntry, error) {
	var entries []ratecarddomain.RateEntry
	err := s.db.WithContext(ctx).
		Where("trainer_id = ?", trainerID).
		Order("service_type").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Service) Delete(ctx context.Context, trainerID snowflake.ID, serviceType string) error {
	serviceType, err := normalizeServiceType(serviceType)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Exec(
		`DELETE FROM rate_entries WHERE trainer_id = ? AND service_type = ?`,
		trainerID,
		serviceType,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ratecarddomain.ErrRateNotFound
	}
	s.cache.Delete(rateKey{trainerID: trainerID, serviceType: serviceType})
	return nil
}

func (s *Service) load(ctx context.Context, trainerID snowflake.ID, serviceType string) (*ratecarddomain.RateEntry, error) {
	var entry ratecarddomain.RateEntry
	err := s.db.WithContext(ctx).Raw(
		`SELECT id, trainer_id, service_type, currency, amount_cents, created_at, updated_at
		 FROM rate_entries
		 WHERE trainer_id = ? AND service_type = ?`,
		trainerID,
		serviceType,
	).Scan(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func normalizeServiceType(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ratecarddomain.ErrInvalidServiceType
	}
	return value, nil
}
