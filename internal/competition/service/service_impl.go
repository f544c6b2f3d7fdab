package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	competitiondomain "github.com/stablehq/paddock/internal/competition/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p ServiceParam) competitiondomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("competition.service"),
		genID: p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, trainerID snowflake.ID, req competitiondomain.CreateRequest) (*competitiondomain.CompetitionEntry, error) {
	if req.CompetitionDate.IsZero() {
		return nil, competitiondomain.ErrInvalidCompetitionDate
	}

	now := time.Now().UTC()
	entry := &competitiondomain.CompetitionEntry{
		ID:              s.genID.Generate(),
		TrainerID:       trainerID,
		Name:            strings.TrimSpace(req.Name),
		CompetitionDate: req.CompetitionDate.UTC(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for _, rider := range req.Riders {
		riderID, err := snowflake.ParseString(strings.TrimSpace(rider.RiderID))
		if err != nil {
			return nil, competitiondomain.ErrInvalidRider
		}
		services, err := encodeServices(rider.Services)
		if err != nil {
			return nil, err
		}
		entry.Riders = append(entry.Riders, competitiondomain.CompetitionRider{
			ID:            s.genID.Generate(),
			CompetitionID: entry.ID,
			RiderID:       riderID,
			Services:      services,
			PaymentStatus: competitiondomain.PaymentStatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) GetByID(ctx context.Context, trainerID, id snowflake.ID) (*competitiondomain.CompetitionEntry, error) {
	var entry competitiondomain.CompetitionEntry
	err := s.db.WithContext(ctx).
		Preload("Riders").
		Where("id = ?", id).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, competitiondomain.ErrCompetitionNotFound
		}
		return nil, err
	}
	if entry.TrainerID != trainerID {
		return nil, competitiondomain.ErrNotCompetitionTrainer
	}
	return &entry, nil
}

// SetRiderPaymentStatus moves a rider's payment state forward
// (pending → requested → paid); backwards transitions are rejected.
func (s *Service) SetRiderPaymentStatus(ctx context.Context, trainerID, competitionID, riderID snowflake.ID, status competitiondomain.PaymentStatus) (*competitiondomain.CompetitionRider, error) {
	if status.Rank() < 0 {
		return nil, competitiondomain.ErrInvalidPaymentStatus
	}

	entry, err := s.GetByID(ctx, trainerID, competitionID)
	if err != nil {
		return nil, err
	}

	var current *competitiondomain.CompetitionRider
	for i := range entry.Riders {
		if entry.Riders[i].RiderID == riderID {
			current = &entry.Riders[i]
			break
		}
	}
	if current == nil {
		return nil, competitiondomain.ErrRiderEntryNotFound
	}
	if status.Rank() < current.PaymentStatus.Rank() {
		return nil, competitiondomain.ErrPaymentStatusBackwards
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Exec(
		`UPDATE competition_riders SET payment_status = ?, updated_at = ? WHERE id = ?`,
		status,
		now,
		current.ID,
	).Error; err != nil {
		return nil, err
	}

	current.PaymentStatus = status
	current.UpdatedAt = now
	return current, nil
}

func encodeServices(services []string) (datatypes.JSON, error) {
	cleaned := make([]string, 0, len(services))
	for _, service := range services {
		service = strings.TrimSpace(service)
		if service == "" {
			return nil, competitiondomain.ErrInvalidServices
		}
		cleaned = append(cleaned, service)
	}
	raw, err := json.Marshal(cleaned)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
