package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/stablehq/paddock/internal/identity/domain"
	sessiondomain "github.com/stablehq/paddock/internal/session/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	users identitydomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Users identitydomain.Repository
}

func NewService(p ServiceParam) sessiondomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("session.service"),
		genID: p.GenID,
		users: p.Users,
	}
}

func (s *Service) Create(ctx context.Context, trainerID snowflake.ID, req sessiondomain.CreateRequest) (*sessiondomain.TrainingSession, error) {
	riderID, err := snowflake.ParseString(strings.TrimSpace(req.RiderID))
	if err != nil {
		return nil, sessiondomain.ErrInvalidRider
	}
	sessionType := strings.TrimSpace(req.SessionType)
	if sessionType == "" {
		return nil, sessiondomain.ErrInvalidSessionType
	}
	if req.SessionDate.IsZero() {
		return nil, sessiondomain.ErrInvalidSessionDate
	}

	rider, err := s.users.FindByID(ctx, s.db, riderID)
	if err != nil {
		return nil, err
	}
	if rider == nil {
		return nil, identitydomain.ErrUserNotFound
	}

	now := time.Now().UTC()
	record := &sessiondomain.TrainingSession{
		ID:          s.genID.Generate(),
		TrainerID:   trainerID,
		RiderID:     riderID,
		SessionType: sessionType,
		SessionDate: req.SessionDate.UTC(),
		Status:      sessiondomain.SessionStatusScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// Verify flips the rider confirmation flag. The transition is one-way and
// guarded at the storage layer so a second verify is rejected.
func (s *Service) Verify(ctx context.Context, riderID, sessionID snowflake.ID) (*sessiondomain.TrainingSession, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, sessiondomain.ErrSessionNotFound
	}
	if session.RiderID != riderID {
		return nil, sessiondomain.ErrNotSessionRider
	}
	if session.Status == sessiondomain.SessionStatusCancelled {
		return nil, sessiondomain.ErrSessionCancelled
	}

	now := time.Now().UTC()
	result := s.db.WithContext(ctx).Exec(
		`UPDATE training_sessions
		 SET verified = TRUE, verified_at = ?, updated_at = ?
		 WHERE id = ? AND verified = FALSE AND status = ?`,
		now,
		now,
		sessionID,
		sessiondomain.SessionStatusScheduled,
	)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, sessiondomain.ErrAlreadyVerified
	}
	return s.load(ctx, sessionID)
}

func (s *Service) Cancel(ctx context.Context, trainerID, sessionID snowflake.ID) (*sessiondomain.TrainingSession, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, sessiondomain.ErrSessionNotFound
	}
	if session.TrainerID != trainerID {
		return nil, sessiondomain.ErrNotSessionTrainer
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Exec(
		`UPDATE training_sessions SET status = ?, updated_at = ? WHERE id = ?`,
		sessiondomain.SessionStatusCancelled,
		now,
		sessionID,
	).Error; err != nil {
		return nil, err
	}
	return s.load(ctx, sessionID)
}

func (s *Service) ListForTrainer(ctx context.Context, trainerID snowflake.ID, req sessiondomain.ListRequest) ([]sessiondomain.TrainingSession, error) {
	query := s.db.WithContext(ctx).Where("trainer_id = ?", trainerID)
	if req.From != nil {
		query = query.Where("session_date >= ?", req.From.UTC())
	}
	if req.To != nil {
		query = query.Where("session_date < ?", req.To.UTC())
	}

	var sessions []sessiondomain.TrainingSession
	if err := query.Order("session_date").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *Service) load(ctx context.Context, id snowflake.ID) (*sessiondomain.TrainingSession, error) {
	var session sessiondomain.TrainingSession
	err := s.db.WithContext(ctx).Raw(
		`SELECT id, trainer_id, rider_id, session_type, session_date, status, verified, verified_at, created_at, updated_at
		 FROM training_sessions
		 WHERE id = ?`,
		id,
	).Scan(&session).Error
	if err != nil {
		return nil, err
	}
	if session.ID == 0 {
		return nil, nil
	}
	return &session, nil
}
