package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/stablehq/paddock/internal/audit/domain"
	"github.com/stablehq/paddock/internal/auditcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entry is the caller-facing shape of one audit record. Actor and request
// details are pulled from the context by Record.
type Entry struct {
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
}

func NewService(p ServiceParam) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

// Record writes one audit entry. Audit failures are logged, never returned:
// an operation must not fail because its trail could not be written.
func (s *Service) Record(ctx context.Context, entry Entry) {
	actorType, actorID := auditcontext.ActorFromContext(ctx)
	if actorType == "" {
		actorType = string(auditdomain.ActorTypeSystem)
	}

	record := &auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		ActorType:  actorType,
		Action:     entry.Action,
		TargetType: entry.TargetType,
		Metadata:   datatypes.JSONMap{},
	}
	if actorID != "" {
		record.ActorID = &actorID
	}
	if entry.TargetID != "" {
		record.TargetID = &entry.TargetID
	}
	if ip := auditcontext.IPAddressFromContext(ctx); ip != "" {
		record.IPAddress = &ip
	}
	if agent := auditcontext.UserAgentFromContext(ctx); agent != "" {
		record.UserAgent = &agent
	}
	for key, value := range entry.Metadata {
		record.Metadata[key] = value
	}
	if requestID := auditcontext.RequestIDFromContext(ctx); requestID != "" {
		record.Metadata["request_id"] = requestID
	}

	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		s.log.Warn("failed to write audit log",
			zap.String("action", entry.Action),
			zap.String("target_type", entry.TargetType),
			zap.Error(err),
		)
	}
}

func (s *Service) List(ctx context.Context, filter auditdomain.ListFilter) ([]*auditdomain.AuditLog, error) {
	return s.repo.List(ctx, s.db, filter)
}
