// Package server exposes the HTTP API: rate cards, sessions, competitions,
// statements, horses and care events, plus login and operator endpoints.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	auditservice "github.com/stablehq/paddock/internal/audit/service"
	"github.com/stablehq/paddock/internal/clock"
	competitiondomain "github.com/stablehq/paddock/internal/competition/domain"
	"github.com/stablehq/paddock/internal/config"
	horsecaredomain "github.com/stablehq/paddock/internal/horsecare/domain"
	identitydomain "github.com/stablehq/paddock/internal/identity/domain"
	ratecarddomain "github.com/stablehq/paddock/internal/ratecard/domain"
	sessiondomain "github.com/stablehq/paddock/internal/session/domain"
	statementdomain "github.com/stablehq/paddock/internal/statement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Server struct {
	cfg          config.Config
	db           *gorm.DB
	log          *zap.Logger
	clk          clock.Clock
	users        identitydomain.Repository
	rateSvc      ratecarddomain.Service
	sessionSvc   sessiondomain.Service
	compSvc      competitiondomain.Service
	statementSvc statementdomain.Service
	horseSvc     horsecaredomain.Service
	auditSvc     *auditservice.Service
	engine       *gin.Engine
	loginLimiter *rateLimiter
}

type ServerParam struct {
	fx.In

	Cfg          config.Config
	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	Users        identitydomain.Repository
	RateSvc      ratecarddomain.Service
	SessionSvc   sessiondomain.Service
	CompSvc      competitiondomain.Service
	StatementSvc statementdomain.Service
	HorseSvc     horsecaredomain.Service
	AuditSvc     *auditservice.Service
	Engine       *gin.Engine
}

func NewServer(p ServerParam) *Server {
	return &Server{
		cfg:          p.Cfg,
		db:           p.DB,
		log:          p.Log.Named("server"),
		clk:          p.Clock,
		users:        p.Users,
		rateSvc:      p.RateSvc,
		sessionSvc:   p.SessionSvc,
		compSvc:      p.CompSvc,
		statementSvc: p.StatementSvc,
		horseSvc:     p.HorseSvc,
		auditSvc:     p.AuditSvc,
		engine:       p.Engine,
		loginLimiter: newRateLimiter(10, time.Minute),
	}
}

// RegisterAPIRoutes mounts the authenticated API surface under /api.
func (s *Server) RegisterAPIRoutes() {
	s.engine.POST("/api/login", s.Login)

	api := s.engine.Group("/api")
	api.Use(s.AuthRequired())

	rates := api.Group("/billing/rates", s.RequireRole(identitydomain.RoleTrainer))
	rates.GET("", s.ListRates)
	rates.POST("", s.UpsertRate)
	rates.DELETE("/:serviceType", s.DeleteRate)

	statements := api.Group("/billing/statements", s.RequireRole(identitydomain.RoleTrainer))
	statements.GET("", s.ListStatements)
	statements.PATCH("/:id", s.UpdateStatement)

	api.POST("/billing/runs", s.RequireRole(identitydomain.RoleAdmin), s.RunBilling)
	api.GET("/audit", s.RequireRole(identitydomain.RoleAdmin), s.ListAuditLogs)

	api.POST("/sessions", s.RequireRole(identitydomain.RoleTrainer), s.CreateSession)
	api.GET("/sessions", s.RequireRole(identitydomain.RoleTrainer), s.ListSessions)
	api.POST("/sessions/:id/verify", s.VerifySession)
	api.POST("/sessions/:id/cancel", s.RequireRole(identitydomain.RoleTrainer), s.CancelSession)

	competitions := api.Group("/competitions", s.RequireRole(identitydomain.RoleTrainer))
	competitions.POST("", s.CreateCompetition)
	competitions.GET("/:id", s.GetCompetition)
	competitions.PATCH("/:id/riders/:riderId", s.SetCompetitionRiderPayment)

	api.POST("/horses", s.CreateHorse)
	api.GET("/horses", s.ListHorses)
	api.POST("/horses/events", s.CreateCareEvent)
	api.GET("/horses/:id/events", s.ListCareEvents)
	api.PATCH("/horses/events/:id", s.UpdateCareEvent)
}

// RunHTTP starts the HTTP listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, engine *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
