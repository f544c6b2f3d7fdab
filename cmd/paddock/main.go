package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/stablehq/paddock/internal/audit"
	"github.com/stablehq/paddock/internal/clock"
	"github.com/stablehq/paddock/internal/competition"
	"github.com/stablehq/paddock/internal/config"
	"github.com/stablehq/paddock/internal/horsecare"
	"github.com/stablehq/paddock/internal/identity"
	"github.com/stablehq/paddock/internal/migration"
	"github.com/stablehq/paddock/internal/notification"
	"github.com/stablehq/paddock/internal/observability/logger"
	"github.com/stablehq/paddock/internal/observability/metrics"
	"github.com/stablehq/paddock/internal/observability/tracing"
	"github.com/stablehq/paddock/internal/ratecard"
	"github.com/stablehq/paddock/internal/revenue"
	"github.com/stablehq/paddock/internal/seed"
	"github.com/stablehq/paddock/internal/server"
	"github.com/stablehq/paddock/internal/session"
	"github.com/stablehq/paddock/internal/statement"
	"github.com/stablehq/paddock/internal/statement/generator"
	"github.com/stablehq/paddock/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var version = "dev"

func main() {
	metrics.Register()

	app := fx.New(
		config.Module,
		logger.Module,
		tracing.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RunMigrations(sqlDB); err != nil {
				return err
			}
			if !cfg.IsProduction() {
				return seed.EnsureDefaultUsers(conn)
			}
			return nil
		}),

		identity.Module,
		ratecard.Module,
		session.Module,
		competition.Module,
		revenue.Module,
		notification.Module,
		statement.Module,
		generator.Module,
		horsecare.Module,
		audit.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server) {
			s.RegisterAPIRoutes()
		}),
		fx.Invoke(server.RunHTTP),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
