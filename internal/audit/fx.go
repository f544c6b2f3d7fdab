package audit

import (
	"github.com/stablehq/paddock/internal/audit/repository"
	"github.com/stablehq/paddock/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
