package competition

import (
	"github.com/stablehq/paddock/internal/competition/service"
	"go.uber.org/fx"
)

var Module = fx.Module("competition.service",
	fx.Provide(service.NewService),
)
