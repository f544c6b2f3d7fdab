package horsecare

import (
	"github.com/stablehq/paddock/internal/horsecare/service"
	"go.uber.org/fx"
)

var Module = fx.Module("horsecare",
	fx.Provide(service.NewService),
)
