package statement

import (
	"github.com/stablehq/paddock/internal/statement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("statement",
	fx.Provide(service.NewService),
)
