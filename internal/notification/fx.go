package notification

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("notification",
	fx.Provide(NewOutbox),
	fx.Provide(NewSMTPDispatcher),
	fx.Provide(NewSender),
	fx.Invoke(runSender),
)

func runSender(lc fx.Lifecycle, sender *Sender) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go sender.RunForever(context.Background())
			return nil
		},
	})
}
