package lifecycle

import (
	"context"

	"go.uber.org/fx"

	"signal_bot/internal/modules/lifecycle/service"
)

func Module() fx.Option {
	return fx.Module("lifecycle",
		fx.Provide(
			service.NewManager, // *service.Manager
		),
		fx.Invoke(run),
	)
}

// run — fx-хук: менеджер живёт дольше OnStart-контекста, поэтому
// работает на Background и гасится в OnStop.
func run(lc fx.Lifecycle, m *service.Manager) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return m.Start(context.Background())
		},
		OnStop: func(context.Context) error {
			m.Stop()
			return nil
		},
	})
}
