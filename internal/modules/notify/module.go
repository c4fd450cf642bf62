package notify

import (
	"context"

	"go.uber.org/fx"

	"signal_bot/internal/modules/config"
	lifecyclesvc "signal_bot/internal/modules/lifecycle/service"
	"signal_bot/internal/modules/notify/service"
	"signal_bot/pkg/logger"
)

// Module — телеграм при наличии токена, иначе stdout-заглушка.
func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(
			func(cfg *config.Config) (lifecyclesvc.Notifier, *service.Telegram, error) {
				if cfg.Telegram.Token == "" {
					logger.Info("[NOTIFY] telegram-токен не задан, уведомления в stdout")
					return service.NewStdout(), nil, nil
				}
				tg, err := service.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
				if err != nil {
					return nil, nil, err
				}
				return tg, tg, nil
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, tg *service.Telegram, m *lifecyclesvc.Manager) {
			if tg == nil {
				return
			}
			tg.SetDesk(m)
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					return tg.Start(context.Background())
				},
				OnStop: func(context.Context) error {
					tg.Stop()
					return nil
				},
			})
		}),
	)
}
