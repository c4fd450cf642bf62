package marketdata

import (
	"context"

	"go.uber.org/fx"

	"signal_bot/internal/gateway"
	"signal_bot/internal/modules/config"
)

// Module — клиент брокерского шлюза: REST + тиковый WS-фид.
func Module() fx.Option {
	return fx.Module("marketdata",
		fx.Provide(
			func(cfg *config.Config) *gateway.Client {
				return gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.WSURL, cfg.Gateway.APIKey)
			},
			func(c *gateway.Client) gateway.MarketData { return c },
		),
		fx.Invoke(func(lc fx.Lifecycle, c *gateway.Client) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					c.StartFeed(context.Background())
					return nil
				},
				OnStop: func(context.Context) error {
					c.StopFeed()
					return nil
				},
			})
		}),
	)
}
