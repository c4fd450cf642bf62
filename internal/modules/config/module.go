package config

import "go.uber.org/fx"

// Module — конфигурация приложения и файл стратегий как fx-провайдеры.
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			NewConfig,
			func(cfg *Config) (*StrategiesConfig, error) {
				return LoadStrategies(cfg.StrategiesFile)
			},
		),
	)
}
