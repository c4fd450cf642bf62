package main

import (
	"context"
	"log"

	"go.uber.org/fx"

	"signal_bot/internal/modules/broadcast"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/engine"
	"signal_bot/internal/modules/health"
	"signal_bot/internal/modules/lifecycle"
	"signal_bot/internal/modules/marketdata"
	"signal_bot/internal/modules/notify"
	"signal_bot/internal/modules/store"
	"signal_bot/internal/modules/strategy"
	"signal_bot/pkg/logger"
	"signal_bot/pkg/tracing"
)

const serviceName = "signal_bot"

func main() {
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}
	logger.SetServiceName(serviceName)
	tracing.SetServiceName(serviceName)

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		store.Module(),
		marketdata.Module(),
		strategy.Module(),
		lifecycle.Module(),
		engine.Module(),
		notify.Module(),
		broadcast.Module(),
		health.Module(),
		fx.Invoke(runTracer),
	)
	app.Run()
}

// runTracer — jaeger опционален: без хоста работаем с noop-трейсером.
func runTracer(lc fx.Lifecycle, cfg *config.Config) {
	if cfg.Jaeger.Host == "" {
		return
	}
	_, closeFn, err := tracing.InitTracer(tracing.Config{
		Host: cfg.Jaeger.Host,
		Port: cfg.Jaeger.Port,
	})
	if err != nil {
		logger.Error("[MAIN] jaeger init: %v", err)
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closeFn()
			return nil
		},
	})
}
