package engine

import (
	"context"

	"go.uber.org/fx"

	"signal_bot/internal/candles"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/engine/service"
	lifecyclesvc "signal_bot/internal/modules/lifecycle/service"
	"signal_bot/internal/oi"
	"signal_bot/internal/regime"
)

func Module() fx.Option {
	return fx.Module("engine",
		fx.Provide(
			func(cfg *config.Config) *candles.Aggregator {
				return candles.NewAggregator(cfg.Engine.CandleInterval, cfg.Engine.MaxBars)
			},
			func(cfg *config.Config) *regime.Assessor {
				return regime.NewAssessor(cfg.Engine.Regime)
			},
			func(cfg *config.Config) *oi.Analyzer {
				return oi.NewAnalyzer(cfg.Engine.OI)
			},
			// узкие срезы зависимостей движка
			func(m *lifecyclesvc.Manager) service.SignalBook { return m },
			func(n lifecyclesvc.Notifier) service.Notifier { return n },
			func(bc lifecyclesvc.Broadcaster) service.Broadcaster { return bc },
			service.NewEngine, // *service.Engine
		),
		fx.Invoke(run),
	)
}

// run — движок стартует после lifecycle-менеджера (fx соблюдает порядок
// зависимостей), результат сделок замыкается обратно в circuit breaker.
func run(lc fx.Lifecycle, e *service.Engine, m *lifecyclesvc.Manager) {
	m.SetRecorder(e)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return e.Start(context.Background())
		},
		OnStop: func(context.Context) error {
			e.Stop()
			return nil
		},
	})
}
