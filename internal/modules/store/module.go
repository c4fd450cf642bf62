package store

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"signal_bot/internal/modules/config"
	lifecyclesvc "signal_bot/internal/modules/lifecycle/service"
	"signal_bot/internal/modules/store/service"
	"signal_bot/pkg/db"
)

// Module — пул postgres + стор сигналов. Миграция схемы гоняется
// на старте, идемпотентно.
func Module() fx.Option {
	return fx.Module("store",
		fx.Provide(
			func(ctx context.Context, cfg *config.Config) (*db.PgTxManager, error) {
				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN: cfg.DB,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}

				if err := poolMaster.Ping(ctx); err != nil {
					return nil, err
				}

				return db.NewPgTxManager(poolMaster), nil
			},
			service.NewPgStore, // *service.PgStore
			func(s *service.PgStore) lifecyclesvc.SignalStore { return s },
		),
		fx.Invoke(func(lc fx.Lifecycle, s *service.PgStore, tx *db.PgTxManager) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return s.Init(ctx)
				},
				OnStop: func(context.Context) error {
					tx.Close()
					return nil
				},
			})
		}),
	)
}
