package broadcast

import (
	"context"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"

	"signal_bot/internal/modules/broadcast/service"
	"signal_bot/internal/modules/config"
	lifecyclesvc "signal_bot/internal/modules/lifecycle/service"
	"signal_bot/pkg/logger"
)

// Module — ws-хаб realtime-событий на отдельном листенере.
func Module() fx.Option {
	return fx.Module("broadcast",
		fx.Provide(
			service.NewHub, // *service.Hub
			func(h *service.Hub) lifecyclesvc.Broadcaster { return h },
		),
		fx.Invoke(run),
	)
}

func run(lc fx.Lifecycle, cfg *config.Config, h *service.Hub) {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)

	srv := &http.Server{
		Addr:              cfg.Broadcast.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", cfg.Broadcast.Addr)
			if err != nil {
				return err
			}
			go func() { _ = srv.Serve(ln) }()
			logger.Info("[WS-HUB] слушаем %s", cfg.Broadcast.Addr)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			h.Close()
			return srv.Shutdown(ctx)
		},
	})
}
