package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/fx"

	"signal_bot/internal/gateway"
	"signal_bot/internal/modules/config"
	enginesvc "signal_bot/internal/modules/engine/service"
	"signal_bot/internal/modules/health/service"
	lifecyclesvc "signal_bot/internal/modules/lifecycle/service"
)

type Config struct {
	Addr string // например ":8080"
}

func NewConfig() Config {
	return Config{Addr: ":8080"}
}

func NewMux(state *service.State, c *gateway.Client, e *enginesvc.Engine, cfg *config.Config) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		// liveness: процесс жив
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		// readiness: конфиг поднят, стор отвечает, фид подключён
		if !state.Ready() || !c.FeedConnected() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		// полезный JSON для отладки
		st := e.Status()
		resp := map[string]any{
			"ready":          state.Ready(),
			"feedConnected":  c.FeedConnected(),
			"tickFresh":      state.TickFresh(cfg.Engine.StaleMaxAge),
			"uptimeSec":      int64(state.Uptime().Seconds()),
			"activeSignals":  st.ActiveSignals,
			"vix":            st.VIX,
			"coolingDown":    st.CoolingDown,
			"circuitBroken":  st.Broken,
			"lastCycleUnix":  unixOrZero(st.LastCycleAt),
			"lastTickUnix":   unixOrZero(state.LastTick()),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	return mux
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

// Module — HTTP-пробы плюс периодическая сводка оператору.
func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			NewConfig,
			service.NewState,
			NewMux,
		),
		fx.Invoke(RunHTTP, runSummary),
	)
}

func RunHTTP(lc fx.Lifecycle, cfg Config, mux *http.ServeMux, state *service.State, c *gateway.Client) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			c.OnTick(func(token string, price, qty float64, at time.Time) {
				state.TouchTick(at)
			})
			go func() { _ = srv.Serve(ln) }()
			state.SetReady(true)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			state.SetReady(false)
			return srv.Shutdown(ctx)
		},
	})
}

// runSummary — раз в SummaryEvery шлём оператору короткий статус движка.
func runSummary(lc fx.Lifecycle, cfg *config.Config, e *enginesvc.Engine, n lifecyclesvc.Notifier) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				t := time.NewTicker(cfg.Engine.SummaryEvery)
				defer t.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-t.C:
						n.Summary(ctx, formatSummary(e.Status()))
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func formatSummary(st enginesvc.Status) string {
	var b strings.Builder
	b.WriteString("📈 Сводка движка\n")
	fmt.Fprintf(&b, "Активных сигналов: %d\n", st.ActiveSignals)
	fmt.Fprintf(&b, "VIX: %.2f\n", st.VIX)
	if !st.LastCycleAt.IsZero() {
		fmt.Fprintf(&b, "Последний цикл: %s\n", st.LastCycleAt.Format("15:04:05"))
	}
	if len(st.CoolingDown) > 0 {
		fmt.Fprintf(&b, "Кулдаун: %s\n", strings.Join(st.CoolingDown, ", "))
	}
	for id, until := range st.Broken {
		fmt.Fprintf(&b, "⛔️ %s до %s\n", id, until)
	}
	return b.String()
}
