package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"signal_bot/internal/models"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
)

// Config ...
type Config struct {
	Telegram struct {
		Token  string `mapstructure:"token"`
		ChatID int64  `mapstructure:"chat_id"`
	} `mapstructure:"telegram"`
	DB     string `mapstructure:"db_dsn"`
	Jaeger struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"jaeger"`
	Broadcast struct {
		Addr string `mapstructure:"addr"` // ws-хаб, например ":8090"
	} `mapstructure:"broadcast"`
	Gateway struct {
		BaseURL string `mapstructure:"base_url"`
		WSURL   string `mapstructure:"ws_url"`
		APIKey  string `mapstructure:"api_key"`
	} `mapstructure:"gateway"`

	Engine EngineConfig `mapstructure:"engine"`

	// Файл с параметрами стратегий (окна, кулдауны, риск).
	StrategiesFile string `mapstructure:"strategies_file"`
}

// EngineConfig — вся «магия» пайплайна вынесена в конфиг, параметры
// конкретных стратегий живут в strategies.yaml.
type EngineConfig struct {
	Instruments []models.InstrumentSpec `mapstructure:"instruments"`

	CandleInterval time.Duration `mapstructure:"candle_interval"` // ширина бакета
	MaxBars        int           `mapstructure:"max_bars"`        // кольцевой буфер
	MinBars        int           `mapstructure:"min_bars"`        // гейт прогрева

	IndicatorRefresh time.Duration `mapstructure:"indicator_refresh"`
	StrategyCycle    time.Duration `mapstructure:"strategy_cycle"`
	MonitorInterval  time.Duration `mapstructure:"monitor_interval"`

	MarketOpen     string `mapstructure:"market_open"`     // "09:15"
	MarketClose    string `mapstructure:"market_close"`    // "15:30"
	IntradayCutoff string `mapstructure:"intraday_cutoff"` // принудительный выход INT
	CarryCutoff    string `mapstructure:"carry_cutoff"`    // принудительный выход CF

	AcceptConfidence float64       `mapstructure:"accept_confidence"` // порог приёма, 80
	MinSignalGap     time.Duration `mapstructure:"min_signal_gap"`    // глобальный зазор

	BreakerLosses  int           `mapstructure:"breaker_losses"`  // 3 подряд
	BreakerSuspend time.Duration `mapstructure:"breaker_suspend"` // окно дисквалификации

	StaleMaxAge     time.Duration `mapstructure:"stale_max_age"` // грейс для старого снапшота
	StaleMaxRetries int           `mapstructure:"stale_max_retries"`

	PriceThrottle time.Duration `mapstructure:"price_throttle"` // мин. зазор price_update

	SummaryEvery time.Duration `mapstructure:"summary_every"` // периодическая сводка

	// Пороги режима/OI. Эмпирика из боевой настройки — не трогать без бэктеста.
	Regime RegimeThresholds `mapstructure:"regime"`
	OI     OIThresholds     `mapstructure:"oi"`
}

type RegimeThresholds struct {
	VolatileScore    float64 `mapstructure:"volatile_score"`    // 70
	TrendSpreadPct   float64 `mapstructure:"trend_spread_pct"`  // 0.15 (EMA20/50 спред, %)
	BreakoutLookback int     `mapstructure:"breakout_lookback"` // 10 баров
	MaxConfidence    float64 `mapstructure:"max_confidence"`    // 95
}

type OIThresholds struct {
	StrongChangePct float64 `mapstructure:"strong_change_pct"` // 5.0
	TrapBothUpPct   float64 `mapstructure:"trap_both_up_pct"`  // 3.0: обе ноги растут
	WriterTrapPct   float64 `mapstructure:"writer_trap_pct"`   // 8.0 без подтверждения ценой
	MinConfidence   float64 `mapstructure:"min_confidence"`    // 40: ниже — no trade
	TrapPenalty     float64 `mapstructure:"trap_penalty"`      // штраф уверенности за ловушку
}

func NewConfig() (*Config, error) {
	v := viper.New()

	name := os.Getenv(configFilePathENV)
	if name == "" {
		name = "values_local.yaml"
	}
	v.SetConfigFile("configs/" + name)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "read config file")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	// секреты только из окружения
	if token := os.Getenv(tokenTelegramENV); token != "" {
		cfg.Telegram.Token = token
	}
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		cfg.DB = dsn
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("strategies_file", "configs/strategies.yaml")
	v.SetDefault("broadcast.addr", ":8090")

	v.SetDefault("engine.candle_interval", "1m")
	v.SetDefault("engine.max_bars", 400)
	v.SetDefault("engine.min_bars", 50)

	v.SetDefault("engine.indicator_refresh", "60s")
	v.SetDefault("engine.strategy_cycle", "15s")
	v.SetDefault("engine.monitor_interval", "3s")

	v.SetDefault("engine.market_open", "09:15")
	v.SetDefault("engine.market_close", "15:30")
	v.SetDefault("engine.intraday_cutoff", "15:10")
	v.SetDefault("engine.carry_cutoff", "15:25")

	v.SetDefault("engine.accept_confidence", 80.0)
	v.SetDefault("engine.min_signal_gap", "5m")

	v.SetDefault("engine.breaker_losses", 3)
	v.SetDefault("engine.breaker_suspend", "30m")

	v.SetDefault("engine.stale_max_age", "5m")
	v.SetDefault("engine.stale_max_retries", 3)

	v.SetDefault("engine.price_throttle", "2s")
	v.SetDefault("engine.summary_every", "30m")

	v.SetDefault("engine.regime.volatile_score", 70.0)
	v.SetDefault("engine.regime.trend_spread_pct", 0.15)
	v.SetDefault("engine.regime.breakout_lookback", 10)
	v.SetDefault("engine.regime.max_confidence", 95.0)

	v.SetDefault("engine.oi.strong_change_pct", 5.0)
	v.SetDefault("engine.oi.trap_both_up_pct", 3.0)
	v.SetDefault("engine.oi.writer_trap_pct", 8.0)
	v.SetDefault("engine.oi.min_confidence", 40.0)
	v.SetDefault("engine.oi.trap_penalty", 25.0)
}
