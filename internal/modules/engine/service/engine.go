package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"signal_bot/internal/candles"
	"signal_bot/internal/gateway"
	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/oi"
	"signal_bot/internal/regime"
	strategysvc "signal_bot/internal/modules/strategy/service"
	"signal_bot/pkg/logger"
)

// SignalBook — то, что движку нужно от lifecycle-менеджера.
type SignalBook interface {
	Track(ctx context.Context, s *models.Signal) error
	HasOpenStrategy(strategyID string) bool
	OpenDirections() map[models.Direction]int
	StrikeOpen(instrument string, strike float64, dir models.Direction) bool
	ActiveCount() int
}

// Notifier и Broadcaster — как в lifecycle, свой минимальный срез.
type Notifier interface {
	Summary(ctx context.Context, text string)
}

type Broadcaster interface {
	Publish(event string, payload any)
}

type snapEntry struct {
	snap  *models.IndicatorSnapshot
	fresh models.Freshness
}

type breakerState struct {
	losses        int
	disabledUntil time.Time
}

// Engine — оркестратор: таймеры, кулдауны, circuit breaker, глобальный
// зазор. Всё состояние живёт в полях, никаких пакетных синглтонов —
// stop чистит, рестарт строит заново.
type Engine struct {
	cfg      *config.Config
	gw       gateway.MarketData
	agg      *candles.Aggregator
	assessor *regime.Assessor
	oiAn     *oi.Analyzer
	registry *strategysvc.Registry
	book     SignalBook
	n        Notifier
	bc       Broadcaster

	mu        sync.Mutex
	snapshots map[string]*snapEntry
	oiViews   map[string]*models.OIAnalysis
	oiSnaps   map[string]*models.OISnapshot
	oiFresh   map[string]*models.Freshness
	prevSpot  map[string]float64
	expiry    map[string]time.Time
	cooldown  map[string]time.Time // strategyID -> last fired
	breaker   map[string]*breakerState
	bootDone  map[string]bool

	vix      float64
	vixFresh models.Freshness

	lastSignalAt time.Time
	lastCycleAt  time.Time
	warmupSent   bool

	cycleBusy   atomic.Bool // single-flight цикла, на процесс
	refreshBusy atomic.Bool // single-flight рефреша

	cancel context.CancelFunc
}

func NewEngine(
	cfg *config.Config,
	gw gateway.MarketData,
	agg *candles.Aggregator,
	assessor *regime.Assessor,
	oiAn *oi.Analyzer,
	registry *strategysvc.Registry,
	book SignalBook,
	n Notifier,
	bc Broadcaster,
) *Engine {
	return &Engine{
		cfg:       cfg,
		gw:        gw,
		agg:       agg,
		assessor:  assessor,
		oiAn:      oiAn,
		registry:  registry,
		book:      book,
		n:         n,
		bc:        bc,
		snapshots: make(map[string]*snapEntry),
		oiViews:   make(map[string]*models.OIAnalysis),
		oiSnaps:   make(map[string]*models.OISnapshot),
		oiFresh:   make(map[string]*models.Freshness),
		prevSpot:  make(map[string]float64),
		expiry:    make(map[string]time.Time),
		cooldown:  make(map[string]time.Time),
		breaker:   make(map[string]*breakerState),
		bootDone:  make(map[string]bool),
	}
}

// Start — прогрев истории, подписка на тики, запуск таймеров.
func (e *Engine) Start(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	e.cancel = cancel

	e.warmup(ctx)

	e.gw.OnTick(e.onTick)
	for _, inst := range e.cfg.Engine.Instruments {
		if err := e.gw.SubscribeTicks(inst.Token); err != nil {
			logger.Error("[ENGINE] subscribe %s: %v", inst.Token, err)
		}
	}

	go e.refreshLoop(ctx)
	go e.cycleLoop(ctx)

	e.bc.Publish("engine_status", map[string]any{"running": true})
	logger.Info("[ENGINE] started: %d инструментов, %d стратегий",
		len(e.cfg.Engine.Instruments), len(e.registry.IDs()))
	return nil
}

// Stop — таймеры вниз, кэши в ноль, фиды отписаны. Открытые сигналы
// в сторе не трогаем.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	for _, inst := range e.cfg.Engine.Instruments {
		_ = e.gw.UnsubscribeTicks(inst.Token)
	}

	e.mu.Lock()
	e.snapshots = make(map[string]*snapEntry)
	e.oiViews = make(map[string]*models.OIAnalysis)
	e.oiSnaps = make(map[string]*models.OISnapshot)
	e.oiFresh = make(map[string]*models.Freshness)
	e.prevSpot = make(map[string]float64)
	e.cooldown = make(map[string]time.Time)
	e.breaker = make(map[string]*breakerState)
	e.bootDone = make(map[string]bool)
	e.mu.Unlock()

	e.oiAn.Reset()
	e.agg.Reset()

	e.bc.Publish("engine_status", map[string]any{"running": false})
	logger.Info("[ENGINE] stopped, кэши сброшены")
}

// warmup — история из гейтвея; при недоступности bootstrap сделает
// первый тик (см. onTick).
func (e *Engine) warmup(ctx context.Context) {
	to := time.Now()
	from := to.Add(-time.Duration(e.cfg.Engine.MaxBars) * e.cfg.Engine.CandleInterval)

	for _, inst := range e.cfg.Engine.Instruments {
		bars, err := e.gw.HistoricalCandles(ctx, inst.Name, e.cfg.Engine.CandleInterval, from, to)
		if err != nil || len(bars) == 0 {
			logger.Error("[ENGINE] warmup %s: история недоступна (%v), ждём seed-тик", inst.Name, err)
			continue
		}
		e.agg.SeedHistory(inst.Name, bars)
		e.mu.Lock()
		e.bootDone[inst.Name] = true
		e.mu.Unlock()
		logger.Info("[ENGINE] warmup %s: %d баров", inst.Name, len(bars))
	}
}

// onTick — тиковый путь: кормим агрегатор; первый тик без истории
// поднимает синтетический ряд от seed-цены.
func (e *Engine) onTick(token string, price, qty float64, at time.Time) {
	inst := e.instrumentByToken(token)
	if inst == nil {
		return
	}

	e.mu.Lock()
	booted := e.bootDone[inst.Name]
	if !booted {
		e.bootDone[inst.Name] = true
	}
	e.mu.Unlock()

	if !booted {
		e.agg.Bootstrap(inst.Name, price, e.cfg.Engine.MinBars, at)
		logger.Info("[ENGINE] bootstrap %s от seed %.2f: %d баров", inst.Name, price, e.cfg.Engine.MinBars)
	}
	e.agg.FeedTick(inst.Name, price, qty, at)
}

func (e *Engine) instrumentByToken(token string) *models.InstrumentSpec {
	for i := range e.cfg.Engine.Instruments {
		if e.cfg.Engine.Instruments[i].Token == token {
			return &e.cfg.Engine.Instruments[i]
		}
	}
	return nil
}

func (e *Engine) instrument(name string) *models.InstrumentSpec {
	for i := range e.cfg.Engine.Instruments {
		if e.cfg.Engine.Instruments[i].Name == name {
			return &e.cfg.Engine.Instruments[i]
		}
	}
	return nil
}

// RecordResult — хук circuit breaker'а: серия лоссов отключает
// стратегию на окно, любой профит сбрасывает счётчик.
func (e *Engine) RecordResult(strategyID string, win bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.breaker[strategyID]
	if !ok {
		st = &breakerState{}
		e.breaker[strategyID] = st
	}
	if win {
		st.losses = 0
		return
	}
	st.losses++
	if st.losses >= e.cfg.Engine.BreakerLosses {
		st.disabledUntil = time.Now().Add(e.cfg.Engine.BreakerSuspend)
		st.losses = 0
		logger.Info("[ENGINE] ⛔️ circuit breaker: %s отключена до %s",
			strategyID, st.disabledUntil.Format("15:04:05"))
	}
}

// circuitBroken — проверка с автосбросом по истечении окна.
func (e *Engine) circuitBroken(strategyID string, now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.breaker[strategyID]
	if !ok {
		return false
	}
	if st.disabledUntil.IsZero() {
		return false
	}
	if now.After(st.disabledUntil) {
		st.disabledUntil = time.Time{}
		st.losses = 0
		return false
	}
	return true
}

func (e *Engine) coolingDown(strategyID string, now time.Time) bool {
	p := e.registry.Params(strategyID)
	e.mu.Lock()
	defer e.mu.Unlock()
	last, ok := e.cooldown[strategyID]
	if !ok {
		return false
	}
	return now.Sub(last) < p.Cooldown
}

// Status — срез состояния для health-сводки.
type Status struct {
	LastCycleAt   time.Time         `json:"last_cycle_at"`
	ActiveSignals int               `json:"active_signals"`
	CoolingDown   []string          `json:"cooling_down"`
	Broken        map[string]string `json:"circuit_broken"`
	VIX           float64           `json:"vix"`
}

func (e *Engine) Status() Status {
	now := time.Now()
	st := Status{
		ActiveSignals: e.book.ActiveCount(),
		Broken:        make(map[string]string),
	}

	e.mu.Lock()
	st.LastCycleAt = e.lastCycleAt
	st.VIX = e.vix
	for id, t := range e.cooldown {
		if now.Sub(t) < e.registry.Params(id).Cooldown {
			st.CoolingDown = append(st.CoolingDown, id)
		}
	}
	for id, b := range e.breaker {
		if !b.disabledUntil.IsZero() && now.Before(b.disabledUntil) {
			st.Broken[id] = b.disabledUntil.Format("15:04:05")
		}
	}
	e.mu.Unlock()
	return st
}
