package service

import (
	"context"
	"sync"
	"time"

	"signal_bot/internal/gateway"
	"signal_bot/internal/helper"
	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
	"signal_bot/pkg/logger"
)

// ResultRecorder — хук результата для circuit breaker'а оркестратора.
type ResultRecorder interface {
	RecordResult(strategyID string, win bool)
}

// SignalStore — персистентность сигналов (реализация в modules/store).
type SignalStore interface {
	Create(ctx context.Context, s *models.Signal) error
	Update(ctx context.Context, s *models.Signal) error
	ListActive(ctx context.Context) ([]*models.Signal, error)
	Get(ctx context.Context, id string) (*models.Signal, error)
}

// Notifier — fire-and-forget оповещения; ошибки только логируются.
type Notifier interface {
	EntryAlert(ctx context.Context, s *models.Signal)
	ExitAlert(ctx context.Context, s *models.Signal, reason string, pnl float64)
	Summary(ctx context.Context, text string)
}

// Broadcaster — realtime-события для внешних наблюдателей.
type Broadcaster interface {
	Publish(event string, payload any)
}

// Manager владеет машиной состояний всех открытых сигналов.
// Единственный писатель полей Signal после создания.
type Manager struct {
	cfg   *config.Config
	store SignalStore
	gw    gateway.MarketData
	n     Notifier
	bc    Broadcaster

	recorder ResultRecorder

	mu        sync.Mutex
	active    map[string]*models.Signal // id -> signal
	tokens    map[string]string         // id -> подписанный токен фида
	lastPush  map[string]time.Time      // id -> последний price_update
	lastEval  map[string]time.Time      // id -> последний тиковый пересчёт
	t1Profit  map[string]float64        // id -> дистанция entry..target1 (кэш)

	cancel context.CancelFunc
}

func NewManager(cfg *config.Config, store SignalStore, gw gateway.MarketData, n Notifier, bc Broadcaster) *Manager {
	return &Manager{
		cfg:      cfg,
		store:    store,
		gw:       gw,
		n:        n,
		bc:       bc,
		active:   make(map[string]*models.Signal),
		tokens:   make(map[string]string),
		lastPush: make(map[string]time.Time),
		lastEval: make(map[string]time.Time),
		t1Profit: make(map[string]float64),
	}
}

// SetRecorder — разрывает цикл lifecycle<->engine, ставится в fx.Invoke.
func (m *Manager) SetRecorder(r ResultRecorder) { m.recorder = r }

// Start — подхват активных сигналов из стора и мониторный тикер.
func (m *Manager) Start(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	m.cancel = cancel

	sigs, err := m.store.ListActive(ctx)
	if err != nil {
		return err
	}
	for _, s := range sigs {
		m.adopt(s)
	}
	logger.Info("[MONITOR] подхвачено активных сигналов: %d", len(sigs))

	m.gw.OnTick(func(token string, price, qty float64, at time.Time) {
		m.onTick(ctx, token, price, at)
	})

	go m.monitorLoop(ctx)
	return nil
}

// Stop — гасит тикер, отписывает фиды, чистит бухгалтерию.
// Открытые сигналы в сторе не трогаем: рестарт их подхватит заново.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, token := range m.tokens {
		_ = m.gw.UnsubscribeTicks(token)
	}
	m.active = make(map[string]*models.Signal)
	m.tokens = make(map[string]string)
	m.lastPush = make(map[string]time.Time)
	m.lastEval = make(map[string]time.Time)
	m.t1Profit = make(map[string]float64)
}

// Track — принять свежесозданный сигнал от оркестратора.
func (m *Manager) Track(ctx context.Context, s *models.Signal) error {
	if err := m.store.Create(ctx, s); err != nil {
		return err
	}
	m.adopt(s)

	m.n.EntryAlert(ctx, s)
	m.bc.Publish("signal_update", s)
	logger.Info("[MONITOR] track %s %s %s %.0f%s @ %.2f SL=%.2f T1=%.2f",
		s.ID, s.StrategyID, s.Instrument, s.Strike, s.Direction, s.EntryPrice, s.StopLoss, s.Target1)
	return nil
}

func (m *Manager) adopt(s *models.Signal) {
	token := optionToken(s)

	m.mu.Lock()
	m.active[s.ID] = s
	m.tokens[s.ID] = token
	m.t1Profit[s.ID] = s.Target1 - s.EntryPrice
	m.mu.Unlock()

	if err := m.gw.SubscribeTicks(token); err != nil {
		logger.Error("[MONITOR] subscribe %s: %v", token, err)
	}
}

func optionToken(s *models.Signal) string {
	return "OPT:" + helper.StrikeKey(s.Instrument, s.Strike, string(s.Direction))
}

// --- запросы оркестратора ---

func (m *Manager) HasOpenStrategy(strategyID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.active {
		if s.StrategyID == strategyID {
			return true
		}
	}
	return false
}

// OpenDirections — сколько открыто по каждому классу опционов.
func (m *Manager) OpenDirections() map[models.Direction]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[models.Direction]int, 2)
	for _, s := range m.active {
		out[s.Direction]++
	}
	return out
}

func (m *Manager) StrikeOpen(instrument string, strike float64, dir models.Direction) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.active {
		if s.Instrument == instrument && s.Strike == strike && s.Direction == dir {
			return true
		}
	}
	return false
}

func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// ActiveList — снимок открытых сигналов (копии, без гонок по полям).
func (m *Manager) ActiveList() []models.Signal {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Signal, 0, len(m.active))
	for _, s := range m.active {
		out = append(out, *s)
	}
	return out
}

// --- пути обновления цены ---

// monitorLoop — поллинг котировок для активных сигналов. Резервный путь:
// тиковый фид быстрее, но не для всех страйков бывает подписка.
func (m *Manager) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Engine.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pollOnce(ctx)
		}
	}
}

func (m *Manager) pollOnce(ctx context.Context) {
	m.mu.Lock()
	sigs := make([]*models.Signal, 0, len(m.active))
	for _, s := range m.active {
		sigs = append(sigs, s)
	}
	m.mu.Unlock()

	now := time.Now().In(helper.MarketLocation())
	for _, s := range sigs {
		price, err := m.gw.OptionQuote(ctx, s.Instrument, s.Strike, s.Direction, s.Expiry)
		if err != nil || price <= 0 {
			// недоступность котировки штатна: попробуем на следующем тике
			continue
		}
		m.Evaluate(ctx, s.ID, price, now)
	}
}

// onTick — низколатентный путь: немедленный (но троттленный) пересчёт.
func (m *Manager) onTick(ctx context.Context, token string, price float64, at time.Time) {
	m.mu.Lock()
	var id string
	for sid, t := range m.tokens {
		if t == token {
			id = sid
			break
		}
	}
	if id != "" {
		if last, ok := m.lastEval[id]; ok && at.Sub(last) < time.Second {
			m.mu.Unlock()
			return
		}
		m.lastEval[id] = at
	}
	m.mu.Unlock()

	if id == "" {
		return
	}
	m.Evaluate(ctx, id, price, at.In(helper.MarketLocation()))
}
