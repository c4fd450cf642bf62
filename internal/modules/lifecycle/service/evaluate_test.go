package service

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_bot/internal/gateway"
	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
	"signal_bot/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// --- фейки ---

type fakeStore struct {
	mu      sync.Mutex
	updates int
	last    *models.Signal
}

func (f *fakeStore) Create(_ context.Context, s *models.Signal) error { return nil }
func (f *fakeStore) Update(_ context.Context, s *models.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	cp := *s
	f.last = &cp
	return nil
}
func (f *fakeStore) ListActive(_ context.Context) ([]*models.Signal, error) { return nil, nil }
func (f *fakeStore) Get(_ context.Context, id string) (*models.Signal, error) {
	return nil, nil
}

type fakeGateway struct {
	mu    sync.Mutex
	subs  map[string]int
	unsub map[string]int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{subs: map[string]int{}, unsub: map[string]int{}}
}

func (f *fakeGateway) HistoricalCandles(context.Context, string, time.Duration, time.Time, time.Time) ([]models.Candle, error) {
	return nil, nil
}
func (f *fakeGateway) OptionQuote(context.Context, string, float64, models.Direction, time.Time) (float64, error) {
	return 0, nil
}
func (f *fakeGateway) OptionChainOI(context.Context, string) ([]models.StrikeOI, error) {
	return nil, nil
}
func (f *fakeGateway) ResolveExpiry(context.Context, string) (time.Time, error) {
	return time.Time{}, nil
}
func (f *fakeGateway) VIX(context.Context) (float64, error) { return 0, nil }
func (f *fakeGateway) SubscribeTicks(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[token]++
	return nil
}
func (f *fakeGateway) UnsubscribeTicks(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsub[token]++
	return nil
}
func (f *fakeGateway) OnTick(gateway.TickHandler) {}

type fakeNotifier struct {
	mu      sync.Mutex
	entries int
	exits   []string // причины
}

func (f *fakeNotifier) EntryAlert(_ context.Context, s *models.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries++
}
func (f *fakeNotifier) ExitAlert(_ context.Context, s *models.Signal, reason string, pnl float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exits = append(f.exits, reason)
}
func (f *fakeNotifier) Summary(context.Context, string) {}

type fakeBroadcaster struct {
	mu       sync.Mutex
	events   []string
	payloads []any
}

func (f *fakeBroadcaster) Publish(event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	f.payloads = append(f.payloads, payload)
}

func (f *fakeBroadcaster) lastFor(event string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i] == event {
			return f.payloads[i]
		}
	}
	return nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	results []bool
}

func (f *fakeRecorder) RecordResult(_ string, win bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, win)
}

// --- сборка ---

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Engine.MonitorInterval = time.Second
	cfg.Engine.PriceThrottle = 2 * time.Second
	cfg.Engine.IntradayCutoff = "15:10"
	cfg.Engine.CarryCutoff = "15:25"
	return cfg
}

func testSignal() *models.Signal {
	return &models.Signal{
		ID:         "SIG-1",
		StrategyID: "ema_vwap_confluence",
		Instrument: "NIFTY",
		Direction:  models.DirectionCE,
		Product:    models.ProductIntraday,
		Strike:     20000,
		LotSize:    75,
		EntryPrice: 100,
		StopLoss:   90,
		Target1:    110,
		Target2:    117.5,
		Target3:    125,
		Status:     models.StatusActive,
		CreatedAt:  sessionTime(10, 0),
	}
}

func sessionTime(hh, mm int) time.Time {
	return time.Date(2026, 8, 25, hh, mm, 0, 0, time.FixedZone("IST", 5*3600+1800))
}

type fixture struct {
	m  *Manager
	st *fakeStore
	gw *fakeGateway
	n  *fakeNotifier
	bc *fakeBroadcaster
	rc *fakeRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		st: &fakeStore{},
		gw: newFakeGateway(),
		n:  &fakeNotifier{},
		bc: &fakeBroadcaster{},
		rc: &fakeRecorder{},
	}
	f.m = NewManager(testConfig(), f.st, f.gw, f.n, f.bc)
	f.m.SetRecorder(f.rc)
	return f
}

func (f *fixture) track(t *testing.T, s *models.Signal) {
	t.Helper()
	require.NoError(t, f.m.Track(context.Background(), s))
}

// --- тесты ---

func TestTrack_SubscribesAndAlerts(t *testing.T) {
	f := newFixture(t)
	f.track(t, testSignal())

	assert.Equal(t, 1, f.m.ActiveCount())
	assert.Equal(t, 1, f.n.entries)
	assert.Contains(t, f.bc.events, "signal_update")
	assert.Equal(t, 1, f.gw.subs["OPT:NIFTY:20000:CE"])
}

func TestEvaluate_GapThroughHitsHighestTarget(t *testing.T) {
	f := newFixture(t)
	f.track(t, testSignal())

	// один тик сразу за target2: target1 перескочен, статус — высшая цель
	f.m.Evaluate(context.Background(), "SIG-1", 118, sessionTime(11, 0))

	require.NotNil(t, f.st.last)
	assert.Equal(t, models.StatusTarget2Hit, f.st.last.Status)
	assert.Equal(t, 118.0, f.st.last.ExitPrice)
	assert.Equal(t, "target2", f.st.last.ExitReason)
	assert.InDelta(t, 18.0*75, f.st.last.PnLMoney, 1e-9)
	assert.Zero(t, f.m.ActiveCount())
	assert.Equal(t, []bool{true}, f.rc.results)
	assert.Equal(t, 1, f.gw.unsub["OPT:NIFTY:20000:CE"])
}

func TestEvaluate_Target1Direct(t *testing.T) {
	f := newFixture(t)
	f.track(t, testSignal())

	f.m.Evaluate(context.Background(), "SIG-1", 111, sessionTime(11, 0))

	require.NotNil(t, f.st.last)
	assert.Equal(t, models.StatusTarget1Hit, f.st.last.Status)
	assert.Equal(t, "target1", f.st.last.ExitReason)
}

func TestEvaluate_StopLossLoss(t *testing.T) {
	f := newFixture(t)
	f.track(t, testSignal())

	f.m.Evaluate(context.Background(), "SIG-1", 89, sessionTime(11, 0))

	require.NotNil(t, f.st.last)
	assert.Equal(t, models.StatusSLHit, f.st.last.Status)
	assert.Equal(t, "stoploss", f.st.last.ExitReason)
	assert.Equal(t, []bool{false}, f.rc.results)
	assert.Equal(t, []string{"stoploss"}, f.n.exits)
}

func TestEvaluate_TrailingRatchetIsMonotone(t *testing.T) {
	f := newFixture(t)
	s := testSignal()
	f.track(t, s)
	ctx := context.Background()

	// профит 8 из 10 до T1 (80% >= 70%): ранний рэтчет 15% профита
	f.m.Evaluate(ctx, "SIG-1", 108, sessionTime(11, 0))
	require.Equal(t, models.StatusActive, s.Status)
	first := s.TrailingStop
	assert.InDelta(t, 100+0.15*8, first, 1e-9)

	// откат цены не опускает трейлинг
	f.m.Evaluate(ctx, "SIG-1", 104, sessionTime(11, 1))
	assert.Equal(t, first, s.TrailingStop)
	assert.Equal(t, models.StatusActive, s.Status)

	// падение под трейлинг закрывает с причиной trailing_stop
	f.m.Evaluate(ctx, "SIG-1", first-0.5, sessionTime(11, 2))
	assert.Equal(t, models.StatusSLHit, s.Status)
	assert.Equal(t, "trailing_stop", s.ExitReason)
}

func TestEvaluate_TargetsBeatStopOnSameTick(t *testing.T) {
	f := newFixture(t)
	s := testSignal()
	// вырожденный сигнал: цена одновременно выше T1 и ниже стопа невозможна,
	// но трейлинг может подняться выше T1 -- цели проверяются первыми
	s.TrailingStop = 112
	f.track(t, s)

	f.m.Evaluate(context.Background(), "SIG-1", 111, sessionTime(11, 0))
	assert.Equal(t, models.StatusTarget1Hit, s.Status)
}

func TestEvaluate_ForcedTimeExitIntraday(t *testing.T) {
	f := newFixture(t)
	s := testSignal()
	f.track(t, s)

	// цена в середине диапазона, но время за INT-отсечкой
	f.m.Evaluate(context.Background(), "SIG-1", 105, sessionTime(15, 11))

	assert.Equal(t, models.StatusExpired, s.Status)
	assert.Equal(t, "time_exit_INT", s.ExitReason)
	assert.Equal(t, []bool{true}, f.rc.results) // 105 > 100, профит
}

func TestEvaluate_CarryOutlivesIntradayCutoff(t *testing.T) {
	f := newFixture(t)
	s := testSignal()
	s.Product = models.ProductCarry
	f.track(t, s)
	ctx := context.Background()

	f.m.Evaluate(ctx, "SIG-1", 105, sessionTime(15, 11))
	assert.Equal(t, models.StatusActive, s.Status) // CF живёт до 15:25

	f.m.Evaluate(ctx, "SIG-1", 105, sessionTime(15, 26))
	assert.Equal(t, models.StatusExpired, s.Status)
	assert.Equal(t, "time_exit_CF", s.ExitReason)
}

func TestEvaluate_TerminalIsFinal(t *testing.T) {
	f := newFixture(t)
	s := testSignal()
	f.track(t, s)
	ctx := context.Background()

	f.m.Evaluate(ctx, "SIG-1", 111, sessionTime(11, 0))
	require.Equal(t, models.StatusTarget1Hit, s.Status)

	// повторные тики по закрытому сигналу игнорируются
	f.m.Evaluate(ctx, "SIG-1", 89, sessionTime(11, 1))
	f.m.Evaluate(ctx, "SIG-1", 126, sessionTime(11, 2))

	assert.Equal(t, models.StatusTarget1Hit, s.Status)
	assert.Len(t, f.rc.results, 1)
	assert.Len(t, f.n.exits, 1)
}

func TestEvaluate_PriceUpdateThrottled(t *testing.T) {
	f := newFixture(t)
	f.track(t, testSignal())
	ctx := context.Background()

	base := sessionTime(11, 0)
	f.m.Evaluate(ctx, "SIG-1", 101, base)
	f.m.Evaluate(ctx, "SIG-1", 102, base.Add(500*time.Millisecond))
	f.m.Evaluate(ctx, "SIG-1", 103, base.Add(time.Second))

	count := 0
	for _, e := range f.bc.events {
		if e == "price_update" {
			count++
		}
	}
	// троттл 2s: только первый апдейт прошёл
	assert.Equal(t, 1, count)

	f.m.Evaluate(ctx, "SIG-1", 104, base.Add(3*time.Second))
	count = 0
	for _, e := range f.bc.events {
		if e == "price_update" {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestEvaluate_PriceUpdateCarriesConsistentSnapshot(t *testing.T) {
	f := newFixture(t)
	f.track(t, testSignal())

	f.m.Evaluate(context.Background(), "SIG-1", 101, sessionTime(11, 0))

	payload, ok := f.bc.lastFor("price_update").(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "SIG-1", payload["id"])
	assert.Equal(t, 101.0, payload["current_price"])
	assert.Equal(t, 1.0, payload["pnl"])
	assert.InDelta(t, 75.0, payload["pnl_rs"], 1e-9)

	// персист идёт тем же снимком, что и публикация
	require.NotNil(t, f.st.last)
	assert.Equal(t, 101.0, f.st.last.CurrentPrice)
	assert.InDelta(t, 75.0, f.st.last.PnLMoney, 1e-9)
}

func TestManualClose(t *testing.T) {
	f := newFixture(t)
	s := testSignal()
	f.track(t, s)

	f.m.Evaluate(context.Background(), "SIG-1", 104, sessionTime(11, 0))
	require.NoError(t, f.m.ManualClose(context.Background(), "SIG-1"))

	assert.Equal(t, models.StatusClosed, s.Status)
	assert.Equal(t, "manual_exit", s.ExitReason)
	assert.Equal(t, 104.0, s.ExitPrice)

	assert.Error(t, f.m.ManualClose(context.Background(), "SIG-1"))
	assert.Error(t, f.m.ManualClose(context.Background(), "nope"))
}

func TestQueries_OpenDirectionsAndStrikeOpen(t *testing.T) {
	f := newFixture(t)
	f.track(t, testSignal())

	assert.True(t, f.m.HasOpenStrategy("ema_vwap_confluence"))
	assert.False(t, f.m.HasOpenStrategy("orb_breakout"))

	dirs := f.m.OpenDirections()
	assert.Equal(t, 1, dirs[models.DirectionCE])
	assert.Zero(t, dirs[models.DirectionPE])

	assert.True(t, f.m.StrikeOpen("NIFTY", 20000, models.DirectionCE))
	assert.False(t, f.m.StrikeOpen("NIFTY", 20000, models.DirectionPE))
	assert.False(t, f.m.StrikeOpen("NIFTY", 20100, models.DirectionCE))
}
