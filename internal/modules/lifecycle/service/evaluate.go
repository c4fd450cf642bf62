package service

import (
	"context"
	"time"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
	"signal_bot/pkg/logger"
)

// Пороговые доли трейлинг-рэтчета. Эмпирика исходной настройки.
const (
	trailAfterT1Frac   = 0.60 // стоп = entry + 60% дистанции до T1
	trailProfitTrigger = 0.70 // 70% дистанции до T1 — ранний рэтчет
	trailProfitFrac    = 0.15 // стоп = entry + 15% текущего профита
)

// Evaluate — один проход машины состояний по свежей цене.
// Порядок проверок фиксирован и является tie-break'ом:
// принудительный выход -> каскад целей -> стоп. Менять порядок нельзя:
// цели проверяются раньше стопа сознательно.
func (m *Manager) Evaluate(ctx context.Context, id string, price float64, now time.Time) {
	m.mu.Lock()
	s, ok := m.active[id]
	if !ok || s.Status.Terminal() {
		m.mu.Unlock()
		return
	}

	s.CurrentPrice = price
	s.PnL = price - s.EntryPrice
	s.PnLMoney = s.PnL * float64(s.LotSize)

	// трейлинг-рэтчет: монотонный max, коммутативен между tick- и
	// monitor-путями — более строгий стоп всегда побеждает
	m.ratchet(s, price)
	m.mu.Unlock()

	// 1. принудительный выход по времени, цена не важна
	if cutoff := m.cutoffFor(s.Product); cutoff != "" && helper.After(now, cutoff) {
		m.finalize(ctx, s, models.StatusExpired, price, "time_exit_"+string(s.Product), now)
		return
	}

	// 2. каскад целей: выигрывает высшая достигнутая, проскок через
	// target1 одним тиком легален
	switch {
	case price >= s.Target3:
		m.finalize(ctx, s, models.StatusTarget3Hit, price, "target3", now)
		return
	case price >= s.Target2:
		m.finalize(ctx, s, models.StatusTarget2Hit, price, "target2", now)
		return
	case price >= s.Target1:
		m.finalize(ctx, s, models.StatusTarget1Hit, price, "target1", now)
		return
	}

	// 3. эффективный стоп = max(исходный SL, трейлинг)
	if price <= s.EffectiveStop() {
		reason := "stoploss"
		if s.TrailingStop > s.StopLoss {
			reason = "trailing_stop"
		}
		m.finalize(ctx, s, models.StatusSLHit, price, reason, now)
		return
	}

	m.pushPrice(s, now)
}

// ratchet — подтяжка трейлинг-стопа. Вызывается под m.mu.
// Никогда не опускает стоп: держим только максимум.
func (m *Manager) ratchet(s *models.Signal, price float64) {
	dist := m.t1Profit[s.ID]
	if dist <= 0 {
		return
	}

	var cand float64

	// достигли target1 — фиксируем 60% дистанции
	if price >= s.Target1 {
		cand = s.EntryPrice + trailAfterT1Frac*dist
	}

	// ранний рэтчет: профит >= 70% дистанции до T1, ещё до формального T1
	if profit := price - s.EntryPrice; profit >= trailProfitTrigger*dist {
		if c := s.EntryPrice + trailProfitFrac*profit; c > cand {
			cand = c
		}
	}

	if cand > s.TrailingStop {
		s.TrailingStop = cand
	}
}

func (m *Manager) cutoffFor(p models.ProductType) string {
	switch p {
	case models.ProductIntraday:
		return m.cfg.Engine.IntradayCutoff
	case models.ProductCarry:
		return m.cfg.Engine.CarryCutoff
	}
	return ""
}

// finalize — терминальный переход: стор, отписка фида, чистка
// бухгалтерии, события наружу, результат в circuit breaker.
func (m *Manager) finalize(ctx context.Context, s *models.Signal, status models.SignalStatus, exitPrice float64, reason string, now time.Time) {
	m.mu.Lock()
	if s.Status.Terminal() {
		m.mu.Unlock()
		return
	}
	s.Status = status
	s.ExitPrice = exitPrice
	s.ExitReason = reason
	s.PnL = exitPrice - s.EntryPrice
	s.PnLMoney = s.PnL * float64(s.LotSize)
	closed := now
	s.ClosedAt = &closed

	token := m.tokens[s.ID]
	delete(m.active, s.ID)
	delete(m.tokens, s.ID)
	delete(m.lastPush, s.ID)
	delete(m.lastEval, s.ID)
	delete(m.t1Profit, s.ID)
	m.mu.Unlock()

	if token != "" {
		_ = m.gw.UnsubscribeTicks(token)
	}

	if err := m.store.Update(ctx, s); err != nil {
		logger.Error("[MONITOR] update %s: %v", s.ID, err)
	}

	m.n.ExitAlert(ctx, s, reason, s.PnLMoney)
	m.bc.Publish("signal_update", s)

	if m.recorder != nil {
		m.recorder.RecordResult(s.StrategyID, s.PnL > 0)
	}

	logger.Info("[MONITOR] %s -> %s @ %.2f (%s) pnl=%.2f", s.ID, status, exitPrice, reason, s.PnLMoney)
}

// pushPrice — троттленный price_update для живых сигналов.
func (m *Manager) pushPrice(s *models.Signal, now time.Time) {
	m.mu.Lock()
	last := m.lastPush[s.ID]
	if now.Sub(last) < m.cfg.Engine.PriceThrottle {
		m.mu.Unlock()
		return
	}
	m.lastPush[s.ID] = now
	// снимок под мьютексом: тиковый и мониторный пути пишут поля конкурентно
	snap := *s
	m.mu.Unlock()

	m.bc.Publish("price_update", map[string]any{
		"id":            snap.ID,
		"current_price": snap.CurrentPrice,
		"pnl":           snap.PnL,
		"pnl_rs":        snap.PnLMoney,
		"trailing_stop": snap.TrailingStop,
	})

	// периодически сохраняем текущую цену, чтобы рестарт не терял P&L
	if err := m.store.Update(context.Background(), &snap); err != nil {
		logger.Error("[MONITOR] persist price %s: %v", snap.ID, err)
	}
}

// ManualClose — ручное закрытие: статус closed, та же чистка.
func (m *Manager) ManualClose(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.active[id]
	var price float64
	if ok {
		price = s.CurrentPrice
		if price <= 0 {
			price = s.EntryPrice
		}
	}
	m.mu.Unlock()
	if !ok {
		return errNotActive(id)
	}
	m.finalize(ctx, s, models.StatusClosed, price, "manual_exit", time.Now().In(helper.MarketLocation()))
	return nil
}

type errNotActive string

func (e errNotActive) Error() string { return "signal not active: " + string(e) }
