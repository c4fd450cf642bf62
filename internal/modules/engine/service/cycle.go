package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/opentracing/opentracing-go"

	"signal_bot/internal/helper"
	"signal_bot/internal/indicators"
	"signal_bot/internal/models"
	"signal_bot/pkg/logger"
)

// refreshLoop — периодический пересчёт индикаторов, OI и VIX.
// Стратегии читают только готовые снапшоты, сетевых вызовов в цикле нет.
func (e *Engine) refreshLoop(ctx context.Context) {
	e.refreshAll(ctx)

	ticker := time.NewTicker(e.cfg.Engine.IndicatorRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.refreshAll(ctx)
		}
	}
}

func (e *Engine) refreshAll(ctx context.Context) {
	// перекрывающиеся рефреши не копим: пропуск дешевле очереди
	if !e.refreshBusy.CompareAndSwap(false, true) {
		return
	}
	defer e.refreshBusy.Store(false)

	now := time.Now().In(helper.MarketLocation())

	e.refreshVIX(ctx, now)
	for i := range e.cfg.Engine.Instruments {
		e.refreshInstrument(ctx, &e.cfg.Engine.Instruments[i], now)
	}
	e.maybeAnnounceWarmup(ctx)
}

// refreshInstrument — снапшот индикаторов из агрегатора плюс OI-матрица
// из гейтвея. Падение гейтвея не роняет снапшот: старый живёт до
// StaleMaxAge, счётчик ретраев ограничивает повторные походы.
func (e *Engine) refreshInstrument(ctx context.Context, inst *models.InstrumentSpec, now time.Time) {
	bars := e.agg.Candles(inst.Name)
	if len(bars) >= e.cfg.Engine.MinBars {
		snap := indicators.BuildSnapshot(inst.Name, bars, now)
		e.mu.Lock()
		entry, ok := e.snapshots[inst.Name]
		if !ok {
			entry = &snapEntry{}
			e.snapshots[inst.Name] = entry
		}
		entry.snap = snap
		entry.fresh.Touch(now)
		e.mu.Unlock()
	}

	// дневная экспирация кэшируется на сутки
	e.mu.Lock()
	exp, hasExp := e.expiry[inst.Name]
	e.mu.Unlock()
	if !hasExp || exp.Before(now) {
		if resolved, err := e.gw.ResolveExpiry(ctx, inst.Name); err == nil {
			e.mu.Lock()
			e.expiry[inst.Name] = resolved
			e.mu.Unlock()
		} else {
			logger.Error("[ENGINE] expiry %s: %v", inst.Name, err)
		}
	}

	e.mu.Lock()
	oiFresh := e.oiFresh[inst.Name]
	if oiFresh == nil {
		oiFresh = &models.Freshness{}
		e.oiFresh[inst.Name] = oiFresh
	}
	oiBudget := *oiFresh
	e.mu.Unlock()
	if !oiBudget.ShouldRetry(e.cfg.Engine.StaleMaxRetries) &&
		!oiBudget.IsStale(now, e.cfg.Engine.StaleMaxAge) {
		// бюджет ретраев исчерпан, старая OI-матрица ещё жива — не долбим гейтвей
		return
	}

	strikes, err := e.gw.OptionChainOI(ctx, inst.Name)
	if err != nil {
		e.mu.Lock()
		oiFresh.Fail()
		e.mu.Unlock()
		logger.Error("[ENGINE] oi chain %s: %v", inst.Name, err)
		return
	}

	spot := 0.0
	priceChangePct := 0.0
	e.mu.Lock()
	if entry, ok := e.snapshots[inst.Name]; ok && entry.snap != nil {
		spot = entry.snap.SpotPrice
	}
	if prev := e.prevSpot[inst.Name]; prev > 0 && spot > 0 {
		priceChangePct = (spot - prev) / prev * 100
	}
	if spot > 0 {
		e.prevSpot[inst.Name] = spot
	}
	e.mu.Unlock()

	analysis, snap := e.oiAn.Analyze(inst.Name, strikes, spot, priceChangePct, now)
	e.mu.Lock()
	e.oiViews[inst.Name] = &analysis
	e.oiSnaps[inst.Name] = &snap
	oiFresh.Touch(now)
	e.mu.Unlock()
}

func (e *Engine) refreshVIX(ctx context.Context, now time.Time) {
	e.mu.Lock()
	budget := e.vixFresh
	e.mu.Unlock()
	// пока старое значение живо, исчерпанный бюджет ретраев блокирует
	// повторные походы; протухание снимает запрет
	if !budget.ShouldRetry(e.cfg.Engine.StaleMaxRetries) &&
		!budget.IsStale(now, e.cfg.Engine.StaleMaxAge) {
		return
	}

	v, err := e.gw.VIX(ctx)
	if err != nil {
		e.mu.Lock()
		e.vixFresh.Fail()
		stale := e.vixFresh.IsStale(now, e.cfg.Engine.StaleMaxAge)
		e.mu.Unlock()
		if stale {
			logger.Error("[ENGINE] vix недоступен и протух: %v", err)
		}
		return
	}
	e.mu.Lock()
	e.vix = v
	e.vixFresh.Touch(now)
	e.mu.Unlock()
}

// maybeAnnounceWarmup — разовая сводка, когда все инструменты прогреты.
func (e *Engine) maybeAnnounceWarmup(ctx context.Context) {
	e.mu.Lock()
	if e.warmupSent {
		e.mu.Unlock()
		return
	}
	ready := 0
	for _, inst := range e.cfg.Engine.Instruments {
		if entry, ok := e.snapshots[inst.Name]; ok && entry.snap != nil {
			ready++
		}
	}
	done := ready == len(e.cfg.Engine.Instruments) && ready > 0
	if done {
		e.warmupSent = true
	}
	e.mu.Unlock()

	if done {
		e.n.Summary(ctx, fmt.Sprintf("🔥 Движок прогрет: %d инструментов, данные живые", ready))
	}
}

// cycleLoop — основной цикл оценки стратегий.
func (e *Engine) cycleLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.Engine.StrategyCycle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.runCycle(ctx)
		}
	}
}

// runCycle — один проход: собрать вью по инструментам, перемешать
// стратегии, принять максимум ОДИН сигнал на всю систему.
func (e *Engine) runCycle(ctx context.Context) {
	if !e.cycleBusy.CompareAndSwap(false, true) {
		return
	}
	defer e.cycleBusy.Store(false)

	span := opentracing.StartSpan("strategy_cycle")
	defer span.Finish()

	now := time.Now().In(helper.MarketLocation())
	e.mu.Lock()
	e.lastCycleAt = now
	gapOK := e.lastSignalAt.IsZero() || now.Sub(e.lastSignalAt) >= e.cfg.Engine.MinSignalGap
	e.mu.Unlock()

	if !helper.WithinWindow(now, e.cfg.Engine.MarketOpen, e.cfg.Engine.MarketClose) {
		return
	}
	if !gapOK {
		return
	}

	for i := range e.cfg.Engine.Instruments {
		inst := &e.cfg.Engine.Instruments[i]
		view, ok := e.buildView(inst, now)
		if !ok {
			continue
		}

		// перемешивание убирает позиционный фаворитизм между стратегиями
		evals := e.registry.All()
		rand.Shuffle(len(evals), func(a, b int) { evals[a], evals[b] = evals[b], evals[a] })

		for _, ev := range evals {
			id := ev.ID()
			p := e.registry.Params(id)
			if !p.Enabled {
				continue
			}
			if e.book.HasOpenStrategy(id) {
				continue
			}
			if e.coolingDown(id, now) {
				continue
			}
			if e.circuitBroken(id, now) {
				continue
			}

			cand := ev.Evaluate(view, p)
			if cand == nil || cand.Confidence < e.cfg.Engine.AcceptConfidence {
				continue
			}

			sig := e.buildSignal(ctx, inst, cand, view, now)
			if sig == nil {
				// кандидат был, но страйк не прошёл отбор — не сжигаем кулдаун
				continue
			}

			if err := e.book.Track(ctx, sig); err != nil {
				logger.Error("[ENGINE] track %s: %v", sig.ID, err)
				continue
			}

			e.mu.Lock()
			e.cooldown[id] = now
			e.lastSignalAt = now
			e.mu.Unlock()

			span.SetTag("signal_id", sig.ID)
			span.SetTag("strategy", id)
			return // один сигнал на цикл, системно
		}
	}
}

// buildView — согласованный срез рынка для стратегий. Снапшот старше
// StaleMaxAge дисквалифицирует инструмент до следующего рефреша.
func (e *Engine) buildView(inst *models.InstrumentSpec, now time.Time) (models.MarketView, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.snapshots[inst.Name]
	if !ok || entry.snap == nil {
		return models.MarketView{}, false
	}
	if entry.fresh.IsStale(now, e.cfg.Engine.StaleMaxAge) {
		logger.Error("[ENGINE] снапшот %s протух (as of %s), инструмент пропущен",
			inst.Name, entry.fresh.AsOf.Format("15:04:05"))
		return models.MarketView{}, false
	}

	view := models.MarketView{
		Instrument: inst.Name,
		Ind:        entry.snap,
		Regime:     nil,
		OI:         e.oiViews[inst.Name],
		OISnap:     e.oiSnaps[inst.Name],
		VIX:        e.vix,
		Now:        now,
	}
	reg := e.assessor.Assess(entry.snap.Candles, e.vix)
	view.Regime = &reg
	return view, true
}
