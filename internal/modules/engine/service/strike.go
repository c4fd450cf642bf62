package service

import (
	"context"
	"fmt"
	"time"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
	"signal_bot/pkg/logger"
)

// Множители дистанции риска для целей. Исходная боевая сетка.
const (
	target1RiskMult = 1.0
	target2RiskMult = 1.75
	target3RiskMult = 2.5
)

const (
	defaultMaxITMSteps = 5
	defaultTickSize    = 0.05 // шаг цены опционной премии на NSE
)

// buildSignal — отбор страйка и сборка сигнала из кандидата.
// Возвращает nil, если ни один страйк не прошёл: оппозитная аллокация,
// эксклюзивность страйка, ценовой коридор премии, живая котировка.
func (e *Engine) buildSignal(ctx context.Context, inst *models.InstrumentSpec, cand *models.StrategyCandidate, view models.MarketView, now time.Time) *models.Signal {
	// аллокационное правило: обе стороны (CE и PE) одновременно не держим
	opp := models.DirectionPE
	if cand.Direction == models.DirectionPE {
		opp = models.DirectionCE
	}
	if open := e.book.OpenDirections(); open[opp] > 0 {
		logger.Info("[ENGINE] %s: %s отклонён, открыта противоположная сторона %s",
			cand.StrategyID, cand.Direction, opp)
		return nil
	}

	e.mu.Lock()
	expiry := e.expiry[inst.Name]
	e.mu.Unlock()
	if expiry.IsZero() {
		logger.Error("[ENGINE] %s: экспирация не зарезолвлена, кандидат %s пропущен",
			inst.Name, cand.StrategyID)
		return nil
	}

	maxSteps := inst.MaxITMSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxITMSteps
	}
	atm := helper.ATMStrike(view.Ind.SpotPrice, inst.StrikeStep)
	isCall := cand.Direction == models.DirectionCE

	// идём от подсказки стратегии глубже в деньги, пока премия не
	// впишется в коридор
	for offset := cand.StrikeOffsetHint; offset <= maxSteps; offset++ {
		strike := helper.ITMStrike(atm, inst.StrikeStep, offset, isCall)
		if strike <= 0 {
			break
		}
		if e.book.StrikeOpen(inst.Name, strike, cand.Direction) {
			continue
		}

		premium, err := e.gw.OptionQuote(ctx, inst.Name, strike, cand.Direction, expiry)
		if err != nil || premium <= 0 {
			continue
		}
		if premium < inst.PriceBandMin || premium > inst.PriceBandMax {
			continue
		}

		return e.newSignal(inst, cand, strike, premium, expiry, now)
	}

	logger.Info("[ENGINE] %s %s: нет страйка в коридоре [%.0f..%.0f], сигнал не создан",
		inst.Name, cand.Direction, inst.PriceBandMin, inst.PriceBandMax)
	return nil
}

// newSignal — стоп и каскад целей считаются от премии входа:
// risk = premium * riskPercent, цели на 1.0/1.75/2.5 риска выше входа.
// Уровни приводятся к тиковой сетке биржи: стоп вверх (строже),
// цели вниз (достижимее).
func (e *Engine) newSignal(inst *models.InstrumentSpec, cand *models.StrategyCandidate, strike, premium float64, expiry time.Time, now time.Time) *models.Signal {
	risk := premium * cand.RiskPercent / 100
	tick := inst.TickSize
	if tick <= 0 {
		tick = defaultTickSize
	}

	product := models.ProductIntraday
	if e.registry.Params(cand.StrategyID).Product == string(models.ProductCarry) {
		product = models.ProductCarry
	}

	return &models.Signal{
		ID:           fmt.Sprintf("SIG-%d", now.UnixNano()),
		StrategyID:   cand.StrategyID,
		Instrument:   inst.Name,
		Direction:    cand.Direction,
		Product:      product,
		Strike:       strike,
		Expiry:       expiry,
		LotSize:      inst.LotSize,
		EntryPrice:   premium,
		CurrentPrice: premium,
		StopLoss:     helper.RoundUpToTick(premium-risk, tick),
		Target1:      helper.RoundDownToTick(premium+target1RiskMult*risk, tick),
		Target2:      helper.RoundDownToTick(premium+target2RiskMult*risk, tick),
		Target3:      helper.RoundDownToTick(premium+target3RiskMult*risk, tick),
		Confidence:   cand.Confidence,
		Reason:       cand.Reason,
		Status:       models.StatusActive,
		CreatedAt:    now,
	}
}
