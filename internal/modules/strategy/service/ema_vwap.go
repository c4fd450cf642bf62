package service

import (
	"fmt"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

// EMAVWAPConfluence — мультииндикаторное слияние: порядок EMA 9/21/50,
// положение относительно VWAP, RSI в рабочей зоне, supertrend.
type EMAVWAPConfluence struct{}

func NewEMAVWAPConfluence() *EMAVWAPConfluence { return &EMAVWAPConfluence{} }

func (s *EMAVWAPConfluence) ID() string { return "ema_vwap_confluence" }

func (s *EMAVWAPConfluence) Evaluate(v models.MarketView, p config.StrategyParams) *models.StrategyCandidate {
	if v.Ind == nil || !passGates(v, p) {
		return nil
	}
	ind := v.Ind

	bullStack := ind.EMA9 > ind.EMA21 && ind.EMA21 > ind.EMA50
	bearStack := ind.EMA9 < ind.EMA21 && ind.EMA21 < ind.EMA50

	var dir models.Direction
	switch {
	case bullStack && ind.SpotPrice > ind.VWAP:
		dir = models.DirectionCE
	case bearStack && ind.SpotPrice < ind.VWAP:
		dir = models.DirectionPE
	default:
		return nil
	}

	conf := p.BaseConfidence + 10 // стек EMA + VWAP уже сошлись

	// RSI в зоне продолжения, не в перекупленности/перепроданности
	if dir == models.DirectionCE && ind.RSI14 >= 50 && ind.RSI14 <= 70 {
		conf += 10
	} else if dir == models.DirectionPE && ind.RSI14 >= 30 && ind.RSI14 <= 50 {
		conf += 10
	} else {
		conf -= 8
	}

	if (dir == models.DirectionCE) == ind.SupertrendBullish {
		conf += 10
	} else {
		conf -= 12
	}

	if ind.ADX14 >= 20 {
		conf += 7
	}

	if v.Regime != nil && v.Regime.Regime == models.RegimeTrending {
		if (dir == models.DirectionCE && v.Regime.Bias == models.BiasBullish) ||
			(dir == models.DirectionPE && v.Regime.Bias == models.BiasBearish) {
			conf += 8
		}
	}

	return &models.StrategyCandidate{
		StrategyID: s.ID(),
		Direction:  dir,
		Confidence: clampConfidence(conf),
		Reason: fmt.Sprintf("EMA стек %s, spot vs VWAP %.1f/%.1f, RSI %.1f",
			dir, ind.SpotPrice, ind.VWAP, ind.RSI14),
		StrikeOffsetHint: p.StrikeOffset,
		RiskPercent:      p.RiskPercent,
	}
}
