package service

import (
	"fmt"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

// ORBBreakout — пробой диапазона открытия (первые 15 минут сессии).
type ORBBreakout struct{}

func NewORBBreakout() *ORBBreakout { return &ORBBreakout{} }

func (s *ORBBreakout) ID() string { return "orb_breakout" }

func (s *ORBBreakout) Evaluate(v models.MarketView, p config.StrategyParams) *models.StrategyCandidate {
	if v.Ind == nil || !passGates(v, p) {
		return nil
	}
	ind := v.Ind
	if ind.ORBHigh <= 0 || ind.ORBLow <= 0 {
		return nil
	}

	var dir models.Direction
	var reason string
	switch {
	case ind.SpotPrice > ind.ORBHigh:
		dir = models.DirectionCE
		reason = fmt.Sprintf("spot %.1f пробил ORB high %.1f", ind.SpotPrice, ind.ORBHigh)
	case ind.SpotPrice < ind.ORBLow:
		dir = models.DirectionPE
		reason = fmt.Sprintf("spot %.1f пробил ORB low %.1f", ind.SpotPrice, ind.ORBLow)
	default:
		return nil
	}

	conf := p.BaseConfidence

	// сила тренда подтверждает пробой
	if ind.ADX14 >= 25 {
		conf += 15
	} else if ind.ADX14 >= 20 {
		conf += 8
	}

	// пробой против VWAP не любим
	if dir == models.DirectionCE && ind.SpotPrice > ind.VWAP {
		conf += 10
	} else if dir == models.DirectionPE && ind.SpotPrice < ind.VWAP {
		conf += 10
	} else {
		conf -= 10
	}

	if v.Regime != nil {
		switch v.Regime.Regime {
		case models.RegimeBreakout:
			conf += 12
		case models.RegimeSideways:
			conf -= 15
		}
	}

	// согласие OI добавляет, ловушка уже отфильтрована Tradable
	if v.OI != nil && v.OI.Tradable {
		if (dir == models.DirectionCE && v.OI.Bias == models.BiasBullish) ||
			(dir == models.DirectionPE && v.OI.Bias == models.BiasBearish) {
			conf += 8
		}
	}

	return &models.StrategyCandidate{
		StrategyID:       s.ID(),
		Direction:        dir,
		Confidence:       clampConfidence(conf),
		Reason:           reason,
		StrikeOffsetHint: p.StrikeOffset,
		RiskPercent:      p.RiskPercent,
	}
}
