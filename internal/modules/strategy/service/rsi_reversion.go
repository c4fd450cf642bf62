package service

import (
	"fmt"
	"math"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

// RSIReversion — возврат к среднему в боковике: экстремальный RSI у
// уровня поддержки/сопротивления из OI.
type RSIReversion struct{}

func NewRSIReversion() *RSIReversion { return &RSIReversion{} }

func (s *RSIReversion) ID() string { return "rsi_reversion" }

func (s *RSIReversion) Evaluate(v models.MarketView, p config.StrategyParams) *models.StrategyCandidate {
	if v.Ind == nil || !passGates(v, p) {
		return nil
	}
	// только боковик: в тренде контртренд не торгуем
	if v.Regime == nil || v.Regime.Regime != models.RegimeSideways {
		return nil
	}
	ind := v.Ind

	var dir models.Direction
	switch {
	case ind.RSI14 <= 30:
		dir = models.DirectionCE
	case ind.RSI14 >= 70:
		dir = models.DirectionPE
	default:
		return nil
	}

	conf := p.BaseConfidence

	// глубина экстремума
	if ind.RSI14 <= 25 || ind.RSI14 >= 75 {
		conf += 12
	} else {
		conf += 6
	}

	// близость к OI-уровню: отскок от поддержки/сопротивления
	if v.OI != nil && ind.SpotPrice > 0 {
		if dir == models.DirectionCE && v.OI.Support > 0 {
			distPct := math.Abs(ind.SpotPrice-v.OI.Support) / ind.SpotPrice * 100
			if distPct <= 0.3 {
				conf += 15
			}
		}
		if dir == models.DirectionPE && v.OI.Resistance > 0 {
			distPct := math.Abs(v.OI.Resistance-ind.SpotPrice) / ind.SpotPrice * 100
			if distPct <= 0.3 {
				conf += 15
			}
		}
	}

	// сильный тренд ломает возврат к среднему
	if ind.ADX14 >= 25 {
		conf -= 20
	}

	return &models.StrategyCandidate{
		StrategyID:       s.ID(),
		Direction:        dir,
		Confidence:       clampConfidence(conf),
		Reason:           fmt.Sprintf("RSI %.1f в боковике, отскок %s", ind.RSI14, dir),
		StrikeOffsetHint: p.StrikeOffset,
		RiskPercent:      p.RiskPercent,
	}
}
