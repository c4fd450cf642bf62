package service

import (
	"fmt"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

// SupertrendMomentum — следование за supertrend с подтверждением
// моментумом и ADX.
type SupertrendMomentum struct{}

func NewSupertrendMomentum() *SupertrendMomentum { return &SupertrendMomentum{} }

func (s *SupertrendMomentum) ID() string { return "supertrend_momentum" }

func (s *SupertrendMomentum) Evaluate(v models.MarketView, p config.StrategyParams) *models.StrategyCandidate {
	if v.Ind == nil || !passGates(v, p) {
		return nil
	}
	ind := v.Ind
	if ind.Supertrend <= 0 {
		return nil
	}

	var dir models.Direction
	if ind.SupertrendBullish && ind.Momentum > 0 {
		dir = models.DirectionCE
	} else if !ind.SupertrendBullish && ind.Momentum < 0 {
		dir = models.DirectionPE
	} else {
		return nil
	}

	conf := p.BaseConfidence

	if ind.ADX14 >= 25 {
		conf += 15
	} else if ind.ADX14 >= 20 {
		conf += 8
	} else {
		conf -= 10 // слабый тренд — флэтовые пилы supertrend
	}

	// цена по нужную сторону EMA21
	if (dir == models.DirectionCE && ind.SpotPrice > ind.EMA21) ||
		(dir == models.DirectionPE && ind.SpotPrice < ind.EMA21) {
		conf += 8
	}

	if v.Regime != nil && v.Regime.Regime == models.RegimeVolatile {
		conf -= 12
	}

	return &models.StrategyCandidate{
		StrategyID: s.ID(),
		Direction:  dir,
		Confidence: clampConfidence(conf),
		Reason: fmt.Sprintf("supertrend %s @ %.1f, momentum %.1f, ADX %.1f",
			dir, ind.Supertrend, ind.Momentum, ind.ADX14),
		StrikeOffsetHint: p.StrikeOffset,
		RiskPercent:      p.RiskPercent,
	}
}
