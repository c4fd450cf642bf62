package service

import (
	"fmt"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

// OITrapReversal — разворот на writer trap: тяжёлая односторонняя запись
// OI без подтверждения ценой предвещает вынос в противоположную сторону.
type OITrapReversal struct{}

func NewOITrapReversal() *OITrapReversal { return &OITrapReversal{} }

func (s *OITrapReversal) ID() string { return "oi_trap_reversal" }

func (s *OITrapReversal) Evaluate(v models.MarketView, p config.StrategyParams) *models.StrategyCandidate {
	if v.Ind == nil || v.OI == nil || !passGates(v, p) {
		return nil
	}
	if v.OI.Pattern != models.OIWriterTrap || !v.OI.Tradable {
		return nil
	}

	var dir models.Direction
	switch v.OI.Bias {
	case models.BiasBullish:
		dir = models.DirectionCE
	case models.BiasBearish:
		dir = models.DirectionPE
	default:
		return nil
	}

	// базу поднимает сам OI-анализатор: его уверенность и есть сетап
	conf := p.BaseConfidence + (v.OI.Confidence-50)/2

	// RSI у экстремума в сторону разворота усиливает
	if dir == models.DirectionCE && v.Ind.RSI14 <= 40 {
		conf += 10
	}
	if dir == models.DirectionPE && v.Ind.RSI14 >= 60 {
		conf += 10
	}

	// против сильного тренда развороты не берём
	if v.Regime != nil && v.Regime.Regime == models.RegimeTrending {
		if (dir == models.DirectionCE && v.Regime.Bias == models.BiasBearish) ||
			(dir == models.DirectionPE && v.Regime.Bias == models.BiasBullish) {
			conf -= 18
		}
	}

	return &models.StrategyCandidate{
		StrategyID:       s.ID(),
		Direction:        dir,
		Confidence:       clampConfidence(conf),
		Reason:           fmt.Sprintf("writer trap: %s (OI conf %.0f)", v.OI.Reason, v.OI.Confidence),
		StrikeOffsetHint: p.StrikeOffset,
		RiskPercent:      p.RiskPercent,
	}
}
