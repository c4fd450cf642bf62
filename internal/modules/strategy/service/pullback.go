package service

import (
	"fmt"
	"math"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

// PullbackContinuation — откат к EMA21 в действующем тренде и
// продолжение по тренду.
type PullbackContinuation struct{}

func NewPullbackContinuation() *PullbackContinuation { return &PullbackContinuation{} }

func (s *PullbackContinuation) ID() string { return "pullback_continuation" }

// pullbackTolerancePct — насколько близко к EMA21 считается откатом.
const pullbackTolerancePct = 0.2

func (s *PullbackContinuation) Evaluate(v models.MarketView, p config.StrategyParams) *models.StrategyCandidate {
	if v.Ind == nil || v.Regime == nil || !passGates(v, p) {
		return nil
	}
	if v.Regime.Regime != models.RegimeTrending && v.Regime.Regime != models.RegimeBreakout {
		return nil
	}
	ind := v.Ind
	if ind.EMA21 <= 0 || ind.SpotPrice <= 0 {
		return nil
	}

	distPct := math.Abs(ind.SpotPrice-ind.EMA21) / ind.SpotPrice * 100
	if distPct > pullbackTolerancePct {
		return nil
	}

	var dir models.Direction
	switch v.Regime.Bias {
	case models.BiasBullish:
		// откат сверху к EMA21 в бычьем тренде
		if ind.EMA21 >= ind.EMA50 {
			dir = models.DirectionCE
		}
	case models.BiasBearish:
		if ind.EMA21 <= ind.EMA50 {
			dir = models.DirectionPE
		}
	}
	if dir == "" {
		return nil
	}

	conf := p.BaseConfidence + 8 // цена у EMA21 в тренде

	if (dir == models.DirectionCE && ind.RSI14 >= 40 && ind.RSI14 <= 60) ||
		(dir == models.DirectionPE && ind.RSI14 >= 40 && ind.RSI14 <= 60) {
		conf += 8 // здоровый откат, не разворот
	}

	if (dir == models.DirectionCE) == ind.SupertrendBullish {
		conf += 8
	} else {
		conf -= 10
	}

	if v.Regime.Confidence >= 70 {
		conf += 6
	}

	return &models.StrategyCandidate{
		StrategyID: s.ID(),
		Direction:  dir,
		Confidence: clampConfidence(conf),
		Reason: fmt.Sprintf("откат к EMA21 (%.2f%%) в тренде %s, продолжение %s",
			distPct, v.Regime.Bias, dir),
		StrikeOffsetHint: p.StrikeOffset,
		RiskPercent:      p.RiskPercent,
	}
}
