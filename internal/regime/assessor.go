package regime

import (
	"fmt"
	"math"

	"signal_bot/internal/indicators"
	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

// Assessor классифицирует режим рынка по цене и волатильности.
// Чистая логика: вход — окно свечей и внешний VIX, выход — оценка.
type Assessor struct {
	cfg config.RegimeThresholds
}

func NewAssessor(cfg config.RegimeThresholds) *Assessor {
	if cfg.VolatileScore <= 0 {
		cfg.VolatileScore = 70
	}
	if cfg.TrendSpreadPct <= 0 {
		cfg.TrendSpreadPct = 0.15
	}
	if cfg.BreakoutLookback <= 0 {
		cfg.BreakoutLookback = 10
	}
	if cfg.MaxConfidence <= 0 {
		cfg.MaxConfidence = 95
	}
	return &Assessor{cfg: cfg}
}

// Assess — оценка по окну. При нехватке данных нейтральный SIDEWAYS
// с нулевой уверенностью, без ошибки.
func (a *Assessor) Assess(bars []models.Candle, vix float64) models.RegimeAssessment {
	out := models.RegimeAssessment{
		Regime: models.RegimeSideways,
		Bias:   models.BiasNeutral,
		Reason: "insufficient data",
	}
	if len(bars) < 50 {
		return out
	}

	closes := indicators.Closes(bars)
	price := closes[len(closes)-1]
	ema20 := indicators.EMA(closes, 20)
	ema50 := indicators.EMA(closes, 50)
	atr := indicators.ATR(bars, 14)

	// bias по порядку цена/EMA20/EMA50
	switch {
	case price > ema20 && ema20 > ema50:
		out.Bias = models.BiasBullish
	case price < ema20 && ema20 < ema50:
		out.Bias = models.BiasBearish
	default:
		out.Bias = models.BiasNeutral
	}

	// спред EMA20/EMA50 в процентах — сила тренда
	if ema50 > 0 {
		out.TrendStrength = (ema20 - ema50) / ema50 * 100
	}

	out.VolatilityScore = a.volatilityScore(bars, price, atr, vix)

	spread := math.Abs(out.TrendStrength)
	breakout := a.breakoutCheck(bars)

	switch {
	case out.VolatilityScore >= a.cfg.VolatileScore:
		out.Regime = models.RegimeVolatile
		out.Reason = fmt.Sprintf("volatility score %.1f >= %.1f", out.VolatilityScore, a.cfg.VolatileScore)
	case spread >= a.cfg.TrendSpreadPct && breakout:
		out.Regime = models.RegimeBreakout
		out.Reason = fmt.Sprintf("ema spread %.2f%% + close beyond %d-bar extreme", spread, a.cfg.BreakoutLookback)
	case spread >= a.cfg.TrendSpreadPct:
		out.Regime = models.RegimeTrending
		out.Reason = fmt.Sprintf("ema spread %.2f%% >= %.2f%%", spread, a.cfg.TrendSpreadPct)
	default:
		out.Regime = models.RegimeSideways
		out.Reason = fmt.Sprintf("ema spread %.2f%% below threshold", spread)
	}

	out.Confidence = a.confidence(len(bars), spread, out.Regime)
	return out
}

// volatilityScore — смесь ATR% от цены, диапазона последних баров и VIX.
// Весовые коэффициенты — боевая эмпирика, см. DESIGN.md.
func (a *Assessor) volatilityScore(bars []models.Candle, price, atr, vix float64) float64 {
	if price <= 0 {
		return 0
	}
	atrPct := atr / price * 100

	// диапазон последних 20 баров в % от цены
	n := len(bars)
	lo, hi := bars[n-1].Low, bars[n-1].High
	from := n - 20
	if from < 0 {
		from = 0
	}
	for _, b := range bars[from:] {
		if b.High > hi {
			hi = b.High
		}
		if b.Low < lo {
			lo = b.Low
		}
	}
	rangePct := (hi - lo) / price * 100

	score := atrPct*120 + rangePct*25 + vix*1.5
	if score > 100 {
		score = 100
	}
	return score
}

// breakoutCheck — close за экстремумом предыдущих N баров.
func (a *Assessor) breakoutCheck(bars []models.Candle) bool {
	n := len(bars)
	lb := a.cfg.BreakoutLookback
	if n < lb+2 {
		return false
	}
	last := bars[n-1].Close
	hi, lo := bars[n-1-lb].High, bars[n-1-lb].Low
	for _, b := range bars[n-1-lb : n-1] {
		if b.High > hi {
			hi = b.High
		}
		if b.Low < lo {
			lo = b.Low
		}
	}
	return last > hi || last < lo
}

func (a *Assessor) confidence(sample int, spread float64, r models.Regime) float64 {
	conf := 30.0

	// больше выборка — больше доверия, до +25
	conf += math.Min(float64(sample)/10, 25)

	// сила тренда, до +30
	conf += math.Min(spread*60, 30)

	// тип режима: по пробоям уверенность всегда ниже
	switch r {
	case models.RegimeTrending:
		conf += 10
	case models.RegimeBreakout:
		conf += 5
	case models.RegimeVolatile:
		conf -= 10
	}

	if conf > a.cfg.MaxConfidence {
		conf = a.cfg.MaxConfidence
	}
	if conf < 0 {
		conf = 0
	}
	return conf
}
