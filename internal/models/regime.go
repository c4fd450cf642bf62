package models

type Regime string

const (
	RegimeSideways Regime = "SIDEWAYS"
	RegimeTrending Regime = "TRENDING"
	RegimeBreakout Regime = "BREAKOUT"
	RegimeVolatile Regime = "VOLATILE"
)

type Bias string

const (
	BiasBullish Bias = "BULLISH"
	BiasBearish Bias = "BEARISH"
	BiasNeutral Bias = "NEUTRAL"
)

// RegimeAssessment — оценка режима рынка по цене/волатильности.
type RegimeAssessment struct {
	Regime          Regime  `json:"regime"`
	Bias            Bias    `json:"bias"`
	Confidence      float64 `json:"confidence"` // 0..100, кап 95
	VolatilityScore float64 `json:"volatility_score"`
	TrendStrength   float64 `json:"trend_strength"` // (EMA20-EMA50)/EMA50 в %
	Reason          string  `json:"reason"`
}
