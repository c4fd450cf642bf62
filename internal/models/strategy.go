package models

import "time"

// StrategyCandidate — кандидат на сигнал от одной стратегии.
// Живёт ровно один цикл оркестратора, никуда не персистится.
type StrategyCandidate struct {
	StrategyID       string
	Direction        Direction
	Confidence       float64 // 0..95
	Reason           string
	StrikeOffsetHint int     // шагов ITM от ATM
	RiskPercent      float64 // доля премии под стоп, напр. 10.0
}

// MarketView — всё, что стратегия видит на момент оценки.
// Собирается оркестратором один раз на цикл.
type MarketView struct {
	Instrument string
	Ind        *IndicatorSnapshot
	Regime     *RegimeAssessment
	OI         *OIAnalysis
	OISnap     *OISnapshot
	VIX        float64
	Now        time.Time
}
