package oi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(config.OIThresholds{
		StrongChangePct: 5,
		TrapBothUpPct:   3,
		WriterTrapPct:   8,
		MinConfidence:   40,
		TrapPenalty:     25,
	})
}

func chain(callOI, putOI float64) []models.StrikeOI {
	// три страйка, центр — самый тяжёлый
	return []models.StrikeOI{
		{Strike: 19900, CallOI: callOI * 0.2, PutOI: putOI * 0.5},
		{Strike: 20000, CallOI: callOI * 0.5, PutOI: putOI * 0.3},
		{Strike: 20100, CallOI: callOI * 0.3, PutOI: putOI * 0.2},
	}
}

var t0 = time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

func TestAnalyze_FirstSnapshotIsBaselineOnly(t *testing.T) {
	a := newTestAnalyzer()
	out, snap := a.Analyze("NIFTY", chain(1e6, 1e6), 20000, 0, t0)

	assert.Equal(t, models.OINeutral, out.Pattern)
	assert.False(t, out.Tradable)
	assert.Zero(t, out.Confidence)
	assert.InDelta(t, 1.0, snap.PutCallRatio, 1e-9)
	// уровни считаются уже с первого снапшота
	assert.Equal(t, 20000.0, out.Resistance)
	assert.Equal(t, 19900.0, out.Support)
}

func TestAnalyze_FakeBreakoutPenalizedAndNotTradable(t *testing.T) {
	a := newTestAnalyzer()
	a.Analyze("NIFTY", chain(1e6, 1e6), 20000, 0, t0)

	// обе ноги +4% при растущей цене
	out, snap := a.Analyze("NIFTY", chain(1.04e6, 1.04e6), 20050, 0.4, t0.Add(time.Minute))

	assert.Equal(t, models.OIFakeBreakout, out.Pattern)
	assert.Equal(t, models.BiasNeutral, out.Bias)
	assert.False(t, out.Tradable)
	// 20 + min(8, 30) - 25 = 3
	assert.InDelta(t, 3.0, out.Confidence, 1e-9)
	assert.InDelta(t, 4.0, snap.CallOIChangePct, 1e-6)
	assert.InDelta(t, 4.0, snap.PutOIChangePct, 1e-6)
}

func TestAnalyze_FakeBreakdownOnFallingPrice(t *testing.T) {
	a := newTestAnalyzer()
	a.Analyze("NIFTY", chain(1e6, 1e6), 20000, 0, t0)

	out, _ := a.Analyze("NIFTY", chain(1.05e6, 1.05e6), 19900, -0.5, t0.Add(time.Minute))

	assert.Equal(t, models.OIFakeBreakdown, out.Pattern)
	assert.False(t, out.Tradable)
}

func TestAnalyze_StrongBullish(t *testing.T) {
	a := newTestAnalyzer()
	a.Analyze("NIFTY", chain(1e6, 1e6), 20000, 0, t0)

	// цена вверх, call +6%, put -7%
	out, _ := a.Analyze("NIFTY", chain(1.06e6, 0.93e6), 20100, 0.5, t0.Add(time.Minute))

	assert.Equal(t, models.OIPutUnwinding, out.Pattern)
	assert.Equal(t, models.BiasBullish, out.Bias)
	assert.True(t, out.Tradable)
	assert.GreaterOrEqual(t, out.Confidence, 55.0)
}

func TestAnalyze_StrongBearish(t *testing.T) {
	a := newTestAnalyzer()
	a.Analyze("NIFTY", chain(1e6, 1e6), 20000, 0, t0)

	out, _ := a.Analyze("NIFTY", chain(0.92e6, 1.07e6), 19900, -0.6, t0.Add(time.Minute))

	assert.Equal(t, models.OICallUnwinding, out.Pattern)
	assert.Equal(t, models.BiasBearish, out.Bias)
	assert.True(t, out.Tradable)
}

func TestAnalyze_WriterTrapNeedsFlatPrice(t *testing.T) {
	a := newTestAnalyzer()
	a.Analyze("NIFTY", chain(1e6, 1e6), 20000, 0, t0)

	// тяжёлый call writing +10% при стоячей цене
	out, _ := a.Analyze("NIFTY", chain(1.10e6, 1.0e6), 20000, 0.0, t0.Add(time.Minute))

	require.Equal(t, models.OIWriterTrap, out.Pattern)
	assert.Equal(t, models.BiasBullish, out.Bias)
	assert.True(t, out.Tradable)
}

func TestAnalyze_ModerateCallWritingBearish(t *testing.T) {
	a := newTestAnalyzer()
	a.Analyze("NIFTY", chain(1e6, 1e6), 20000, 0, t0)

	// call +6% при заметном движении цены — не writer trap, умеренный паттерн
	out, _ := a.Analyze("NIFTY", chain(1.06e6, 1.0e6), 20050, 0.3, t0.Add(time.Minute))

	assert.Equal(t, models.OICallWriting, out.Pattern)
	assert.Equal(t, models.BiasBearish, out.Bias)
	assert.True(t, out.Tradable)
}

func TestAnalyze_NeutralBelowThresholds(t *testing.T) {
	a := newTestAnalyzer()
	a.Analyze("NIFTY", chain(1e6, 1e6), 20000, 0, t0)

	out, _ := a.Analyze("NIFTY", chain(1.01e6, 1.005e6), 20010, 0.05, t0.Add(time.Minute))

	assert.Equal(t, models.OINeutral, out.Pattern)
	assert.False(t, out.Tradable) // 25 < 40
}

func TestAnalyze_EmptyChain(t *testing.T) {
	a := newTestAnalyzer()
	out, snap := a.Analyze("NIFTY", nil, 20000, 0, t0)

	assert.Equal(t, models.OINeutral, out.Pattern)
	assert.Zero(t, snap.TotalCallOI)
	assert.False(t, out.Tradable)
}

func TestReset_DropsBaseline(t *testing.T) {
	a := newTestAnalyzer()
	a.Analyze("NIFTY", chain(1e6, 1e6), 20000, 0, t0)
	a.Reset()

	out, _ := a.Analyze("NIFTY", chain(2e6, 2e6), 20000, 0, t0.Add(time.Minute))
	assert.Equal(t, "first snapshot, no baseline", out.Reason)
}
