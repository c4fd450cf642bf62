package regime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

func newTestAssessor() *Assessor {
	return NewAssessor(config.RegimeThresholds{
		VolatileScore:    70,
		TrendSpreadPct:   0.15,
		BreakoutLookback: 10,
		MaxConfidence:    95,
	})
}

func mkBars(n int, fn func(i int) float64) []models.Candle {
	bars := make([]models.Candle, n)
	t0 := time.Date(2026, 8, 25, 9, 15, 0, 0, time.UTC)
	for i := range bars {
		c := fn(i)
		bars[i] = models.Candle{
			Timestamp: t0.Add(time.Duration(i) * time.Minute),
			Open:      c, High: c + 2, Low: c - 2, Close: c, Volume: 100,
		}
	}
	return bars
}

func TestAssess_InsufficientData(t *testing.T) {
	a := newTestAssessor()
	out := a.Assess(mkBars(20, func(i int) float64 { return 100 }), 12)

	assert.Equal(t, models.RegimeSideways, out.Regime)
	assert.Equal(t, models.BiasNeutral, out.Bias)
	assert.Zero(t, out.Confidence)
}

func TestAssess_TrendingBullish(t *testing.T) {
	a := newTestAssessor()
	// плавный рост: спред EMA20/50 заметный, волатильность умеренная
	bars := mkBars(120, func(i int) float64 { return 20000 + float64(i)*8 })
	out := a.Assess(bars, 11)

	assert.Equal(t, models.BiasBullish, out.Bias)
	require.Contains(t, []models.Regime{models.RegimeTrending, models.RegimeBreakout}, out.Regime)
	assert.Greater(t, out.TrendStrength, 0.0)
	assert.Greater(t, out.Confidence, 50.0)
	assert.LessOrEqual(t, out.Confidence, 95.0)
}

func TestAssess_SidewaysFlat(t *testing.T) {
	a := newTestAssessor()
	bars := mkBars(120, func(i int) float64 { return 20000 })
	out := a.Assess(bars, 10)

	assert.Equal(t, models.RegimeSideways, out.Regime)
	assert.Equal(t, models.BiasNeutral, out.Bias)
}

func TestAssess_VolatileOnHighVIX(t *testing.T) {
	a := newTestAssessor()
	// пила с широким диапазоном + задранный VIX
	bars := mkBars(120, func(i int) float64 {
		if i%2 == 0 {
			return 20000
		}
		return 20180
	})
	out := a.Assess(bars, 35)

	assert.Equal(t, models.RegimeVolatile, out.Regime)
	assert.GreaterOrEqual(t, out.VolatilityScore, 70.0)
}

func TestAssess_BearishBias(t *testing.T) {
	a := newTestAssessor()
	bars := mkBars(120, func(i int) float64 { return 21000 - float64(i)*8 })
	out := a.Assess(bars, 11)

	assert.Equal(t, models.BiasBearish, out.Bias)
	assert.Less(t, out.TrendStrength, 0.0)
}

func TestConfidence_NeverAboveCap(t *testing.T) {
	a := newTestAssessor()
	bars := mkBars(400, func(i int) float64 { return 10000 + float64(i)*25 })
	out := a.Assess(bars, 5)
	assert.LessOrEqual(t, out.Confidence, 95.0)
}
