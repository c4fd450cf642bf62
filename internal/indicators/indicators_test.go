package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_bot/internal/models"
)

func risingBars(n int, start float64) []models.Candle {
	bars := make([]models.Candle, n)
	t0 := time.Date(2026, 8, 25, 9, 15, 0, 0, time.UTC)
	for i := range bars {
		c := start + float64(i)
		bars[i] = models.Candle{
			Timestamp: t0.Add(time.Duration(i) * time.Minute),
			Open:      c - 0.5, High: c + 1, Low: c - 1, Close: c, Volume: 100,
		}
	}
	return bars
}

func TestEMASeries_SeedIsSMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	s := EMASeries(closes, 5)
	require.Len(t, s, 1)
	assert.InDelta(t, 3.0, s[0], 1e-9)
}

func TestEMA_FastAboveSlowOnRisingSeries(t *testing.T) {
	closes := Closes(risingBars(50, 100))
	fast := EMA(closes, 9)
	slow := EMA(closes, 21)

	assert.Greater(t, fast, slow)
	assert.Greater(t, slow, 0.0)
	// обе EMA отстают от цены, но не дальше хвоста ряда
	assert.Less(t, fast, closes[len(closes)-1])
}

func TestEMA_NotEnoughData(t *testing.T) {
	assert.Zero(t, EMA([]float64{1, 2, 3}, 9))
	assert.Nil(t, EMASeries(nil, 9))
}

func TestRSI_Bounds(t *testing.T) {
	// все движения вверх — потерь нет
	up := Closes(risingBars(30, 100))
	assert.Equal(t, 100.0, RSI(up, 14))

	// все вниз
	down := make([]float64, 30)
	for i := range down {
		down[i] = 200 - float64(i)
	}
	assert.InDelta(t, 0.0, RSI(down, 14), 1e-9)

	// нехватка данных — нейтральные 50
	assert.Equal(t, 50.0, RSI([]float64{1, 2}, 14))
}

func TestRSI_MixedStaysInside(t *testing.T) {
	closes := []float64{100, 102, 101, 103, 102, 104, 103, 105, 104, 106, 105, 107, 106, 108, 107, 109}
	rsi := RSI(closes, 14)
	assert.Greater(t, rsi, 50.0) // рост преобладает
	assert.Less(t, rsi, 100.0)
}

func TestATR_PositiveAndGapAware(t *testing.T) {
	bars := risingBars(30, 100)
	atr := ATR(bars, 14)
	require.Greater(t, atr, 0.0)

	// гэп задирает true range через |high - prevClose|
	gapped := append([]models.Candle(nil), bars...)
	last := gapped[len(gapped)-1]
	last.High += 20
	last.Close += 20
	last.Low += 15
	gapped[len(gapped)-1] = last
	assert.Greater(t, ATR(gapped, 14), atr)
}

func TestATR_NotEnoughData(t *testing.T) {
	assert.Zero(t, ATR(risingBars(5, 100), 14))
}

func TestVWAP_VolumeWeighted(t *testing.T) {
	bars := []models.Candle{
		{High: 10, Low: 10, Close: 10, Volume: 100},
		{High: 20, Low: 20, Close: 20, Volume: 300},
	}
	// typical = 10 и 20, веса 1:3
	assert.InDelta(t, 17.5, VWAP(bars), 1e-9)

	assert.Zero(t, VWAP([]models.Candle{{High: 10, Low: 10, Close: 10}}))
}

func TestADX_TrendingVsFlat(t *testing.T) {
	trend := ADX(risingBars(60, 100), 14)
	assert.Greater(t, trend, 20.0) // устойчивый тренд

	flat := make([]models.Candle, 60)
	for i := range flat {
		flat[i] = models.Candle{High: 101, Low: 99, Close: 100, Volume: 100}
	}
	assert.Less(t, ADX(flat, 14), trend)
}

func TestSupertrend_FollowsTrend(t *testing.T) {
	up := risingBars(60, 100)
	band, bullish := Supertrend(up, 10, 3)
	assert.True(t, bullish)
	assert.Greater(t, band, 0.0)
	assert.Less(t, band, up[len(up)-1].Close) // полоса под ценой в бычьем тренде

	down := make([]models.Candle, 60)
	for i := range down {
		c := 200 - float64(i)
		down[i] = models.Candle{Open: c + 0.5, High: c + 1, Low: c - 1, Close: c, Volume: 100}
	}
	band, bullish = Supertrend(down, 10, 3)
	assert.False(t, bullish)
	assert.Greater(t, band, down[len(down)-1].Close)
}
