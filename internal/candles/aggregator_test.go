package candles

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_bot/internal/models"
)

func ts(min, sec int) time.Time {
	return time.Date(2026, 8, 25, 10, min, sec, 0, time.UTC)
}

func TestAggregator_TicksFoldIntoOneBucket(t *testing.T) {
	a := NewAggregator(time.Minute, 100)

	a.FeedTick("NIFTY", 100, 10, ts(0, 5))
	a.FeedTick("NIFTY", 103, 20, ts(0, 20))
	a.FeedTick("NIFTY", 99, 5, ts(0, 40))
	a.FeedTick("NIFTY", 101, 15, ts(0, 59))

	bars := a.Candles("NIFTY")
	require.Len(t, bars, 1)

	b := bars[0]
	assert.Equal(t, ts(0, 0), b.Timestamp)
	assert.Equal(t, 100.0, b.Open)
	assert.Equal(t, 103.0, b.High)
	assert.Equal(t, 99.0, b.Low)
	assert.Equal(t, 101.0, b.Close)
	assert.Equal(t, 50.0, b.Volume)
}

func TestAggregator_RolloverSealsPreviousBar(t *testing.T) {
	a := NewAggregator(time.Minute, 100)

	a.FeedTick("NIFTY", 100, 1, ts(0, 30))
	a.FeedTick("NIFTY", 105, 1, ts(1, 0)) // граница бакета

	bars := a.Candles("NIFTY")
	require.Len(t, bars, 2)
	assert.Equal(t, 100.0, bars[0].Close)
	assert.Equal(t, 105.0, bars[1].Open)
	assert.Equal(t, ts(1, 0), bars[1].Timestamp)
}

func TestAggregator_GapBucketsDoNotBackfill(t *testing.T) {
	a := NewAggregator(time.Minute, 100)

	a.FeedTick("NIFTY", 100, 1, ts(0, 10))
	// тишина три минуты, следующий тик в бакете 10:04
	a.FeedTick("NIFTY", 107, 1, ts(4, 10))

	bars := a.Candles("NIFTY")
	require.Len(t, bars, 2)
	assert.Equal(t, ts(0, 0), bars[0].Timestamp)
	assert.Equal(t, ts(4, 0), bars[1].Timestamp)
}

func TestAggregator_LateTickIgnored(t *testing.T) {
	a := NewAggregator(time.Minute, 100)

	a.FeedTick("NIFTY", 100, 1, ts(2, 0))
	a.FeedTick("NIFTY", 999, 1, ts(1, 30)) // тик в прошлое

	bars := a.Candles("NIFTY")
	require.Len(t, bars, 1)
	assert.Equal(t, 100.0, bars[0].Close)
	assert.Equal(t, 100.0, bars[0].High)
}

func TestAggregator_RingEviction(t *testing.T) {
	a := NewAggregator(time.Minute, 3)

	for i := 0; i < 6; i++ {
		a.FeedTick("NIFTY", float64(100+i), 1, ts(i, 0))
	}

	bars := a.Candles("NIFTY")
	// 3 запечатанных + открытый
	require.Len(t, bars, 4)
	assert.Equal(t, 102.0, bars[0].Open) // 100 и 101 вытеснены
	assert.Equal(t, 105.0, bars[3].Open)
}

func TestAggregator_SeedHistoryThenTicks(t *testing.T) {
	a := NewAggregator(time.Minute, 100)

	hist := []models.Candle{
		{Timestamp: ts(0, 0), Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 500},
		{Timestamp: ts(1, 0), Open: 100.5, High: 102, Low: 100, Close: 101.5, Volume: 600},
	}
	a.SeedHistory("NIFTY", hist)
	require.Equal(t, 2, a.Len("NIFTY"))

	a.FeedTick("NIFTY", 102, 10, ts(2, 5))
	bars := a.Candles("NIFTY")
	require.Len(t, bars, 3)
	assert.Equal(t, 101.5, bars[1].Close)
	assert.Equal(t, 102.0, bars[2].Open)
}

func TestAggregator_BootstrapFlatZeroVolume(t *testing.T) {
	a := NewAggregator(time.Minute, 100)

	a.Bootstrap("NIFTY", 250.0, 50, ts(30, 0))

	bars := a.Candles("NIFTY")
	require.Len(t, bars, 50)
	for _, b := range bars {
		assert.Equal(t, 250.0, b.Open)
		assert.Equal(t, 250.0, b.Close)
		assert.Zero(t, b.Volume)
	}
	// ряды строго возрастают по времени
	for i := 1; i < len(bars); i++ {
		assert.True(t, bars[i].Timestamp.After(bars[i-1].Timestamp))
	}
}

func TestAggregator_ResetDropsEverything(t *testing.T) {
	a := NewAggregator(time.Minute, 100)
	a.FeedTick("NIFTY", 100, 1, ts(0, 0))
	a.Reset()
	assert.Zero(t, a.Len("NIFTY"))
	assert.Nil(t, a.Candles("NIFTY"))
}
