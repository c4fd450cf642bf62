package helper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hh, mm int) time.Time {
	return time.Date(2026, 8, 25, hh, mm, 0, 0, MarketLocation())
}

func TestWithinWindow(t *testing.T) {
	assert.True(t, WithinWindow(at(9, 15), "09:15", "15:30"))
	assert.True(t, WithinWindow(at(15, 30), "09:15", "15:30"))
	assert.False(t, WithinWindow(at(9, 14), "09:15", "15:30"))
	assert.False(t, WithinWindow(at(15, 31), "09:15", "15:30"))
}

func TestAfter(t *testing.T) {
	assert.True(t, After(at(15, 10), "15:10")) // отсечка включительно
	assert.True(t, After(at(15, 11), "15:10"))
	assert.False(t, After(at(15, 9), "15:10"))
}

func TestBucketStart(t *testing.T) {
	ts := time.Date(2026, 8, 25, 10, 3, 47, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 25, 10, 3, 0, 0, time.UTC), BucketStart(ts, time.Minute))
	assert.Equal(t, time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC), BucketStart(ts, 5*time.Minute))
}

func TestATMStrike(t *testing.T) {
	assert.Equal(t, 20150.0, ATMStrike(20160, 50))
	assert.Equal(t, 20200.0, ATMStrike(20180, 50))
	assert.Equal(t, 44500.0, ATMStrike(44520, 100))
}

func TestITMStrike(t *testing.T) {
	// CE в деньгах — ниже ATM, PE — выше
	assert.Equal(t, 20100.0, ITMStrike(20150, 50, 1, true))
	assert.Equal(t, 20000.0, ITMStrike(20150, 50, 3, true))
	assert.Equal(t, 20200.0, ITMStrike(20150, 50, 1, false))
	assert.Equal(t, 20150.0, ITMStrike(20150, 50, 0, true))
}

func TestRoundToTick(t *testing.T) {
	assert.InDelta(t, 163.20, RoundUpToTick(163.17, 0.05), 1e-9)
	assert.InDelta(t, 199.40, RoundDownToTick(199.43, 0.05), 1e-9)

	// уже на сетке — без сдвига
	assert.InDelta(t, 100.05, RoundUpToTick(100.05, 0.05), 1e-9)
	assert.InDelta(t, 100.05, RoundDownToTick(100.05, 0.05), 1e-9)

	// нулевой тик — значение как есть
	assert.Equal(t, 163.17, RoundUpToTick(163.17, 0))
	assert.Equal(t, 163.17, RoundDownToTick(163.17, 0))
}

func TestStrikeKey(t *testing.T) {
	assert.Equal(t, "NIFTY:20000:CE", StrikeKey("NIFTY", 20000, "CE"))
}
