package indicators

import (
	"time"

	"signal_bot/internal/models"
)

// orbMinutes — ширина диапазона открытия для Opening Range Breakout.
const orbMinutes = 15

// BuildSnapshot — полный пересчёт снапшота по окну свечей.
// Снапшот всегда собирается заново целиком, частичных обновлений нет.
func BuildSnapshot(instrument string, bars []models.Candle, now time.Time) *models.IndicatorSnapshot {
	if len(bars) == 0 {
		return nil
	}

	closes := Closes(bars)
	last := bars[len(bars)-1]

	snap := &models.IndicatorSnapshot{
		Instrument: instrument,
		At:         now,
		SpotPrice:  last.Close,
		EMA9:       EMA(closes, 9),
		EMA21:      EMA(closes, 21),
		EMA50:      EMA(closes, 50),
		RSI14:      RSI(closes, 14),
		ATR14:      ATR(bars, 14),
		ADX14:      ADX(bars, 14),
		Candles:    bars,
	}
	snap.Supertrend, snap.SupertrendBullish = Supertrend(bars, 10, 3)

	// momentum: close - close 10 баров назад
	if len(closes) > 10 {
		snap.Momentum = last.Close - closes[len(closes)-11]
	}

	today := sessionBars(bars, now)
	if len(today) > 0 {
		snap.DayOpen = today[0].Open
		snap.DayHigh = today[0].High
		snap.DayLow = today[0].Low
		for _, b := range today {
			if b.High > snap.DayHigh {
				snap.DayHigh = b.High
			}
			if b.Low < snap.DayLow {
				snap.DayLow = b.Low
			}
		}
		snap.VWAP = VWAP(today)

		// ORB: экстремумы первых 15 минут сессии
		orbEnd := today[0].Timestamp.Add(orbMinutes * time.Minute)
		for _, b := range today {
			if !b.Timestamp.Before(orbEnd) {
				break
			}
			if snap.ORBHigh == 0 || b.High > snap.ORBHigh {
				snap.ORBHigh = b.High
			}
			if snap.ORBLow == 0 || b.Low < snap.ORBLow {
				snap.ORBLow = b.Low
			}
		}
	} else {
		snap.VWAP = VWAP(bars)
	}

	// prevClose: последний бар до сегодняшней сессии
	if n := len(bars) - len(today); n > 0 {
		snap.PrevClose = bars[n-1].Close
	}

	return snap
}

func sessionBars(bars []models.Candle, now time.Time) []models.Candle {
	y, m, d := now.Date()
	for i, b := range bars {
		by, bm, bd := b.Timestamp.In(now.Location()).Date()
		if by == y && bm == m && bd == d {
			return bars[i:]
		}
	}
	return nil
}
