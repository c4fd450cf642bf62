package indicators

import (
	"math"

	"signal_bot/internal/models"
)

// Библиотека чистых функций над рядом свечей. При нехватке данных все
// функции возвращают нейтральный результат, а не ошибку — вызывающий
// обязан сам проверять длину окна.

// EMASeries — ряд EMA: сид = SMA первых period закрытий, дальше
// рекуррента ema_i = (close_i - ema_{i-1})*k + ema_{i-1}, k = 2/(period+1).
func EMASeries(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period {
		return nil
	}
	out := make([]float64, 0, len(closes)-period+1)

	var sum float64
	for _, c := range closes[:period] {
		sum += c
	}
	ema := sum / float64(period)
	out = append(out, ema)

	k := 2.0 / (float64(period) + 1)
	for _, c := range closes[period:] {
		ema = (c-ema)*k + ema
		out = append(out, ema)
	}
	return out
}

// EMA — последнее значение EMASeries, 0 при нехватке данных.
func EMA(closes []float64, period int) float64 {
	s := EMASeries(closes, period)
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

// RSI — Wilder: сглаживание средних gain/loss той же EMA-рекуррентой.
// Возвращает 50 при нехватке данных, 100 при нулевых потерях.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

func trueRange(cur, prev models.Candle) float64 {
	hl := cur.High - cur.Low
	hc := math.Abs(cur.High - prev.Close)
	lc := math.Abs(cur.Low - prev.Close)
	return math.Max(hl, math.Max(hc, lc))
}

// ATR — сид простым средним TR, дальше сглаживание Уайлдера. Всегда >= 0.
func ATR(bars []models.Candle, period int) float64 {
	if period <= 0 || len(bars) < period+1 {
		return 0
	}

	var atr float64
	for i := 1; i <= period; i++ {
		atr += trueRange(bars[i], bars[i-1])
	}
	atr /= float64(period)

	for i := period + 1; i < len(bars); i++ {
		tr := trueRange(bars[i], bars[i-1])
		atr = (atr*float64(period-1) + tr) / float64(period)
	}
	return atr
}

// VWAP — cum(typical*vol)/cum(vol) по переданным барам; сессионный сброс
// делает вызывающий, передавая только сегодняшние бары.
func VWAP(bars []models.Candle) float64 {
	var pv, vol float64
	for _, b := range bars {
		pv += b.TypicalPrice() * b.Volume
		vol += b.Volume
	}
	if vol == 0 {
		return 0
	}
	return pv / vol
}

// ADX — +DM/-DM со сглаживанием Уайлдера, DX = 100*|+DI - -DI|/(+DI + -DI).
func ADX(bars []models.Candle, period int) float64 {
	if period <= 0 || len(bars) < 2*period+1 {
		return 0
	}

	var smTR, smPlus, smMinus float64
	for i := 1; i <= period; i++ {
		tr, pdm, mdm := dm(bars[i], bars[i-1])
		smTR += tr
		smPlus += pdm
		smMinus += mdm
	}

	dxSum := 0.0
	dxCount := 0
	adx := 0.0

	for i := period + 1; i < len(bars); i++ {
		tr, pdm, mdm := dm(bars[i], bars[i-1])
		smTR = smTR - smTR/float64(period) + tr
		smPlus = smPlus - smPlus/float64(period) + pdm
		smMinus = smMinus - smMinus/float64(period) + mdm

		if smTR == 0 {
			continue
		}
		plusDI := 100 * smPlus / smTR
		minusDI := 100 * smMinus / smTR
		sum := plusDI + minusDI
		if sum == 0 {
			continue
		}
		dx := 100 * math.Abs(plusDI-minusDI) / sum

		if dxCount < period {
			dxSum += dx
			dxCount++
			if dxCount == period {
				adx = dxSum / float64(period)
			}
			continue
		}
		adx = (adx*float64(period-1) + dx) / float64(period)
	}
	return adx
}

func dm(cur, prev models.Candle) (tr, plusDM, minusDM float64) {
	up := cur.High - prev.High
	down := prev.Low - cur.Low
	if up > down && up > 0 {
		plusDM = up
	}
	if down > up && down > 0 {
		minusDM = down
	}
	return trueRange(cur, prev), plusDM, minusDM
}

// Supertrend — ATR-полосы вокруг HL2; направление переключается, когда
// close пересекает противоположную полосу. Возвращает значение активной
// полосы и флаг бычьего тренда.
func Supertrend(bars []models.Candle, period int, multiplier float64) (float64, bool) {
	if period <= 0 || len(bars) < period+2 {
		return 0, false
	}
	if multiplier <= 0 {
		multiplier = 3
	}

	upper := make([]float64, len(bars))
	lower := make([]float64, len(bars))
	bullish := true
	var st float64

	atr := rollingATR(bars, period)

	for i := period + 1; i < len(bars); i++ {
		hl2 := (bars[i].High + bars[i].Low) / 2
		basicUpper := hl2 + multiplier*atr[i]
		basicLower := hl2 - multiplier*atr[i]

		// полосы подтягиваются, но не расслабляются против цены
		upper[i] = basicUpper
		if i > period+1 && (basicUpper > upper[i-1] && bars[i-1].Close < upper[i-1]) {
			upper[i] = upper[i-1]
		}
		lower[i] = basicLower
		if i > period+1 && (basicLower < lower[i-1] && bars[i-1].Close > lower[i-1]) {
			lower[i] = lower[i-1]
		}

		if bullish {
			st = lower[i]
			if bars[i].Close < lower[i] {
				bullish = false
				st = upper[i]
			}
		} else {
			st = upper[i]
			if bars[i].Close > upper[i] {
				bullish = true
				st = lower[i]
			}
		}
	}
	return st, bullish
}

// rollingATR — ATR на каждый индекс (Уайлдер), для Supertrend.
func rollingATR(bars []models.Candle, period int) []float64 {
	out := make([]float64, len(bars))
	if len(bars) < period+1 {
		return out
	}
	var atr float64
	for i := 1; i <= period; i++ {
		atr += trueRange(bars[i], bars[i-1])
	}
	atr /= float64(period)
	out[period] = atr
	for i := period + 1; i < len(bars); i++ {
		atr = (atr*float64(period-1) + trueRange(bars[i], bars[i-1])) / float64(period)
		out[i] = atr
	}
	return out
}

// Closes — выжимка закрытий.
func Closes(bars []models.Candle) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
