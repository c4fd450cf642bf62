package models

import "time"

// IndicatorSnapshot — полный пересчёт по инструменту за один refresh.
// Никогда не мутируется частично: либо новый снапшот целиком, либо старый.
type IndicatorSnapshot struct {
	Instrument string    `json:"instrument"`
	At         time.Time `json:"at"`

	SpotPrice float64 `json:"spot_price"`
	EMA9      float64 `json:"ema9"`
	EMA21     float64 `json:"ema21"`
	EMA50     float64 `json:"ema50"`
	RSI14     float64 `json:"rsi14"`
	VWAP      float64 `json:"vwap"`
	ATR14     float64 `json:"atr14"`
	ADX14     float64 `json:"adx14"`

	Supertrend        float64 `json:"supertrend"`
	SupertrendBullish bool    `json:"supertrend_bullish"`

	DayHigh   float64 `json:"day_high"`
	DayLow    float64 `json:"day_low"`
	DayOpen   float64 `json:"day_open"`
	ORBHigh   float64 `json:"orb_high"`
	ORBLow    float64 `json:"orb_low"`
	PrevClose float64 `json:"prev_close"`
	Momentum  float64 `json:"momentum"` // close - close[n-10]

	Candles []Candle `json:"-"` // окно, по которому считали
}

// Age — возраст снапшота относительно now.
func (s *IndicatorSnapshot) Age(now time.Time) time.Duration {
	if s == nil {
		return 1<<62 - 1
	}
	return now.Sub(s.At)
}
