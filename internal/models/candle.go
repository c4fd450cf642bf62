package models

import "time"

// Candle — одна OHLCV-свеча. После закрытия бакета не мутируется.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Tick — сырое обновление цены из фида.
type Tick struct {
	Token string
	Price float64
	Qty   float64
	At    time.Time
}

// TypicalPrice = (H+L+C)/3, используется в VWAP.
func (c Candle) TypicalPrice() float64 {
	return (c.High + c.Low + c.Close) / 3.0
}
