package models

import "time"

type Direction string

const (
	DirectionCE Direction = "CE"
	DirectionPE Direction = "PE"
)

type ProductType string

const (
	ProductIntraday ProductType = "INT"
	ProductCarry    ProductType = "CF"
)

type SignalStatus string

const (
	StatusActive     SignalStatus = "active"
	StatusTarget1Hit SignalStatus = "target1_hit"
	StatusTarget2Hit SignalStatus = "target2_hit"
	StatusTarget3Hit SignalStatus = "target3_hit"
	StatusSLHit      SignalStatus = "sl_hit"
	StatusExpired    SignalStatus = "expired"
	StatusClosed     SignalStatus = "closed" // только ручное закрытие
)

// Terminal — терминальный статус больше не меняется.
func (s SignalStatus) Terminal() bool {
	return s != StatusActive && s != ""
}

// Signal — торговый сигнал. Создаёт его оркестратор, дальше все
// мутации делает только lifecycle-менеджер.
type Signal struct {
	ID         string      `json:"id"`
	StrategyID string      `json:"strategy_id"`
	Instrument string      `json:"instrument"`
	Direction  Direction   `json:"direction"`
	Product    ProductType `json:"product_type"`
	Strike     float64     `json:"strike"`
	Expiry     time.Time   `json:"expiry"`
	LotSize    int         `json:"lot_size"`

	EntryPrice   float64 `json:"entry_price"`
	CurrentPrice float64 `json:"current_price"`
	StopLoss     float64 `json:"stop_loss"`
	Target1      float64 `json:"target1"`
	Target2      float64 `json:"target2"`
	Target3      float64 `json:"target3"`
	TrailingStop float64 `json:"trailing_stop,omitempty"`

	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`

	Status     SignalStatus `json:"status"`
	PnL        float64      `json:"pnl"`      // пункты премии
	PnLMoney   float64      `json:"pnl_rs"`   // пункты * лот
	ExitPrice  float64      `json:"exit_price,omitempty"`
	ExitReason string       `json:"exit_reason,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// EffectiveStop — максимум из исходного SL и трейлинга (ratchet не опускается).
func (s *Signal) EffectiveStop() float64 {
	if s.TrailingStop > s.StopLoss {
		return s.TrailingStop
	}
	return s.StopLoss
}
