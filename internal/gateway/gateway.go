package gateway

import (
	"context"
	"time"

	"signal_bot/internal/models"
)

// TickHandler — колбэк тикового фида. Вызывается из read-loop'а WS,
// обработчик обязан быть быстрым и неблокирующим.
type TickHandler func(token string, price, qty float64, at time.Time)

// MarketData — всё, что движку нужно от брокерского шлюза.
// Транспорт/авторизация живут в реализации, движок видит только это.
type MarketData interface {
	HistoricalCandles(ctx context.Context, instrument string, interval time.Duration, from, to time.Time) ([]models.Candle, error)
	OptionQuote(ctx context.Context, instrument string, strike float64, dir models.Direction, expiry time.Time) (float64, error)
	OptionChainOI(ctx context.Context, instrument string) ([]models.StrikeOI, error)
	ResolveExpiry(ctx context.Context, instrument string) (time.Time, error)
	VIX(ctx context.Context) (float64, error)

	SubscribeTicks(token string) error
	UnsubscribeTicks(token string) error
	OnTick(h TickHandler)
}
