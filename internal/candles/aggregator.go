package candles

import (
	"sync"
	"time"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
)

// Aggregator сворачивает поток тиков в свечи фиксированной ширины.
// На инструмент — один ряд: запечатанные бары в кольцевом буфере плюс
// текущий незакрытый бар. Никогда не блокирует и не ходит в сеть.
type Aggregator struct {
	interval time.Duration
	maxBars  int

	mu     sync.Mutex
	series map[string]*series
}

type series struct {
	sealed []models.Candle
	open   *models.Candle
}

func NewAggregator(interval time.Duration, maxBars int) *Aggregator {
	if interval <= 0 {
		interval = time.Minute
	}
	if maxBars <= 0 {
		maxBars = 400
	}
	return &Aggregator{
		interval: interval,
		maxBars:  maxBars,
		series:   make(map[string]*series),
	}
}

// FeedTick — добавляет тик в текущий бакет; на границе бакета
// запечатывает предыдущий бар.
func (a *Aggregator) FeedTick(instrument string, price, qty float64, at time.Time) {
	if price <= 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.get(instrument)
	bucket := helper.BucketStart(at, a.interval)

	if s.open == nil || s.open.Timestamp.Before(bucket) {
		// rollover: старый бар уходит в sealed
		if s.open != nil {
			a.seal(s)
		}
		s.open = &models.Candle{
			Timestamp: bucket,
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    qty,
		}
		return
	}

	// тик в уже закрытый бакет игнорируем — бары иммутабельны
	if at.Before(s.open.Timestamp) {
		return
	}

	if price > s.open.High {
		s.open.High = price
	}
	if price < s.open.Low {
		s.open.Low = price
	}
	s.open.Close = price
	s.open.Volume += qty
}

// Candles — запечатанные бары плюс текущий, копией.
func (a *Aggregator) Candles(instrument string) []models.Candle {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.series[instrument]
	if !ok {
		return nil
	}
	out := make([]models.Candle, 0, len(s.sealed)+1)
	out = append(out, s.sealed...)
	if s.open != nil {
		out = append(out, *s.open)
	}
	return out
}

func (a *Aggregator) Len(instrument string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.series[instrument]
	if !ok {
		return 0
	}
	n := len(s.sealed)
	if s.open != nil {
		n++
	}
	return n
}

// SeedHistory — заливка исторических свечей (warmup из гейтвея).
// Вызывается до старта тикового потока.
func (a *Aggregator) SeedHistory(instrument string, bars []models.Candle) {
	if len(bars) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.get(instrument)
	s.sealed = append(s.sealed[:0], bars...)
	if over := len(s.sealed) - a.maxBars; over > 0 {
		s.sealed = append(s.sealed[:0:0], s.sealed[over:]...)
	}
	s.open = nil
}

// Bootstrap — синтез короткого ряда из одной seed-цены, когда история
// недоступна. Бары плоские, объём нулевой: стратегии с гейтом по объёму
// всё равно не заведутся, а расчёт EMA/ATR получает точку опоры.
func (a *Aggregator) Bootstrap(instrument string, seed float64, bars int, at time.Time) {
	if seed <= 0 || bars <= 0 {
		return
	}
	synthetic := make([]models.Candle, 0, bars)
	start := helper.BucketStart(at, a.interval).Add(-time.Duration(bars) * a.interval)
	for i := 0; i < bars; i++ {
		synthetic = append(synthetic, models.Candle{
			Timestamp: start.Add(time.Duration(i) * a.interval),
			Open:      seed,
			High:      seed,
			Low:       seed,
			Close:     seed,
		})
	}
	a.SeedHistory(instrument, synthetic)
}

// Reset — чистит все ряды (используется на stop: кэши строятся заново).
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.series = make(map[string]*series)
}

func (a *Aggregator) get(instrument string) *series {
	s, ok := a.series[instrument]
	if !ok {
		s = &series{}
		a.series[instrument] = s
	}
	return s
}

func (a *Aggregator) seal(s *series) {
	s.sealed = append(s.sealed, *s.open)
	if len(s.sealed) > a.maxBars {
		// вытесняем самый старый бар
		s.sealed = append(s.sealed[:0:0], s.sealed[len(s.sealed)-a.maxBars:]...)
	}
	s.open = nil
}
