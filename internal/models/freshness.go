package models

import "time"

// Freshness — единый счётчик свежести/ретраев для всех refresh-путей.
type Freshness struct {
	AsOf    time.Time
	Retries int
}

func (f Freshness) IsStale(now time.Time, maxAge time.Duration) bool {
	return f.AsOf.IsZero() || now.Sub(f.AsOf) > maxAge
}

func (f Freshness) ShouldRetry(maxRetries int) bool {
	return f.Retries < maxRetries
}

// Touch — успешное обновление: сбрасываем ретраи.
func (f *Freshness) Touch(now time.Time) {
	f.AsOf = now
	f.Retries = 0
}

func (f *Freshness) Fail() { f.Retries++ }
