package service

import (
	"signal_bot/internal/helper"
	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

// Evaluator — одна стратегия. Чистая функция от рыночного среза к
// кандидату: только скоринг, никаких решений о приёме — порог приёма
// применяет оркестратор.
type Evaluator interface {
	ID() string
	Evaluate(v models.MarketView, p config.StrategyParams) *models.StrategyCandidate
}

// Registry — упорядоченный набор стратегий. Добавить стратегию =
// зарегистрировать новую реализацию, диспатч-функций нет.
type Registry struct {
	evals  []Evaluator
	params *config.StrategiesConfig
}

func NewRegistry(sc *config.StrategiesConfig) *Registry {
	r := &Registry{params: sc}
	r.register(NewORBBreakout())
	r.register(NewEMAVWAPConfluence())
	r.register(NewRSIReversion())
	r.register(NewSupertrendMomentum())
	r.register(NewOITrapReversal())
	r.register(NewPullbackContinuation())
	return r
}

func (r *Registry) register(e Evaluator) { r.evals = append(r.evals, e) }

// All — копия списка (оркестратор сам рандомизирует порядок обхода).
func (r *Registry) All() []Evaluator {
	out := make([]Evaluator, len(r.evals))
	copy(out, r.evals)
	return out
}

func (r *Registry) Params(id string) config.StrategyParams { return r.params.Get(id) }

func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.evals))
	for _, e := range r.evals {
		out = append(out, e.ID())
	}
	return out
}

// --- общие гейты; каждая стратегия прогоняет их сама ---

// passGates — окно, VIX-потолок и подтверждение объёмом.
func passGates(v models.MarketView, p config.StrategyParams) bool {
	if !helper.WithinWindow(v.Now, p.WindowStart, p.WindowEnd) {
		return false
	}
	if p.MaxVIX > 0 && v.VIX > p.MaxVIX {
		return false
	}
	return volumeConfirmed(v, p.VolumeFactor)
}

// volumeConfirmed — объём последнего бара не должен быть заметно ниже
// скользящего среднего. Нулевые объёмы (bootstrap-бары) не подтверждают.
func volumeConfirmed(v models.MarketView, factor float64) bool {
	if v.Ind == nil || len(v.Ind.Candles) < 21 {
		return false
	}
	bars := v.Ind.Candles
	last := bars[len(bars)-1]

	var sum float64
	for _, b := range bars[len(bars)-21 : len(bars)-1] {
		sum += b.Volume
	}
	avg := sum / 20
	if avg <= 0 {
		return false
	}
	return last.Volume >= avg*factor
}

func clampConfidence(c float64) float64 {
	if c > 95 {
		return 95
	}
	if c < 0 {
		return 0
	}
	return c
}
