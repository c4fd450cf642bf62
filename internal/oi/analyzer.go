package oi

import (
	"fmt"
	"math"
	"sync"
	"time"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

// Analyzer — анализатор открытого интереса опционной цепочки.
// Держит ровно один предыдущий снапшот на инструмент; каждый вызов
// Analyze диффает текущую цепочку против него и перезаписывает кэш.
type Analyzer struct {
	cfg config.OIThresholds

	mu   sync.Mutex
	prev map[string]models.OISnapshot
}

func NewAnalyzer(cfg config.OIThresholds) *Analyzer {
	if cfg.StrongChangePct <= 0 {
		cfg.StrongChangePct = 5.0
	}
	if cfg.TrapBothUpPct <= 0 {
		cfg.TrapBothUpPct = 3.0
	}
	if cfg.WriterTrapPct <= 0 {
		cfg.WriterTrapPct = 8.0
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 40
	}
	if cfg.TrapPenalty <= 0 {
		cfg.TrapPenalty = 25
	}
	return &Analyzer{cfg: cfg, prev: make(map[string]models.OISnapshot)}
}

// Reset — сброс кэша снапшотов (на stop движка).
func (a *Analyzer) Reset() {
	a.mu.Lock()
	a.prev = make(map[string]models.OISnapshot)
	a.mu.Unlock()
}

// Analyze — вердикт по цепочке. priceChangePct — изменение спота с
// прошлого refresh, нужно для матрицы бычий/медвежий и ловушек.
func (a *Analyzer) Analyze(instrument string, strikes []models.StrikeOI, spot, priceChangePct float64, now time.Time) (models.OIAnalysis, models.OISnapshot) {
	out := models.OIAnalysis{
		Instrument: instrument,
		Bias:       models.BiasNeutral,
		Pattern:    models.OINeutral,
		At:         now,
	}

	snap := models.OISnapshot{Instrument: instrument, Timestamp: now}
	if len(strikes) == 0 {
		out.Reason = "empty option chain"
		return out, snap
	}

	var maxCallOI, maxPutOI float64
	for _, s := range strikes {
		snap.TotalCallOI += s.CallOI
		snap.TotalPutOI += s.PutOI
		if s.CallOI > maxCallOI {
			maxCallOI = s.CallOI
			out.Resistance = s.Strike
		}
		if s.PutOI > maxPutOI {
			maxPutOI = s.PutOI
			out.Support = s.Strike
		}
	}
	if snap.TotalCallOI > 0 {
		snap.PutCallRatio = snap.TotalPutOI / snap.TotalCallOI
	}

	a.mu.Lock()
	prev, hasPrev := a.prev[instrument]
	a.prev[instrument] = snap
	a.mu.Unlock()

	if !hasPrev {
		out.Reason = "first snapshot, no baseline"
		return out, snap
	}

	if prev.TotalCallOI > 0 {
		snap.CallOIChangePct = (snap.TotalCallOI - prev.TotalCallOI) / prev.TotalCallOI * 100
	}
	if prev.TotalPutOI > 0 {
		snap.PutOIChangePct = (snap.TotalPutOI - prev.TotalPutOI) / prev.TotalPutOI * 100
	}
	snap.PCRShift = snap.PutCallRatio - prev.PutCallRatio

	a.classify(&out, snap, priceChangePct)
	return out, snap
}

// classify — матрица цена×OI. Порядок проверок важен: ловушки первыми,
// они штрафуют уверенность, а не инвертируют направление.
func (a *Analyzer) classify(out *models.OIAnalysis, snap models.OISnapshot, pricePct float64) {
	callUp := snap.CallOIChangePct
	putUp := snap.PutOIChangePct

	conf := 0.0
	priceUp := pricePct > 0.05
	priceDown := pricePct < -0.05

	switch {
	// обе ноги растут, цена идёт в одну сторону — ловушка
	case callUp >= a.cfg.TrapBothUpPct && putUp >= a.cfg.TrapBothUpPct && priceUp:
		out.Pattern = models.OIFakeBreakout
		conf = 20 + math.Min(callUp+putUp, 30) - a.cfg.TrapPenalty
		out.Bias = models.BiasNeutral
		out.Reason = fmt.Sprintf("call +%.1f%% и put +%.1f%% при росте цены: ложный пробой", callUp, putUp)

	case callUp >= a.cfg.TrapBothUpPct && putUp >= a.cfg.TrapBothUpPct && priceDown:
		out.Pattern = models.OIFakeBreakdown
		conf = 20 + math.Min(callUp+putUp, 30) - a.cfg.TrapPenalty
		out.Bias = models.BiasNeutral
		out.Reason = fmt.Sprintf("call +%.1f%% и put +%.1f%% при падении цены: ложный пролив", callUp, putUp)

	// сильный бычий: цена вверх, call OI растёт, put OI падает
	case priceUp && callUp >= a.cfg.StrongChangePct && putUp <= -a.cfg.StrongChangePct:
		out.Pattern = models.OIPutUnwinding
		out.Bias = models.BiasBullish
		conf = 55 + math.Min(callUp-putUp, 40)
		out.Reason = fmt.Sprintf("цена вверх, call OI +%.1f%%, put OI %.1f%%: strong bullish", callUp, putUp)

	// сильный медвежий: цена вниз, call OI падает, put OI растёт
	case priceDown && callUp <= -a.cfg.StrongChangePct && putUp >= a.cfg.StrongChangePct:
		out.Pattern = models.OICallUnwinding
		out.Bias = models.BiasBearish
		conf = 55 + math.Min(putUp-callUp, 40)
		out.Reason = fmt.Sprintf("цена вниз, call OI %.1f%%, put OI +%.1f%%: strong bearish", callUp, putUp)

	// writer trap: тяжёлая односторонняя запись без подтверждения ценой
	case math.Abs(pricePct) < 0.05 && callUp >= a.cfg.WriterTrapPct && putUp < a.cfg.TrapBothUpPct:
		out.Pattern = models.OIWriterTrap
		out.Bias = models.BiasBullish // продавцы коллов без движения — ждём вынос вверх
		conf = 45 + math.Min(callUp, 25)
		out.Reason = fmt.Sprintf("call writing %.1f%% без движения цены: writer trap, разворот вверх", callUp)

	case math.Abs(pricePct) < 0.05 && putUp >= a.cfg.WriterTrapPct && callUp < a.cfg.TrapBothUpPct:
		out.Pattern = models.OIWriterTrap
		out.Bias = models.BiasBearish
		conf = 45 + math.Min(putUp, 25)
		out.Reason = fmt.Sprintf("put writing %.1f%% без движения цены: writer trap, разворот вниз", putUp)

	// умеренные: по знаку PCR-сдвига
	case putUp >= a.cfg.StrongChangePct && putUp > callUp:
		out.Pattern = models.OIPutWriting
		out.Bias = models.BiasBullish
		conf = 42 + math.Min(putUp, 20)
		out.Reason = fmt.Sprintf("put writing +%.1f%%: поддержка укрепляется", putUp)

	case callUp >= a.cfg.StrongChangePct && callUp > putUp:
		out.Pattern = models.OICallWriting
		out.Bias = models.BiasBearish
		conf = 42 + math.Min(callUp, 20)
		out.Reason = fmt.Sprintf("call writing +%.1f%%: сопротивление укрепляется", callUp)

	default:
		out.Pattern = models.OINeutral
		out.Bias = models.BiasNeutral
		conf = 25
		out.Reason = "нет выраженного сдвига OI"
	}

	if conf < 0 {
		conf = 0 // сильные противоречия — пол на нуле
	}
	if conf > 100 {
		conf = 100
	}
	out.Confidence = conf
	out.Tradable = conf >= a.cfg.MinConfidence &&
		out.Pattern != models.OIFakeBreakout && out.Pattern != models.OIFakeBreakdown
}
