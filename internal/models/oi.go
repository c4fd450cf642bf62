package models

import "time"

// StrikeOI — открытый интерес по одному страйку из опционной цепочки.
type StrikeOI struct {
	Strike     float64 `json:"strike"`
	CallOI     float64 `json:"call_oi"`
	PutOI      float64 `json:"put_oi"`
	CallVolume float64 `json:"call_volume"`
	PutVolume  float64 `json:"put_volume"`
	CallLTP    float64 `json:"call_ltp"`
	PutLTP     float64 `json:"put_ltp"`
}

// OISnapshot — агрегат по цепочке, дифф против предыдущего снапшота.
// Храним ровно один на инструмент, перезаписывается каждым refresh.
type OISnapshot struct {
	Instrument      string    `json:"instrument"`
	TotalCallOI     float64   `json:"total_call_oi"`
	TotalPutOI      float64   `json:"total_put_oi"`
	PutCallRatio    float64   `json:"pcr"`
	CallOIChangePct float64   `json:"call_oi_change_pct"`
	PutOIChangePct  float64   `json:"put_oi_change_pct"`
	PCRShift        float64   `json:"pcr_shift"`
	Timestamp       time.Time `json:"timestamp"`
}

// OIPattern — классификация изменения OI.
type OIPattern string

const (
	OICallWriting   OIPattern = "CALL_WRITING"
	OIPutWriting    OIPattern = "PUT_WRITING"
	OICallUnwinding OIPattern = "CALL_UNWINDING"
	OIPutUnwinding  OIPattern = "PUT_UNWINDING"
	OIFakeBreakout  OIPattern = "FAKE_BREAKOUT"
	OIFakeBreakdown OIPattern = "FAKE_BREAKDOWN"
	OIWriterTrap    OIPattern = "WRITER_TRAP"
	OINeutral       OIPattern = "NEUTRAL"
)

// OIAnalysis — вердикт OI-анализатора.
type OIAnalysis struct {
	Instrument string    `json:"instrument"`
	Bias       Bias      `json:"bias"`
	Pattern    OIPattern `json:"pattern"`
	Confidence float64   `json:"confidence"` // 0..100
	Support    float64   `json:"support"`    // страйк с максимальным put OI
	Resistance float64   `json:"resistance"` // страйк с максимальным call OI
	Tradable   bool      `json:"tradable"`   // false ниже порога уверенности
	Reason     string    `json:"reason"`
	At         time.Time `json:"at"`
}
