package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// StrategyParams — параметры одной стратегии из strategies.yaml.
type StrategyParams struct {
	Enabled        bool          `yaml:"enabled"`
	WindowStart    string        `yaml:"window_start"` // "09:20"
	WindowEnd      string        `yaml:"window_end"`   // "15:00"
	Cooldown       time.Duration `yaml:"cooldown"`
	BaseConfidence float64       `yaml:"base_confidence"`
	RiskPercent    float64       `yaml:"risk_percent"`
	MaxVIX         float64       `yaml:"max_vix"`         // гейт волатильности
	VolumeFactor   float64       `yaml:"volume_factor"`   // мин. доля от среднего объёма
	StrikeOffset   int           `yaml:"strike_offset"`   // подсказка ITM-смещения
	Product        string        `yaml:"product"`         // INT | CF
}

// StrategiesConfig — карта strategyID -> параметры.
type StrategiesConfig struct {
	Strategies map[string]StrategyParams `yaml:"strategies"`
}

// LoadStrategies читает strategies.yaml тем же декодером, что и раньше
// читался основной конфиг.
func LoadStrategies(path string) (*StrategiesConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open strategies file")
	}
	defer func() { _ = file.Close() }()

	var sc StrategiesConfig
	if err := yaml.NewDecoder(file).Decode(&sc); err != nil {
		return nil, errors.Wrap(err, "decode strategies yaml")
	}

	for id, p := range sc.Strategies {
		if p.Cooldown <= 0 {
			p.Cooldown = 15 * time.Minute
		}
		if p.VolumeFactor <= 0 {
			p.VolumeFactor = 0.6
		}
		if p.RiskPercent <= 0 {
			p.RiskPercent = 10.0
		}
		if p.Product == "" {
			p.Product = "INT"
		}
		sc.Strategies[id] = p
	}

	return &sc, nil
}

// Get — параметры стратегии; дефолты, если стратегия не описана в файле.
func (sc *StrategiesConfig) Get(id string) StrategyParams {
	if sc != nil {
		if p, ok := sc.Strategies[id]; ok {
			return p
		}
	}
	return StrategyParams{
		Enabled:        true,
		WindowStart:    "09:20",
		WindowEnd:      "15:00",
		Cooldown:       15 * time.Minute,
		BaseConfidence: 50,
		RiskPercent:    10.0,
		MaxVIX:         28,
		VolumeFactor:   0.6,
		Product:        "INT",
	}
}
