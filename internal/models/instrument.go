package models

// InstrumentSpec — рыночные параметры инструмента. Страйковый шаг и
// ценовой коридор премии намеренно конфигурируются per-instrument.
type InstrumentSpec struct {
	Name         string  `mapstructure:"name" yaml:"name"`
	Token        string  `mapstructure:"token" yaml:"token"`
	LotSize      int     `mapstructure:"lot_size" yaml:"lot_size"`
	StrikeStep   float64 `mapstructure:"strike_step" yaml:"strike_step"`
	TickSize     float64 `mapstructure:"tick_size" yaml:"tick_size"` // шаг цены премии, NSE 0.05
	PriceBandMin float64 `mapstructure:"price_band_min" yaml:"price_band_min"`
	PriceBandMax float64 `mapstructure:"price_band_max" yaml:"price_band_max"`
	MaxITMSteps  int     `mapstructure:"max_itm_steps" yaml:"max_itm_steps"`
}
