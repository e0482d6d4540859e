package indicator

import (
	"fmt"

	"github.com/guregu/null/v6"

	"marketqa/internal/model"
)

// Config specifies the indicator periods. The row columns are named for
// the defaults (SMA50 holds the fast SMA, and so on), so only DefaultConfig
// produces rows whose names match their contents; other periods exercise
// the engine over short series.
type Config struct {
	SMAFast int
	SMASlow int
	EMAFast int
	EMASlow int
	RSI     int
	DMI     int // ATR and ±DI
	ADX     int
}

// DefaultConfig returns SMA 50/200, EMA 10/20 and 14-period RSI, ATR, DMI, ADX.
func DefaultConfig() Config {
	return Config{SMAFast: 50, SMASlow: 200, EMAFast: 10, EMASlow: 20, RSI: 14, DMI: 14, ADX: 14}
}

// Validate rejects non-positive periods and inverted SMA pairs.
func (c Config) Validate() error {
	periods := []struct {
		name string
		v    int
	}{
		{"sma_fast", c.SMAFast}, {"sma_slow", c.SMASlow},
		{"ema_fast", c.EMAFast}, {"ema_slow", c.EMASlow},
		{"rsi", c.RSI}, {"dmi", c.DMI}, {"adx", c.ADX},
	}
	for _, p := range periods {
		if p.v <= 0 {
			return fmt.Errorf("invalid period=%d for %s: must be positive", p.v, p.name)
		}
	}
	if c.SMAFast >= c.SMASlow {
		return fmt.Errorf("sma_fast=%d must be below sma_slow=%d", c.SMAFast, c.SMASlow)
	}
	return nil
}

// Warmup returns the number of bars needed before every field is valid.
func (c Config) Warmup() int {
	n := c.SMASlow
	for _, v := range []int{c.SMAFast, c.EMAFast, c.EMASlow, c.RSI + 1, c.DMI + c.ADX} {
		if v > n {
			n = v
		}
	}
	return n
}

// Engine holds one set of indicator instances for a single series.
// Not safe for concurrent use; Compute builds a fresh Engine per call.
type Engine struct {
	smaFast *SMA
	smaSlow *SMA
	emaFast *EMA
	emaSlow *EMA
	rsi     *RSI
	dmi     *DMI
}

// NewEngine creates an engine for cfg. cfg must be valid.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		smaFast: NewSMA(cfg.SMAFast),
		smaSlow: NewSMA(cfg.SMASlow),
		emaFast: NewEMA(cfg.EMAFast),
		emaSlow: NewEMA(cfg.EMASlow),
		rsi:     NewRSI(cfg.RSI),
		dmi:     NewDMI(cfg.DMI, cfg.ADX),
	}
}

// Process feeds the next bar and returns its row.
func (e *Engine) Process(bar model.PriceBar) model.IndicatorRow {
	e.smaFast.Update(bar)
	e.smaSlow.Update(bar)
	e.emaFast.Update(bar)
	e.emaSlow.Update(bar)
	e.rsi.Update(bar)
	e.dmi.Update(bar)

	atr := e.dmi.ATR()
	return model.IndicatorRow{
		PriceBar: bar,
		SMA50:    valueOf(e.smaFast),
		SMA200:   valueOf(e.smaSlow),
		EMA10:    valueOf(e.emaFast),
		EMA20:    valueOf(e.emaSlow),
		RSI14:    valueOf(e.rsi),
		ATR14:    valueOf(atr),
		PlusDI:   null.NewFloat(e.dmi.PlusDI(), e.dmi.DIReady()),
		MinusDI:  null.NewFloat(e.dmi.MinusDI(), e.dmi.DIReady()),
		DX:       null.NewFloat(e.dmi.DX(), e.dmi.DIReady()),
		ADX14:    valueOf(e.dmi),
	}
}

func valueOf(ind Indicator) null.Float {
	return null.NewFloat(ind.Value(), ind.Ready())
}

// Compute returns one row per bar using the default periods. bars must be
// in ascending date order; the input is not modified.
func Compute(bars []model.PriceBar) []model.IndicatorRow {
	return ComputeWith(DefaultConfig(), bars)
}

// ComputeWith is Compute with explicit periods. An invalid cfg falls back
// to the defaults.
func ComputeWith(cfg Config, bars []model.PriceBar) []model.IndicatorRow {
	if err := cfg.Validate(); err != nil {
		cfg = DefaultConfig()
	}
	e := NewEngine(cfg)
	rows := make([]model.IndicatorRow, len(bars))
	for i, b := range bars {
		rows[i] = e.Process(b)
	}
	return rows
}
