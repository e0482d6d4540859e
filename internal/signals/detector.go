// Package signals detects crossover and threshold events in an indicator
// series.
//
// Golden cross: SMA50 crosses above SMA200.
// Death cross: SMA50 crosses below SMA200.
// RSI oversold: RSI14 drops below the oversold threshold.
// RSI overbought: RSI14 rises above the overbought threshold.
//
// Every rule compares two adjacent rows, and only when all compared fields
// are valid on both rows.
package signals

import "marketqa/internal/model"

// Thresholds are the RSI levels for the threshold signals.
type Thresholds struct {
	Oversold   float64 `yaml:"oversold" json:"oversold"`
	Overbought float64 `yaml:"overbought" json:"overbought"`
}

// DefaultThresholds returns 20 / 80.
func DefaultThresholds() Thresholds {
	return Thresholds{Oversold: 20, Overbought: 80}
}

// Detect returns the signals in rows using the default thresholds.
func Detect(rows []model.IndicatorRow) []model.Signal {
	return DetectWith(DefaultThresholds(), rows)
}

// DetectWith returns signals in bar order. Each bar yields at most one
// signal per kind. rows must be in ascending date order.
func DetectWith(th Thresholds, rows []model.IndicatorRow) []model.Signal {
	var out []model.Signal
	for i := 1; i < len(rows); i++ {
		prev, cur := &rows[i-1], &rows[i]

		if prev.SMA50.Valid && prev.SMA200.Valid && cur.SMA50.Valid && cur.SMA200.Valid {
			pf, ps := prev.SMA50.Float64, prev.SMA200.Float64
			cf, cs := cur.SMA50.Float64, cur.SMA200.Float64

			// Golden cross: fast crosses above slow
			if pf <= ps && cf > cs {
				out = append(out, newSignal(model.SignalGoldenCross, cur, cf))
			}
			// Death cross: fast crosses below slow
			if pf >= ps && cf < cs {
				out = append(out, newSignal(model.SignalDeathCross, cur, cf))
			}
		}

		if prev.RSI14.Valid && cur.RSI14.Valid {
			pr, cr := prev.RSI14.Float64, cur.RSI14.Float64
			// Flags entry into the oversold zone, not the exit.
			if pr >= th.Oversold && cr < th.Oversold {
				out = append(out, newSignal(model.SignalRSIOversoldExit, cur, cr))
			}
			if pr <= th.Overbought && cr > th.Overbought {
				out = append(out, newSignal(model.SignalRSIOverboughtExit, cur, cr))
			}
		}
	}
	return out
}

func newSignal(kind model.SignalKind, row *model.IndicatorRow, value float64) model.Signal {
	return model.Signal{
		Kind:   kind,
		Ticker: row.Ticker,
		Date:   row.Date,
		Value:  value,
		Close:  row.Close,
	}
}

// OnDate filters signals to those on the given bar date.
func OnDate(sigs []model.Signal, row model.IndicatorRow) []model.Signal {
	var out []model.Signal
	for _, s := range sigs {
		if s.Date.Equal(row.Date) {
			out = append(out, s)
		}
	}
	return out
}

// Has reports whether sigs contains a signal of kind.
func Has(sigs []model.Signal, kind model.SignalKind) bool {
	for _, s := range sigs {
		if s.Kind == kind {
			return true
		}
	}
	return false
}
