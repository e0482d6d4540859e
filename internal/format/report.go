package format

import (
	"fmt"
	"strings"

	"github.com/guregu/null/v6"

	"marketqa/internal/model"
	"marketqa/internal/signals"
)

// RSI levels used for the closing condition line of a report.
const (
	rsiOverboughtLine = 70.0
	rsiOversoldLine   = 30.0
)

// Report renders the technical-analysis summary for the last row of series.
// sigs should be the signals that fall inside series. An empty series gives
// an empty string.
func Report(ticker string, series []model.IndicatorRow, sigs []model.Signal) string {
	if len(series) == 0 {
		return ""
	}
	last := series[len(series)-1]

	var b strings.Builder
	fmt.Fprintf(&b, "Technical Analysis Summary for %s:\n\n", ticker)
	fmt.Fprintf(&b, "Current Price: $%.2f\n", last.Close)
	fmt.Fprintf(&b, "RSI: %s\n", fixed2(last.RSI14))
	fmt.Fprintf(&b, "ADX: %s\n\n", fixed2(last.ADX14))

	switch {
	case signals.Has(sigs, model.SignalGoldenCross):
		b.WriteString("Signal: Golden Cross detected! Bullish signal.\n")
	case signals.Has(sigs, model.SignalDeathCross):
		b.WriteString("Signal: Death Cross detected! Bearish signal.\n")
	}

	for _, s := range sigs {
		switch s.Kind {
		case model.SignalRSIOversoldExit, model.SignalRSIOverboughtExit:
			fmt.Fprintf(&b, "Signal: %s on %s (%.2f)\n", s.Kind.Label(), s.Date.Format("2006-01-02"), s.Value)
		}
	}

	if last.RSI14.Valid {
		switch {
		case last.RSI14.Float64 > rsiOverboughtLine:
			b.WriteString("RSI indicates overbought conditions.\n")
		case last.RSI14.Float64 < rsiOversoldLine:
			b.WriteString("RSI indicates oversold conditions.\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func fixed2(v null.Float) string {
	if !v.Valid {
		return Missing
	}
	return fmt.Sprintf("%.2f", v.Float64)
}

// SeriesTable renders an indicator series as a table, one row per bar.
func SeriesTable(series []model.IndicatorRow) string {
	headers := []string{"Date", "Close", "SMA50", "SMA200", "EMA10", "EMA20", "RSI14", "ATR14", "+DI", "-DI", "ADX14"}
	rows := make([][]any, len(series))
	for i, r := range series {
		rows[i] = []any{r.Date, r.Close, r.SMA50, r.SMA200, r.EMA10, r.EMA20, r.RSI14, r.ATR14, r.PlusDI, r.MinusDI, r.ADX14}
	}
	return Table(headers, rows)
}
