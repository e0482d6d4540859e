// Package indicator computes technical indicators over daily price bars.
//
// Each indicator is a small streaming state machine fed one bar at a time
// through Update. Compute drives a full set of them over a series and
// produces one model.IndicatorRow per bar, leaving a field null until that
// indicator's window is fully populated.
package indicator

import (
	"strconv"

	"marketqa/internal/model"
)

// Indicator is the interface for single-valued streaming indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA_50", "RSI_14").
	Name() string

	// Update feeds the next bar in ascending date order.
	Update(bar model.PriceBar)

	// Value returns the current value. Meaningless until Ready.
	Value() float64

	// Ready returns true when the window is fully populated.
	Ready() bool
}

func name(kind string, period int) string {
	return kind + "_" + strconv.Itoa(period)
}
