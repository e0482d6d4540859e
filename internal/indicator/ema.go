package indicator

import "marketqa/internal/model"

// EMA calculates an Exponential Moving Average with alpha = 2/(period+1).
// The recurrence is seeded with the first close and runs from the first bar,
// but the value is only reported once period bars have been seen; earlier
// values are provisional.
type EMA struct {
	period     int
	multiplier float64
	current    float64
	count      int
}

// NewEMA creates a new EMA indicator with the given period.
func NewEMA(period int) *EMA {
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *EMA) Name() string { return name("EMA", e.period) }

func (e *EMA) Update(bar model.PriceBar) {
	e.count++
	if e.count == 1 {
		e.current = bar.Close
		return
	}
	// EMA = (Price * multiplier) + (EMA_prev * (1 - multiplier))
	e.current = (bar.Close * e.multiplier) + (e.current * (1 - e.multiplier))
}

func (e *EMA) Value() float64 { return e.current }
func (e *EMA) Ready() bool    { return e.count >= e.period }
