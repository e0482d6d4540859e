package indicator

import (
	"math"

	"marketqa/internal/model"
	"marketqa/internal/ringbuf"
)

// trueRange tracks the previous close and yields each bar's true range.
// The first bar has no previous close, so its range is high - low.
type trueRange struct {
	seen      bool
	prevClose float64
}

func (t *trueRange) next(bar model.PriceBar) float64 {
	tr := bar.High - bar.Low
	if t.seen {
		tr = math.Max(tr, math.Max(math.Abs(bar.High-t.prevClose), math.Abs(bar.Low-t.prevClose)))
	}
	t.seen = true
	t.prevClose = bar.Close
	return tr
}

// ATR calculates the Average True Range as a simple rolling mean of true
// ranges.
type ATR struct {
	period  int
	tr      trueRange
	win     *ringbuf.Window
	current float64
}

// NewATR creates a new ATR indicator with the given period.
func NewATR(period int) *ATR {
	return &ATR{
		period: period,
		win:    ringbuf.New(period),
	}
}

func (a *ATR) Name() string { return name("ATR", a.period) }

func (a *ATR) Update(bar model.PriceBar) {
	a.win.Push(a.tr.next(bar))
	if m, ok := a.win.Mean(); ok {
		a.current = m
	}
}

func (a *ATR) Value() float64 { return a.current }
func (a *ATR) Ready() bool    { return a.win.Full() }
