package indicator

import (
	"marketqa/internal/model"
	"marketqa/internal/ringbuf"
)

// SMA calculates the Simple Moving Average of closes over a rolling window.
// The value is the window sum divided by the period, recomputed from the
// window on every update.
type SMA struct {
	period  int
	win     *ringbuf.Window
	current float64
}

// NewSMA creates a new SMA indicator with the given period.
func NewSMA(period int) *SMA {
	return &SMA{
		period: period,
		win:    ringbuf.New(period),
	}
}

func (s *SMA) Name() string { return name("SMA", s.period) }

func (s *SMA) Update(bar model.PriceBar) {
	s.win.Push(bar.Close)
	if m, ok := s.win.Mean(); ok {
		s.current = m
	}
}

func (s *SMA) Value() float64 { return s.current }
func (s *SMA) Ready() bool    { return s.win.Full() }
