package indicator

import (
	"marketqa/internal/model"
	"marketqa/internal/ringbuf"
)

// RSI calculates the Relative Strength Index from simple rolling means of
// gains and losses over the last period close-to-close deltas.
//
// Zero-loss windows: all gains gives 100, no movement at all gives 50.
type RSI struct {
	period    int
	count     int
	prevClose float64
	gains     *ringbuf.Window
	losses    *ringbuf.Window
	current   float64
}

// NewRSI creates a new RSI indicator with the given period (typically 14).
func NewRSI(period int) *RSI {
	return &RSI{
		period: period,
		gains:  ringbuf.New(period),
		losses: ringbuf.New(period),
	}
}

func (r *RSI) Name() string { return name("RSI", r.period) }

func (r *RSI) Update(bar model.PriceBar) {
	price := bar.Close
	r.count++

	if r.count == 1 {
		// First bar: just record price, no delta yet
		r.prevClose = price
		return
	}

	delta := price - r.prevClose
	r.prevClose = price

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}
	r.gains.Push(gain)
	r.losses.Push(loss)

	avgGain, ok := r.gains.Mean()
	if !ok {
		return
	}
	avgLoss, _ := r.losses.Mean()
	r.current = rsiFromAverages(avgGain, avgLoss)
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0
		}
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

func (r *RSI) Value() float64 { return r.current }
func (r *RSI) Ready() bool    { return r.gains.Full() }
