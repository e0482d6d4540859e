package model

import "time"

// SignalKind names a discrete event detected between two adjacent bars.
type SignalKind string

const (
	SignalGoldenCross       SignalKind = "golden_cross"
	SignalDeathCross        SignalKind = "death_cross"
	SignalRSIOversoldExit   SignalKind = "rsi_oversold_exit"
	SignalRSIOverboughtExit SignalKind = "rsi_overbought_exit"
)

// Signal is a detected event on a specific bar.
type Signal struct {
	Kind   SignalKind `json:"kind"`
	Ticker string     `json:"ticker,omitempty"`
	Date   time.Time  `json:"date"`
	Value  float64    `json:"value"` // SMA50 for crosses, RSI14 otherwise
	Close  float64    `json:"close"`
}

// Label returns a short human-readable name for the signal kind.
func (k SignalKind) Label() string {
	switch k {
	case SignalGoldenCross:
		return "Golden Cross"
	case SignalDeathCross:
		return "Death Cross"
	case SignalRSIOversoldExit:
		return "RSI oversold entry"
	case SignalRSIOverboughtExit:
		return "RSI overbought entry"
	}
	return string(k)
}
