package model

import (
	"time"

	"github.com/guregu/null/v6"
)

// PriceBar is one daily OHLCV observation for a ticker.
// Date is truncated to UTC midnight.
type PriceBar struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// IndicatorRow is a PriceBar augmented with indicator values. A field is
// null until its window is fully populated.
type IndicatorRow struct {
	PriceBar

	SMA50   null.Float `json:"sma50"`
	SMA200  null.Float `json:"sma200"`
	EMA10   null.Float `json:"ema10"`
	EMA20   null.Float `json:"ema20"`
	RSI14   null.Float `json:"rsi14"`
	ATR14   null.Float `json:"atr14"`
	PlusDI  null.Float `json:"plus_di"`
	MinusDI null.Float `json:"minus_di"`
	DX      null.Float `json:"dx"`
	ADX14   null.Float `json:"adx14"`
}

// ReverseBars reverses bars in place and returns the slice.
func ReverseBars(bars []PriceBar) []PriceBar {
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars
}
