package indicator

import (
	"math"

	"marketqa/internal/model"
	"marketqa/internal/ringbuf"
)

// DMI calculates the Directional Movement Index: +DI, -DI, DX and ADX.
//
// Directional movement starts at the second bar. +DM is the up move when it
// strictly exceeds the down move, -DM the reverse; ties give zero to both.
// ±DI is 100 times the rolling mean of ±DM over the ATR of the same period.
// ADX is the rolling mean of DX over adxPeriod values.
type DMI struct {
	period    int
	adxPeriod int

	atr     *ATR
	plusDM  *ringbuf.Window
	minusDM *ringbuf.Window
	dx      *ringbuf.Window

	count     int
	prevHigh  float64
	prevLow   float64
	plusDI    float64
	minusDI   float64
	dxValue   float64
	adx       float64
	diReady   bool
	adxReady  bool
}

// NewDMI creates a DMI with the given DI period and ADX smoothing period.
func NewDMI(period, adxPeriod int) *DMI {
	return &DMI{
		period:    period,
		adxPeriod: adxPeriod,
		atr:       NewATR(period),
		plusDM:    ringbuf.New(period),
		minusDM:   ringbuf.New(period),
		dx:        ringbuf.New(adxPeriod),
	}
}

func (d *DMI) Name() string { return name("ADX", d.adxPeriod) }

func (d *DMI) Update(bar model.PriceBar) {
	d.atr.Update(bar)
	d.count++

	if d.count == 1 {
		d.prevHigh, d.prevLow = bar.High, bar.Low
		return
	}

	up := math.Max(bar.High-d.prevHigh, 0)
	down := math.Max(d.prevLow-bar.Low, 0)
	d.prevHigh, d.prevLow = bar.High, bar.Low

	pdm, mdm := 0.0, 0.0
	if up > down {
		pdm = up
	}
	if down > up {
		mdm = down
	}
	d.plusDM.Push(pdm)
	d.minusDM.Push(mdm)

	if !d.plusDM.Full() || !d.atr.Ready() {
		return
	}

	atr := d.atr.Value()
	if atr == 0 {
		d.plusDI, d.minusDI = 0, 0
	} else {
		pm, _ := d.plusDM.Mean()
		mm, _ := d.minusDM.Mean()
		d.plusDI = 100 * pm / atr
		d.minusDI = 100 * mm / atr
	}
	d.diReady = true

	sum := d.plusDI + d.minusDI
	if sum == 0 {
		d.dxValue = 0
	} else {
		d.dxValue = 100 * math.Abs(d.plusDI-d.minusDI) / sum
	}

	d.dx.Push(d.dxValue)
	if m, ok := d.dx.Mean(); ok {
		d.adx = m
		d.adxReady = true
	}
}

// Value returns ADX.
func (d *DMI) Value() float64 { return d.adx }

// Ready reports whether ADX is available.
func (d *DMI) Ready() bool { return d.adxReady }

func (d *DMI) PlusDI() float64  { return d.plusDI }
func (d *DMI) MinusDI() float64 { return d.minusDI }
func (d *DMI) DX() float64      { return d.dxValue }
func (d *DMI) DIReady() bool    { return d.diReady }

// ATR exposes the embedded ATR so callers need not compute it twice.
func (d *DMI) ATR() *ATR { return d.atr }
