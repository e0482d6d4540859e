package indicator

import (
	"math"
	"testing"

	"marketqa/internal/model"
)

// risingBars returns n bars with close = 100+i, high = close+1, low = close-1.
func risingBars(n int) []model.PriceBar {
	bars := make([]model.PriceBar, n)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = hlc(i, c+1, c-1, c)
	}
	return bars
}

func TestCompute_ValidityIndexes(t *testing.T) {
	rows := Compute(risingBars(250))
	if len(rows) != 250 {
		t.Fatalf("expected 250 rows, got %d", len(rows))
	}

	first := func(get func(model.IndicatorRow) bool) int {
		for i, r := range rows {
			if get(r) {
				return i
			}
		}
		return -1
	}

	checks := []struct {
		name string
		want int
		get  func(model.IndicatorRow) bool
	}{
		{"SMA50", 49, func(r model.IndicatorRow) bool { return r.SMA50.Valid }},
		{"SMA200", 199, func(r model.IndicatorRow) bool { return r.SMA200.Valid }},
		{"EMA10", 9, func(r model.IndicatorRow) bool { return r.EMA10.Valid }},
		{"EMA20", 19, func(r model.IndicatorRow) bool { return r.EMA20.Valid }},
		{"RSI14", 14, func(r model.IndicatorRow) bool { return r.RSI14.Valid }},
		{"ATR14", 13, func(r model.IndicatorRow) bool { return r.ATR14.Valid }},
		{"PlusDI", 14, func(r model.IndicatorRow) bool { return r.PlusDI.Valid }},
		{"MinusDI", 14, func(r model.IndicatorRow) bool { return r.MinusDI.Valid }},
		{"DX", 14, func(r model.IndicatorRow) bool { return r.DX.Valid }},
		{"ADX14", 27, func(r model.IndicatorRow) bool { return r.ADX14.Valid }},
	}
	for _, c := range checks {
		if got := first(c.get); got != c.want {
			t.Errorf("%s: first valid index = %d, want %d", c.name, got, c.want)
		}
	}

	// Once valid, a field stays valid.
	for i := 200; i < len(rows); i++ {
		r := rows[i]
		if !r.SMA50.Valid || !r.SMA200.Valid || !r.RSI14.Valid || !r.ADX14.Valid {
			t.Fatalf("row %d: expected all fields valid", i)
		}
	}
}

func TestCompute_RisingSeriesValues(t *testing.T) {
	rows := Compute(risingBars(250))
	last := rows[249]

	// SMA50 of closes 300..349 = 324.5, SMA200 of 150..349 = 249.5
	assertClose(t, "SMA50", last.SMA50.Float64, 324.5, 1e-9)
	assertClose(t, "SMA200", last.SMA200.Float64, 249.5, 1e-9)

	// Every delta is +1, so no losses.
	assertClose(t, "RSI14", last.RSI14.Float64, 100, 1e-9)

	// TR is always 2 (high-low = 2, |high-prevClose| = 2), +DM = 1, -DM = 0.
	assertClose(t, "ATR14", last.ATR14.Float64, 2, 1e-9)
	assertClose(t, "+DI", last.PlusDI.Float64, 50, 1e-9)
	assertClose(t, "-DI", last.MinusDI.Float64, 0, 1e-9)
	assertClose(t, "ADX14", last.ADX14.Float64, 100, 1e-9)

	// EMA of a linear series lags the close by (1-a)/a = (n-1)/2 in steady state.
	assertClose(t, "EMA10 lag", last.Close-last.EMA10.Float64, 4.5, 1e-6)
	assertClose(t, "EMA20 lag", last.Close-last.EMA20.Float64, 9.5, 1e-4)
}

func TestCompute_ShortSeries(t *testing.T) {
	rows := Compute(risingBars(12))
	for i, r := range rows {
		if r.SMA50.Valid || r.SMA200.Valid || r.RSI14.Valid || r.ATR14.Valid || r.ADX14.Valid {
			t.Errorf("row %d: long-window field should be null on a 12-bar series", i)
		}
	}
	if !rows[9].EMA10.Valid || rows[8].EMA10.Valid {
		t.Error("EMA10 should become valid exactly at index 9")
	}
	if rows[11].EMA20.Valid {
		t.Error("EMA20 should be null on a 12-bar series")
	}
}

func TestCompute_EmptyAndDoesNotMutate(t *testing.T) {
	if rows := Compute(nil); len(rows) != 0 {
		t.Fatalf("expected no rows for empty input, got %d", len(rows))
	}

	bars := risingBars(30)
	orig := make([]model.PriceBar, len(bars))
	copy(orig, bars)
	_ = Compute(bars)
	for i := range bars {
		if bars[i] != orig[i] {
			t.Fatalf("input bar %d was modified", i)
		}
	}
}

func TestCompute_Deterministic(t *testing.T) {
	bars := risingBars(260)
	a := Compute(bars)
	b := Compute(bars)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("row %d differs between runs", i)
		}
	}
}

func TestComputeWith_CustomPeriods(t *testing.T) {
	cfg := Config{SMAFast: 2, SMASlow: 3, EMAFast: 2, EMASlow: 3, RSI: 2, DMI: 2, ADX: 2}
	rows := ComputeWith(cfg, risingBars(5))
	if !rows[1].SMA50.Valid || rows[1].SMA200.Valid {
		t.Error("fast SMA(2) should be valid at index 1, slow SMA(3) not yet")
	}
	// closes 102, 103, 104 → 103
	assertClose(t, "SMA(3) index 4", rows[4].SMA200.Float64, 103, 1e-9)
	if !rows[3].ADX14.Valid || rows[2].ADX14.Valid {
		t.Error("ADX with DMI=2, ADX=2 should become valid at index 3")
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	bad := DefaultConfig()
	bad.RSI = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero RSI period")
	}
	bad = DefaultConfig()
	bad.SMAFast, bad.SMASlow = 200, 50
	if err := bad.Validate(); err == nil {
		t.Error("expected error for inverted SMA periods")
	}
	if w := DefaultConfig().Warmup(); w != 200 {
		t.Errorf("Warmup() = %d, want 200", w)
	}
}

func TestCompute_FiveBarsAllNull(t *testing.T) {
	rows := Compute(risingBars(5))
	for i, r := range rows {
		fields := []struct {
			name  string
			valid bool
		}{
			{"SMA50", r.SMA50.Valid}, {"SMA200", r.SMA200.Valid},
			{"EMA10", r.EMA10.Valid}, {"EMA20", r.EMA20.Valid},
			{"RSI14", r.RSI14.Valid}, {"ATR14", r.ATR14.Valid},
			{"PlusDI", r.PlusDI.Valid}, {"MinusDI", r.MinusDI.Valid},
			{"DX", r.DX.Valid}, {"ADX14", r.ADX14.Valid},
		}
		for _, f := range fields {
			if f.valid {
				t.Errorf("row %d: %s should be null on a 5-bar series", i, f.name)
			}
		}
	}
}

func TestCompute_FlatSeriesRSIIsNeutral(t *testing.T) {
	bars := make([]model.PriceBar, 40)
	for i := range bars {
		bars[i] = hlc(i, 101, 99, 100)
	}
	rows := Compute(bars)
	for i, r := range rows {
		if i < 14 {
			if r.RSI14.Valid {
				t.Errorf("row %d: RSI14 should be null before index 14", i)
			}
			continue
		}
		if !r.RSI14.Valid {
			t.Fatalf("row %d: RSI14 should be valid from index 14", i)
		}
		assertClose(t, "RSI14 flat", r.RSI14.Float64, 50, 0)
	}
}

func TestCompute_SMA50IsTrailingMean(t *testing.T) {
	bars := make([]model.PriceBar, 260)
	closes := make([]float64, len(bars))
	for i := range bars {
		closes[i] = 100 + 0.25*float64(i) + 7*math.Sin(float64(i))
		bars[i] = hlc(i, closes[i]+1, closes[i]-1, closes[i])
	}
	rows := Compute(bars)
	for i, r := range rows {
		if i < 49 {
			if r.SMA50.Valid {
				t.Errorf("row %d: SMA50 should be null before index 49", i)
			}
			continue
		}
		sum := 0.0
		for _, c := range closes[i-49 : i+1] {
			sum += c
		}
		if !r.SMA50.Valid {
			t.Fatalf("row %d: SMA50 should be valid", i)
		}
		assertClose(t, "SMA50", r.SMA50.Float64, sum/50, 1e-9)
	}
}

func TestEngine_DefaultPeriodsMatchColumns(t *testing.T) {
	e := NewEngine(DefaultConfig())
	got := []string{
		e.smaFast.Name(), e.smaSlow.Name(), e.emaFast.Name(), e.emaSlow.Name(),
		e.rsi.Name(), e.dmi.ATR().Name(), e.dmi.Name(),
	}
	want := []string{"SMA_50", "SMA_200", "EMA_10", "EMA_20", "RSI_14", "ATR_14", "ADX_14"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("indicator %d named %s, want %s to match its row column", i, got[i], want[i])
		}
	}
}
