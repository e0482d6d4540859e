// Package markethours is the US equity (NYSE) trading calendar: weekends
// and full-day exchange holidays, evaluated in New York time.
package markethours

import (
	"time"
	_ "time/tzdata"
)

// ET is the exchange's time zone.
var ET = loadET()

func loadET() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*3600)
	}
	return loc
}

// IsWeekday returns true if t is Mon–Fri in New York.
func IsWeekday(t time.Time) bool {
	wd := t.In(ET).Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// IsHoliday returns true if t's New York date is a full-day exchange
// holiday, as observed.
func IsHoliday(t time.Time) bool {
	et := t.In(ET)
	day := time.Date(et.Year(), et.Month(), et.Day(), 0, 0, 0, 0, time.UTC)
	for _, h := range Holidays(et.Year()) {
		if h.Equal(day) {
			return true
		}
	}
	return false
}

// IsTradingDay returns true if t is a weekday and not a holiday.
func IsTradingDay(t time.Time) bool {
	return IsWeekday(t) && !IsHoliday(t)
}

// LastTradingDay returns the New York date (midnight UTC) of the latest
// trading day on or before t.
func LastTradingDay(t time.Time) time.Time {
	et := t.In(ET)
	d := time.Date(et.Year(), et.Month(), et.Day(), 12, 0, 0, 0, ET)
	for i := 0; i < 10 && !IsTradingDay(d); i++ { // max 10 days back (holidays + weekends)
		d = d.AddDate(0, 0, -1)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// Holidays returns the observed full-day holidays of year, in date order,
// as midnight UTC dates. A holiday on Saturday is observed the Friday
// before, on Sunday the Monday after. New Year's Day falling on a Saturday
// is not observed.
func Holidays(year int) []time.Time {
	date := func(m time.Month, d int) time.Time { return time.Date(year, m, d, 0, 0, 0, 0, time.UTC) }

	var out []time.Time
	if ny := date(time.January, 1); ny.Weekday() != time.Saturday {
		out = append(out, observed(ny))
	}
	out = append(out,
		nthWeekday(year, time.January, time.Monday, 3),  // Martin Luther King Jr. Day
		nthWeekday(year, time.February, time.Monday, 3), // Washington's Birthday
		easter(year).AddDate(0, 0, -2),                  // Good Friday
		lastWeekday(year, time.May, time.Monday),        // Memorial Day
	)
	if year >= 2022 {
		out = append(out, observed(date(time.June, 19))) // Juneteenth
	}
	out = append(out,
		observed(date(time.July, 4)),
		nthWeekday(year, time.September, time.Monday, 1),  // Labor Day
		nthWeekday(year, time.November, time.Thursday, 4), // Thanksgiving
		observed(date(time.December, 25)),
	)
	return out
}

func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

func nthWeekday(year int, m time.Month, wd time.Weekday, n int) time.Time {
	d := time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(wd) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset+7*(n-1))
}

func lastWeekday(year int, m time.Month, wd time.Weekday) time.Time {
	d := time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC)
	offset := (int(d.Weekday()) - int(wd) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// easter returns Easter Sunday (anonymous Gregorian computus).
func easter(year int) time.Time {
	a := year % 19
	b, c := year/100, year%100
	d, e := b/4, b%4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i, k := c/4, c%4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
