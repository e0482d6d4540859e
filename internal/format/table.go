// Package format renders query results as bordered text tables and
// technical-analysis reports. Output is for display only and is never
// parsed back.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/guregu/null/v6"
)

// Missing is rendered for absent cells.
const Missing = "N/A"

// Table renders headers and rows as a bordered, left-aligned table. Each
// column is as wide as its widest cell or header. Rows shorter than the
// header are padded with Missing.
func Table(headers []string, rows [][]any) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}

	cells := make([][]string, len(rows))
	for r, row := range rows {
		cells[r] = make([]string, len(headers))
		for c := range headers {
			var v any
			if c < len(row) {
				v = row[c]
			}
			s := Cell(v)
			cells[r][c] = s
			if n := utf8.RuneCountInString(s); n > widths[c] {
				widths[c] = n
			}
		}
	}

	var b strings.Builder
	border := borderLine(widths)
	b.WriteString(border)
	writeRow(&b, headers, widths)
	b.WriteString(border)
	for _, row := range cells {
		writeRow(&b, row, widths)
	}
	if len(cells) > 0 {
		b.WriteString(border)
	}
	return b.String()
}

func borderLine(widths []int) string {
	var b strings.Builder
	b.WriteByte('+')
	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w+2))
		b.WriteByte('+')
	}
	b.WriteByte('\n')
	return b.String()
}

func writeRow(b *strings.Builder, cells []string, widths []int) {
	b.WriteByte('|')
	for i, s := range cells {
		b.WriteByte(' ')
		b.WriteString(s)
		b.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(s)))
		b.WriteString(" |")
	}
	b.WriteByte('\n')
}

// Cell renders one value. Floats keep at most four decimals with trailing
// zeros trimmed; midnight UTC times render as dates.
func Cell(v any) string {
	switch x := v.(type) {
	case nil:
		return Missing
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return Float(x)
	case float32:
		return Float(float64(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return Time(x)
	case null.Float:
		if !x.Valid {
			return Missing
		}
		return Float(x.Float64)
	case null.String:
		if !x.Valid {
			return Missing
		}
		return x.String
	case null.Int:
		if !x.Valid {
			return Missing
		}
		return strconv.FormatInt(x.Int64, 10)
	case *float64:
		if x == nil {
			return Missing
		}
		return Float(*x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// Float formats f with at most four decimals.
func Float(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Missing
	}
	r := math.Round(f*1e4) / 1e4
	if r == 0 {
		r = 0 // -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// Time renders t as a date when it falls on midnight UTC, RFC 3339 otherwise.
func Time(t time.Time) string {
	u := t.UTC()
	if u.Hour() == 0 && u.Minute() == 0 && u.Second() == 0 && u.Nanosecond() == 0 {
		return u.Format("2006-01-02")
	}
	return u.Format(time.RFC3339)
}
