// Package entity extracts a ticker, a time window and an article count from
// a free-text question.
package entity

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"marketqa/internal/model"
)

var (
	parenRe    = regexp.MustCompile(`\(([^)]+)\)`)
	timespanRe = regexp.MustCompile(`(?i)(?:^|[^\d.])(-?\d+(?:\.\d+)?)\s*(days?|months?|years?)\b`)
	integerRe  = regexp.MustCompile(`(?:^|[^\w.-])(\d+)\b`)
)

// stopWords are uppercase tokens that look like tickers but name
// indicators, roles or currencies.
var stopWords = map[string]struct{}{
	"RSI": {}, "ADX": {}, "SMA": {}, "EMA": {}, "ATR": {}, "DMI": {}, "MACD": {},
	"ETF": {}, "CEO": {}, "CFO": {}, "COO": {}, "IPO": {}, "EPS": {}, "ROE": {},
	"PE": {}, "IV": {}, "OI": {}, "USD": {}, "EUR": {}, "GBP": {}, "API": {},
	"OHLC": {}, "OHLCV": {}, "YTD": {}, "AI": {}, "US": {}, "USA": {},
}

// Extract returns the entities found in text. The only error is a
// *model.QueryError of kind MalformedTimespan.
func Extract(text string) (model.Entities, error) {
	ent := model.Entities{WindowDays: model.DefaultWindowDays}

	ent.Ticker, ent.TickerSource = Ticker(text)

	days, span, err := windowDays(text)
	if err != nil {
		return ent, err
	}
	if span != nil {
		ent.WindowDays = days
	}

	if n, ok := articleCount(text, span); ok {
		ent.ArticleCount = &n
	}
	return ent, nil
}

// Ticker finds a ticker in text. A parenthesized group wins; otherwise the
// last fully uppercase token that is not a stop word is used.
func Ticker(text string) (string, model.TickerSource) {
	if m := parenRe.FindStringSubmatch(text); m != nil {
		if t := strings.ToUpper(trimToken(m[1])); t != "" {
			return t, model.TickerParentheses
		}
	}

	fields := strings.Fields(text)
	for i := len(fields) - 1; i >= 0; i-- {
		tok := trimToken(fields[i])
		if looksLikeTicker(tok) {
			return tok, model.TickerUppercase
		}
	}
	return "", model.TickerNone
}

func trimToken(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

func looksLikeTicker(tok string) bool {
	if len(tok) < 2 || len(tok) > 10 {
		return false
	}
	hasLetter := false
	for _, r := range tok {
		switch {
		case r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9', r == '.', r == '-':
		default:
			return false
		}
	}
	if !hasLetter {
		return false
	}
	_, stop := stopWords[tok]
	return !stop
}

// windowDays converts the first timespan phrase into days. span is the
// byte range of the phrase's number, or nil when there is none.
func windowDays(text string) (int, []int, error) {
	m := timespanRe.FindStringSubmatchIndex(text)
	if m == nil {
		return 0, nil, nil
	}
	raw := text[m[2]:m[3]]
	unit := strings.ToLower(text[m[4]:m[5]])

	if strings.Contains(raw, ".") {
		return 0, nil, model.NewQueryError(model.ErrMalformedTimespan, "%s %s is not a whole number", raw, unit)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, nil, model.NewQueryError(model.ErrMalformedTimespan, "%q is out of range", raw).WithCause(err)
	}
	if n <= 0 {
		return 0, nil, model.NewQueryError(model.ErrMalformedTimespan, "%s %s is not positive", raw, unit)
	}

	mult := 1
	switch {
	case strings.HasPrefix(unit, "month"):
		mult = 30
	case strings.HasPrefix(unit, "year"):
		mult = 365
	}
	if n > math.MaxInt32/mult {
		return 0, nil, model.NewQueryError(model.ErrMalformedTimespan, "%s %s is too large", raw, unit)
	}
	return n * mult, []int{m[2], m[3]}, nil
}

// articleCount returns the first integer not consumed by the timespan.
func articleCount(text string, span []int) (int, bool) {
	for _, m := range integerRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[2], m[3]
		if span != nil && start == span[0] && end == span[1] {
			continue
		}
		if inParens(text, start) || decimalAt(text, end) {
			continue
		}
		n, err := strconv.Atoi(text[start:end])
		if err != nil || n <= 0 {
			continue
		}
		return n, true
	}
	return 0, false
}

// decimalAt reports whether a number ending at end continues as a decimal
// fraction.
func decimalAt(text string, end int) bool {
	return end+1 < len(text) && text[end] == '.' && text[end+1] >= '0' && text[end+1] <= '9'
}

// inParens reports whether pos falls inside a parenthesized ticker group.
func inParens(text string, pos int) bool {
	for _, loc := range parenRe.FindAllStringIndex(text, -1) {
		if pos > loc[0] && pos < loc[1] {
			return true
		}
	}
	return false
}
