// Package intent classifies a free-text question into a data category.
//
// Classification is a single ordered rule table: each rule is a compiled,
// word-boundary regular expression over the lower-cased text, and the first
// matching rule wins. Text matching no rule is Unclassified.
package intent

import (
	"regexp"
	"strings"

	"marketqa/internal/model"
)

// Rule maps a keyword pattern to an intent.
type Rule struct {
	Intent  model.Intent
	Pattern *regexp.Regexp
}

// rules is evaluated top to bottom; "price target" must resolve to
// fundamentals before the price rule sees "price".
var rules = []Rule{
	{model.IntentFundamentals, words(
		`fundamentals?`, `sectors?`, `valuations?`, `p/e`, `pe ratios?`,
		`forward pe`, `trailing pe`, `target price`, `price targets?`,
		`recommendations?`, `return on equity`, `roe`, `profit margins?`, `margins?`,
	)},
	{model.IntentInsiderTransactions, words(
		`insiders?`, `executives?`, `buys?`, `bought`, `sells?`, `sold`, `transactions?`,
	)},
	{model.IntentOptionsActivity, words(
		`options?`, `calls?`, `puts?`, `strikes?`, `expiry`, `expiration`,
		`open interest`, `implied volatility`, `iv`, `delta`,
	)},
	{model.IntentPriceHistory, words(
		`prices?`, `charts?`, `trends?`, `highs?`, `lows?`, `close`, `closing`,
	)},
	{model.IntentNews, words(
		`news`, `articles?`, `reports?`, `press releases?`, `headlines?`,
	)},
}

// words compiles alternatives into one case-insensitive pattern bounded
// by non-alphanumerics. \b is not used because it cannot bound "p/e".
func words(alts ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(^|[^a-z0-9])(` + strings.Join(alts, "|") + `)([^a-z0-9]|$)`)
}

// Classify returns the intent of text. It never fails; text that matches
// no rule is model.IntentUnclassified.
func Classify(text string) model.Intent {
	lower := strings.ToLower(text)
	for _, r := range rules {
		if r.Pattern.MatchString(lower) {
			return r.Intent
		}
	}
	return model.IntentUnclassified
}

// Rules returns a copy of the rule table in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}
