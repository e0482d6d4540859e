package model

// Intent is the category of data a question asks about.
type Intent string

const (
	IntentFundamentals        Intent = "fundamentals"
	IntentInsiderTransactions Intent = "insider_transactions"
	IntentOptionsActivity     Intent = "options_activity"
	IntentPriceHistory        Intent = "price_history"
	IntentNews                Intent = "news"
	IntentUnclassified        Intent = "unclassified"
)

// Intents lists every classifiable intent in rule order. Unclassified is
// the fallback and is not included.
var Intents = []Intent{
	IntentFundamentals,
	IntentInsiderTransactions,
	IntentOptionsActivity,
	IntentPriceHistory,
	IntentNews,
}

// NeedsTicker reports whether fetching this intent requires a ticker.
func (i Intent) NeedsTicker() bool {
	switch i {
	case IntentFundamentals, IntentPriceHistory, IntentNews:
		return true
	}
	return false
}

func (i Intent) String() string { return string(i) }
