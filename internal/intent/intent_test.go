package intent

import (
	"testing"

	"marketqa/internal/model"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		text string
		want model.Intent
	}{
		{"What is the P/E ratio of (AAPL)?", model.IntentFundamentals},
		{"Show fundamentals for (MSFT)", model.IntentFundamentals},
		{"What is the price target for (NVDA)?", model.IntentFundamentals},
		{"profit margin of (KO)", model.IntentFundamentals},
		{"Any insider transactions in (TSLA)?", model.IntentInsiderTransactions},
		{"Which executives sold shares recently", model.IntentInsiderTransactions},
		{"Unusual options activity on (SPY)", model.IntentOptionsActivity},
		{"open interest for calls", model.IntentOptionsActivity},
		{"Show me the price history of (AAPL) for 3 months", model.IntentPriceHistory},
		{"closing chart for (IBM)", model.IntentPriceHistory},
		{"Latest news about (GOOG)", model.IntentNews},
		{"Give me 3 headlines on (AMZN)", model.IntentNews},
		{"hello there", model.IntentUnclassified},
		{"", model.IntentUnclassified},
	}
	for _, tc := range cases {
		if got := Classify(tc.text); got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestClassify_FirstRuleWins(t *testing.T) {
	// "price" and "news" both match; price is earlier in the table.
	if got := Classify("news about the price of (AAPL)"); got != model.IntentPriceHistory {
		t.Errorf("expected price_history, got %s", got)
	}
	// sector (fundamentals) outranks insider and options words.
	if got := Classify("sector of the company whose insiders bought calls"); got != model.IntentFundamentals {
		t.Errorf("expected fundamentals, got %s", got)
	}
}

func TestClassify_WordBoundaries(t *testing.T) {
	// "highlight" must not match "high", "puts" inside "outputs" must not match.
	for _, text := range []string{"highlight the outputs", "overclosed", "pricey"} {
		if got := Classify(text); got != model.IntentUnclassified {
			t.Errorf("Classify(%q) = %s, want unclassified", text, got)
		}
	}
}

func TestClassify_CaseInsensitive(t *testing.T) {
	if got := Classify("SHOW ME THE NEWS"); got != model.IntentNews {
		t.Errorf("expected news, got %s", got)
	}
}

func TestRules_Order(t *testing.T) {
	r := Rules()
	if len(r) != len(model.Intents) {
		t.Fatalf("expected %d rules, got %d", len(model.Intents), len(r))
	}
	for i, want := range model.Intents {
		if r[i].Intent != want {
			t.Errorf("rule %d: got %s, want %s", i, r[i].Intent, want)
		}
	}
}
