package entity

import (
	"errors"
	"testing"

	"marketqa/internal/model"
)

func TestTicker_Parentheses(t *testing.T) {
	cases := map[string]string{
		"Show me news about Apple (AAPL)":    "AAPL",
		"price of (msft) for 3 months":        "MSFT",
		"fundamentals ( brk.b )":              "BRK.B",
		"compare (TSLA) with NVDA":            "TSLA",
		"first (GOOG) then (AMZN)":            "GOOG",
	}
	for text, want := range cases {
		got, src := Ticker(text)
		if got != want {
			t.Errorf("Ticker(%q) = %q, want %q", text, got, want)
		}
		if src != model.TickerParentheses {
			t.Errorf("Ticker(%q) source = %s, want parentheses", text, src)
		}
	}
}

func TestTicker_UppercaseFallback(t *testing.T) {
	cases := map[string]string{
		"What is the RSI of NVDA?":    "NVDA",
		"Compare MSFT and AAPL today": "AAPL",
		"insider trades at TSLA, CEO": "TSLA",
		"ADX for IBM.":                "IBM",
	}
	for text, want := range cases {
		got, src := Ticker(text)
		if got != want {
			t.Errorf("Ticker(%q) = %q, want %q", text, got, want)
		}
		if src != model.TickerUppercase {
			t.Errorf("Ticker(%q) source = %s, want uppercase", text, src)
		}
	}
}

func TestTicker_None(t *testing.T) {
	for _, text := range []string{"", "show me the news", "What is the RSI and ADX", "I want A data", "()"} {
		if got, src := Ticker(text); got != "" || src != model.TickerNone {
			t.Errorf("Ticker(%q) = %q/%s, want none", text, got, src)
		}
	}
}

func TestExtract_Window(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"price of (AAPL)", 30},
		{"price of (AAPL) for 10 days", 10},
		{"price of (AAPL) for 1 day", 1},
		{"price of (AAPL) for 3 months", 90},
		{"price of (AAPL) for 2 years", 730},
		{"price of (AAPL) for 6months", 180},
		{"price of (AAPL) 5 days then 2 years", 5},
		{"price of (AAPL) for 1 YEAR", 365},
	}
	for _, tc := range cases {
		ent, err := Extract(tc.text)
		if err != nil {
			t.Fatalf("Extract(%q): unexpected error %v", tc.text, err)
		}
		if ent.WindowDays != tc.want {
			t.Errorf("Extract(%q).WindowDays = %d, want %d", tc.text, ent.WindowDays, tc.want)
		}
	}
}

func TestExtract_MalformedTimespan(t *testing.T) {
	for _, text := range []string{
		"price of (AAPL) for 0 days",
		"price of (AAPL) for -5 days",
		"price of (AAPL) for 99999999999999999999999 days",
		"price of (AAPL) for 9999999 years",
		"price (BRK.B) 1.5 years",
		"news (AAPL) last 2.5 months",
	} {
		_, err := Extract(text)
		if err == nil {
			t.Fatalf("Extract(%q): expected error", text)
		}
		var qe *model.QueryError
		if !errors.As(err, &qe) || qe.Kind != model.ErrMalformedTimespan {
			t.Errorf("Extract(%q): expected MalformedTimespan, got %v", text, err)
		}
	}
}

func TestExtract_ArticleCount(t *testing.T) {
	ent, err := Extract("Give me 3 news articles about (AAPL)")
	if err != nil {
		t.Fatal(err)
	}
	if ent.ArticleCount == nil || *ent.ArticleCount != 3 {
		t.Fatalf("expected article count 3, got %v", ent.ArticleCount)
	}
	if ent.Articles() != 3 {
		t.Errorf("Articles() = %d, want 3", ent.Articles())
	}

	// The timespan number is not an article count.
	ent, err = Extract("news about (AAPL) over 7 days")
	if err != nil {
		t.Fatal(err)
	}
	if ent.ArticleCount != nil {
		t.Errorf("expected nil article count, got %d", *ent.ArticleCount)
	}
	if ent.Articles() != model.DefaultArticleCount {
		t.Errorf("Articles() = %d, want default %d", ent.Articles(), model.DefaultArticleCount)
	}

	// Both present: window from the phrase, count from the bare number.
	ent, err = Extract("top 4 headlines for (TSLA) in the last 2 months")
	if err != nil {
		t.Fatal(err)
	}
	if ent.WindowDays != 60 {
		t.Errorf("WindowDays = %d, want 60", ent.WindowDays)
	}
	if ent.ArticleCount == nil || *ent.ArticleCount != 4 {
		t.Errorf("expected article count 4, got %v", ent.ArticleCount)
	}
}

func TestExtract_Defaults(t *testing.T) {
	ent, err := Extract("tell me something")
	if err != nil {
		t.Fatal(err)
	}
	if ent.Ticker != "" {
		t.Errorf("expected no ticker, got %q", ent.Ticker)
	}
	if ent.WindowDays != model.DefaultWindowDays {
		t.Errorf("WindowDays = %d, want %d", ent.WindowDays, model.DefaultWindowDays)
	}
	if ent.ArticleCount != nil {
		t.Errorf("expected nil article count")
	}
}

func TestExtract_DecimalIsNotACount(t *testing.T) {
	ent, err := Extract("news (BRK.B) 2 days, rating 4.5 stars")
	if err != nil {
		t.Fatal(err)
	}
	if ent.Ticker != "BRK.B" {
		t.Errorf("Ticker = %q, want BRK.B", ent.Ticker)
	}
	if ent.WindowDays != 2 {
		t.Errorf("WindowDays = %d, want 2", ent.WindowDays)
	}
	if ent.ArticleCount != nil {
		t.Errorf("expected no article count from 4.5, got %d", *ent.ArticleCount)
	}
}
