// Package sqlitetest builds seeded market databases for tests.
package sqlitetest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketqa/internal/model"
	"marketqa/internal/store/sqlite"
)

// Now is the fixed clock used by the fixture data.
var Now = time.Date(2024, 6, 28, 15, 0, 0, 0, time.UTC)

// Fixture describes the seeded data set.
type Fixture struct {
	Path string

	// PriceTicker has PriceBars daily bars ending on LastBarDate.
	PriceTicker string
	PriceBars   int
	LastBarDate time.Time
}

// NewDB creates an empty database with the market schema and returns its
// path. The pure-Go driver is used so tests do not need cgo.
func NewDB(t *testing.T) (string, *sqlite.Writer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "market.db")
	w, err := sqlite.NewWriter(sqlite.WriterConfig{DBPath: path, Driver: sqlite.DriverPure})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return path, w
}

// Seed creates a database with a representative data set:
//   - AAPL: 300 daily bars, two fundamentals snapshots, insider trades,
//     options and five news articles
//   - MSFT: an older fundamentals snapshot, twelve unusual options and
//     one low-relevance article
//   - NVDA: insider trades only
func Seed(t *testing.T) Fixture {
	t.Helper()
	path, w := NewDB(t)
	ctx := context.Background()

	last := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	bars := RisingBars("AAPL", 300, last)
	require.NoError(t, w.InsertPriceBars(ctx, bars))

	require.NoError(t, w.InsertFundamentals(ctx, []sqlite.Fundamental{
		{Ticker: "AAPL", Date: last.AddDate(0, 0, -7), Sector: "Technology", RecommendationKey: "hold",
			TargetMeanPrice: 180, ForwardPE: 27, TrailingPE: 29, ReturnOnEquity: 1.4, ProfitMargins: 0.25},
		{Ticker: "AAPL", Date: last, Sector: "Technology", RecommendationKey: "buy",
			TargetMeanPrice: 210.5, ForwardPE: 28.1, TrailingPE: 31.2, ReturnOnEquity: 1.47, ProfitMargins: 0.26},
		{Ticker: "MSFT", Date: last.AddDate(0, 0, -7), Sector: "Technology", RecommendationKey: "buy",
			TargetMeanPrice: 480, ForwardPE: 33, TrailingPE: 36, ReturnOnEquity: 0.38, ProfitMargins: 0.36},
	}))

	require.NoError(t, w.InsertInsiderTransactions(ctx, []sqlite.InsiderTransaction{
		{Date: Now.AddDate(0, 0, -10), Ticker: "AAPL", Executive: "COOK TIMOTHY D", Title: "CEO", Action: "D", Shares: 50000, Price: 190},
		{Date: Now.AddDate(0, 0, -40), Ticker: "AAPL", Executive: "MAESTRI LUCA", Title: "CFO", Action: "D", Shares: 10000, Price: 185},
		{Date: Now.AddDate(0, 0, -120), Ticker: "AAPL", Executive: "OLD TRADE", Title: "Director", Action: "A", Shares: 100, Price: 150},
		{Date: Now.AddDate(0, 0, -5), Ticker: "NVDA", Executive: "HUANG JEN HSUN", Title: "CEO", Action: "D", Shares: 120000, Price: 120},
	}))

	exp := last.AddDate(0, 1, 0)
	var opts []sqlite.OptionContract
	opts = append(opts,
		sqlite.OptionContract{Symbol: "AAPL", Type: "call", Strike: 200, ExpDate: exp, Volume: 5000, OpenInterest: 1000, IV: 0.25, Delta: 0.4},
		sqlite.OptionContract{Symbol: "AAPL", Type: "put", Strike: 180, ExpDate: exp, Volume: 300, OpenInterest: 200, IV: 0.3, Delta: -0.3},
		sqlite.OptionContract{Symbol: "AAPL", Type: "call", Strike: 250, ExpDate: exp, Volume: 50, OpenInterest: 10, IV: 0.5, Delta: 0.05},    // volume too low
		sqlite.OptionContract{Symbol: "AAPL", Type: "call", Strike: 190, ExpDate: exp, Volume: 500, OpenInterest: 1000, IV: 0.2, Delta: 0.5}, // ratio too low
	)
	for i := 0; i < 12; i++ {
		opts = append(opts, sqlite.OptionContract{
			Symbol: "MSFT", Type: "call", Strike: 400 + float64(i*5), ExpDate: exp,
			Volume: int64(1000 + i*100), OpenInterest: 500, IV: 0.2, Delta: 0.5,
		})
	}
	require.NoError(t, w.InsertOptionContracts(ctx, opts))

	var arts []sqlite.Article
	for i := 0; i < 4; i++ {
		arts = append(arts, sqlite.Article{
			ID:           "a" + string(rune('0'+i)),
			Title:        "Apple headline " + string(rune('A'+i)),
			Summary:      "summary",
			Published:    Now.Add(-time.Duration(i) * time.Hour),
			Source:       "Newswire",
			Sentiment:    "Neutral",
			TickerScores: map[string]float64{"AAPL": 0.5 + float64(i)/10},
		})
	}
	// Same timestamp as a0 with a higher relevance score: sorts before it.
	arts = append(arts, sqlite.Article{
		ID: "a9", Title: "Apple headline Z", Summary: "summary", Published: Now,
		Source: "Newswire", Sentiment: "Bullish", TickerScores: map[string]float64{"AAPL": 0.99, "MSFT": 0.1},
	})
	require.NoError(t, w.InsertArticles(ctx, arts))

	return Fixture{Path: path, PriceTicker: "AAPL", PriceBars: len(bars), LastBarDate: last}
}

// RisingBars returns n daily bars ending on last with a close that rises by
// one each day from 100.
func RisingBars(ticker string, n int, last time.Time) []model.PriceBar {
	bars := make([]model.PriceBar, n)
	first := last.AddDate(0, 0, -(n - 1))
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = model.PriceBar{
			Ticker: ticker, Date: first.AddDate(0, 0, i),
			Open: c - 0.5, High: c + 1, Low: c - 1, Close: c, Volume: int64(1_000_000 + i),
		}
	}
	return bars
}

// OpenReader opens a read-only reader on path with the pure-Go driver.
func OpenReader(t *testing.T, path string) *sqlite.Reader {
	t.Helper()
	r, err := sqlite.NewReader(sqlite.ReaderConfig{DBPath: path, Driver: sqlite.DriverPure})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}
