package model

import (
	"context"
	"time"
)

// ── Storage Port Interfaces ──
// These interfaces decouple the query pipeline from the concrete store
// (SQLite) and the optional response cache (Redis).

// Table names of the read-only market store.
const (
	TableFundamentals   = "Fundamentals"
	TableInsider        = "Insider_Transactions"
	TableOptions        = "Options_Contracts"
	TablePriceData      = "Price_Data"
	TableArticles       = "Articles"
	TableArticleTickers = "Article_Ticker_Relationships"
)

// MarketStore is the read-only tabular store behind the Data Accessor.
// Every method takes parameterized filters; none of them write.
type MarketStore interface {
	// TickerExists reports whether table has at least one row for ticker.
	TickerExists(ctx context.Context, table, ticker string) (bool, error)

	// LatestFundamentals returns the ticker's rows on the table-wide
	// latest snapshot date.
	LatestFundamentals(ctx context.Context, ticker string) (*TabularRows, error)

	// InsiderTransactions returns transactions on or after since, newest
	// first. An empty ticker means all tickers.
	InsiderTransactions(ctx context.Context, ticker string, since time.Time) (*TabularRows, error)

	// UnusualOptions returns contracts with volume over open interest
	// above 1 and volume above 100. limit <= 0 means unlimited.
	UnusualOptions(ctx context.Context, ticker string, limit int) (*TabularRows, error)

	// PriceHistory returns the latest limit bars, newest first.
	PriceHistory(ctx context.Context, ticker string, limit int) ([]PriceBar, error)

	// News returns the latest limit articles linked to ticker.
	News(ctx context.Context, ticker string, limit int) (*TabularRows, error)

	// Tables lists relations and their columns.
	Tables(ctx context.Context) (map[string][]string, error)

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}

// ResultCache stores rendered results keyed by normalized question.
type ResultCache interface {
	// Get returns the cached payload. found is false on miss.
	Get(ctx context.Context, key string) (payload []byte, found bool, err error)

	// Set stores payload with a TTL.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// Close releases underlying resources.
	Close() error
}
