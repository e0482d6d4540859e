// Package accessor runs the per-intent lookups against the market store and
// maps store failures onto the query error taxonomy.
package accessor

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"marketqa/internal/metrics"
	"marketqa/internal/model"
)

const (
	// InsiderLookback is how far back insider transactions are listed.
	InsiderLookback = 90 * 24 * time.Hour

	// OptionsLimitAllTickers caps the unusual-options list when no ticker
	// is given.
	OptionsLimitAllTickers = 10

	memoTTL = 5 * time.Minute
)

// PriceHeaders are the column headers of a price history result.
var PriceHeaders = []string{"Date", "Open", "High", "Low", "Close", "Volume"}

// tickerTable is the table whose rows prove a ticker exists for intents
// that require one.
var tickerTable = map[model.Intent]string{
	model.IntentFundamentals: model.TableFundamentals,
	model.IntentPriceHistory: model.TablePriceData,
	model.IntentNews:         model.TableArticleTickers,
}

// Accessor fetches rows for a classified question. It holds no state
// besides a memo of tickers already known to exist.
type Accessor struct {
	store model.MarketStore
	known *cache.Cache
	now   func() time.Time
	prom  *metrics.Metrics
}

// Option configures an Accessor.
type Option func(*Accessor)

// WithClock sets the clock used for the insider lookback window.
func WithClock(now func() time.Time) Option {
	return func(a *Accessor) { a.now = now }
}

// WithMetrics records store latency and memo hits on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Accessor) { a.prom = m }
}

// New creates an Accessor over store. The store stays owned by the caller.
func New(store model.MarketStore, opts ...Option) *Accessor {
	a := &Accessor{
		store: store,
		known: cache.New(memoTTL, 2*memoTTL),
		now:   time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Fetch runs the lookup for intent with the extracted entities. Errors are
// *model.QueryError values.
func (a *Accessor) Fetch(ctx context.Context, intent model.Intent, ent model.Entities) (*model.TabularRows, error) {
	if intent == model.IntentUnclassified {
		return nil, model.NewQueryError(model.ErrUnclassified, "")
	}
	if intent.NeedsTicker() {
		if err := a.requireTicker(ctx, intent, ent.Ticker); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	rows, err := a.query(ctx, intent, ent)
	a.observe(intent, start)
	if err != nil {
		return nil, a.storeError(intent, err)
	}
	if rows.Len() == 0 {
		return nil, model.NewQueryError(model.ErrNoDataFound, "%s", noDataDetail(intent, ent))
	}
	return rows, nil
}

func (a *Accessor) query(ctx context.Context, intent model.Intent, ent model.Entities) (*model.TabularRows, error) {
	switch intent {
	case model.IntentFundamentals:
		return a.store.LatestFundamentals(ctx, ent.Ticker)

	case model.IntentInsiderTransactions:
		since := a.now().UTC().Add(-InsiderLookback)
		return a.store.InsiderTransactions(ctx, ent.Ticker, since)

	case model.IntentOptionsActivity:
		limit := 0
		if ent.Ticker == "" {
			limit = OptionsLimitAllTickers
		}
		return a.store.UnusualOptions(ctx, ent.Ticker, limit)

	case model.IntentPriceHistory:
		bars, err := a.store.PriceHistory(ctx, ent.Ticker, windowOf(ent))
		if err != nil {
			return nil, err
		}
		return priceRows(bars), nil

	case model.IntentNews:
		return a.store.News(ctx, ent.Ticker, ent.Articles())
	}
	return nil, fmt.Errorf("no query for intent %q", intent)
}

// PriceSeries returns up to limit of the latest bars for ticker in
// ascending date order, ready for the indicator engine.
func (a *Accessor) PriceSeries(ctx context.Context, ticker string, limit int) ([]model.PriceBar, error) {
	if err := a.requireTicker(ctx, model.IntentPriceHistory, ticker); err != nil {
		return nil, err
	}

	start := time.Now()
	bars, err := a.store.PriceHistory(ctx, ticker, limit)
	a.observe(model.IntentPriceHistory, start)
	if err != nil {
		return nil, a.storeError(model.IntentPriceHistory, err)
	}
	if len(bars) == 0 {
		return nil, model.NewQueryError(model.ErrNoDataFound, "for %s", ticker)
	}
	return model.ReverseBars(bars), nil
}

// requireTicker fails with NoTickerFound when ticker is empty or has no row
// in the table backing intent. Positive answers are memoized.
func (a *Accessor) requireTicker(ctx context.Context, intent model.Intent, ticker string) error {
	if ticker == "" {
		return model.NewQueryError(model.ErrNoTickerFound, "")
	}
	table, ok := tickerTable[intent]
	if !ok {
		return nil
	}

	key := table + "/" + ticker
	if _, hit := a.known.Get(key); hit {
		a.memo("hit")
		return nil
	}
	a.memo("miss")

	exists, err := a.store.TickerExists(ctx, table, ticker)
	if err != nil {
		return a.storeError(intent, err)
	}
	if !exists {
		log.Printf("[accessor] ticker %s not found in %s", ticker, table)
		return model.NewQueryError(model.ErrNoTickerFound, "%s", ticker)
	}
	a.known.Set(key, struct{}{}, cache.DefaultExpiration)
	return nil
}

// storeError classifies a store failure. Missing tables or columns are
// schema problems; everything else is an upstream failure.
func (a *Accessor) storeError(intent model.Intent, err error) error {
	kind := model.ErrUpstreamQuery
	msg := err.Error()
	if strings.Contains(msg, "no such table") || strings.Contains(msg, "no such column") {
		kind = model.ErrSchemaMissing
	}
	log.Printf("[accessor] %s query failed (%s): %v", intent, kind, err)
	return model.NewQueryError(kind, "%s", intent).WithCause(err)
}

func (a *Accessor) observe(intent model.Intent, start time.Time) {
	if a.prom != nil {
		a.prom.StoreQueryDur.WithLabelValues(string(intent)).Observe(time.Since(start).Seconds())
	}
}

func (a *Accessor) memo(result string) {
	if a.prom != nil {
		a.prom.TickerMemo.WithLabelValues(result).Inc()
	}
}

func windowOf(ent model.Entities) int {
	if ent.WindowDays <= 0 {
		return model.DefaultWindowDays
	}
	return ent.WindowDays
}

// priceRows converts bars (newest first) into a price history table.
func priceRows(bars []model.PriceBar) *model.TabularRows {
	out := &model.TabularRows{
		Intent:  model.IntentPriceHistory,
		Headers: PriceHeaders,
		Rows:    make([][]any, len(bars)),
	}
	for i, b := range bars {
		out.Rows[i] = []any{b.Date, b.Open, b.High, b.Low, b.Close, b.Volume}
	}
	return out
}

func noDataDetail(intent model.Intent, ent model.Entities) string {
	var b strings.Builder
	if ent.Ticker != "" {
		fmt.Fprintf(&b, "for %s", ent.Ticker)
	}
	switch intent {
	case model.IntentInsiderTransactions:
		sep(&b)
		b.WriteString("in the last 90 days")
	case model.IntentOptionsActivity:
		sep(&b)
		b.WriteString("with unusual options activity")
	case model.IntentPriceHistory:
		sep(&b)
		fmt.Fprintf(&b, "in the last %d days", windowOf(ent))
	}
	return b.String()
}

func sep(b *strings.Builder) {
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
}
