// Package qaengine owns the question pipeline: classify and extract, fetch,
// then format a table or run the indicator engine and signal detector.
package qaengine

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"marketqa/internal/accessor"
	"marketqa/internal/entity"
	"marketqa/internal/format"
	"marketqa/internal/indicator"
	"marketqa/internal/intent"
	"marketqa/internal/logger"
	"marketqa/internal/metrics"
	"marketqa/internal/model"
	"marketqa/internal/signals"
	"marketqa/internal/store/redis"
)

// MinAnalysisBars is the least history fetched for an analysis, so the
// slow averages are populated across the display window.
const MinAnalysisBars = 250

// Options configures a Service. Zero values pick the defaults.
type Options struct {
	Thresholds signals.Thresholds

	// Cache is optional; nil disables response caching.
	Cache    model.ResultCache
	CacheTTL time.Duration

	Metrics *metrics.Metrics
	Clock   func() time.Time
}

// Service answers questions against a market store. It is safe for
// concurrent use.
type Service struct {
	acc   *accessor.Accessor
	ind   indicator.Config
	th    signals.Thresholds
	cache model.ResultCache
	ttl   time.Duration
	prom  *metrics.Metrics
}

// New creates a Service. The store and cache stay owned by the caller.
func New(store model.MarketStore, opts Options) *Service {
	th := opts.Thresholds
	if th == (signals.Thresholds{}) {
		th = signals.DefaultThresholds()
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	var accOpts []accessor.Option
	if opts.Clock != nil {
		accOpts = append(accOpts, accessor.WithClock(opts.Clock))
	}
	if opts.Metrics != nil {
		accOpts = append(accOpts, accessor.WithMetrics(opts.Metrics))
	}

	return &Service{
		acc:   accessor.New(store, accOpts...),
		ind:   indicator.DefaultConfig(),
		th:    th,
		cache: opts.Cache,
		ttl:   ttl,
		prom:  opts.Metrics,
	}
}

// Ask answers a data question: it classifies the intent, extracts the
// entities, fetches rows and renders them as a table.
func (s *Service) Ask(ctx context.Context, text string) model.QueryResult {
	in := intent.Classify(text)
	ent, extractErr := entity.Extract(text)
	var key string
	if in != model.IntentUnclassified && extractErr == nil {
		key = requestKey("ask", in, ent)
	}

	return s.answer(ctx, "ask", key, func() (model.QueryResult, error) {
		s.countQuery(in)
		if in == model.IntentUnclassified {
			return nil, model.NewQueryError(model.ErrUnclassified, "")
		}
		if extractErr != nil {
			return nil, extractErr
		}
		rows, err := s.acc.Fetch(ctx, in, ent)
		if err != nil {
			return nil, err
		}
		rows.Rendered = format.Table(rows.Headers, rows.Rows)
		return rows, nil
	})
}

// Analyze answers a technical-analysis question for the ticker in text,
// over the window in text (default 30 days).
func (s *Service) Analyze(ctx context.Context, text string) model.QueryResult {
	ent, extractErr := entity.Extract(text)
	var key string
	if extractErr == nil {
		key = requestKey("analyze", "analysis", ent)
	}

	return s.answer(ctx, "analyze", key, func() (model.QueryResult, error) {
		s.countQuery("analysis")
		if extractErr != nil {
			return nil, extractErr
		}
		return s.Analysis(ctx, ent.Ticker, ent.WindowDays)
	})
}

// requestKey keys the response cache on the extracted request rather than
// the raw text, since ticker extraction is case sensitive.
func requestKey(kind string, in model.Intent, ent model.Entities) string {
	return redis.Key(kind, string(in), ent.Ticker, strconv.Itoa(ent.WindowDays), strconv.Itoa(ent.Articles()))
}

// Analysis computes indicators and signals for ticker and reports on the
// last window bars. Indicators are computed over the whole fetched history
// so the display window starts warmed up.
func (s *Service) Analysis(ctx context.Context, ticker string, window int) (*model.AnalysisReport, error) {
	if window <= 0 {
		window = model.DefaultWindowDays
	}
	rows, sigs, err := s.series(ctx, ticker, window+s.ind.Warmup())
	if err != nil {
		return nil, err
	}

	display := rows
	if len(display) > window {
		display = display[len(display)-window:]
	}
	shown := signalsFrom(sigs, display[0].Date)

	return &model.AnalysisReport{
		Ticker:  ticker,
		Summary: format.Report(ticker, display, shown),
		Series:  display,
		Signals: shown,
	}, nil
}

// LatestSignals returns the signals that fired on ticker's most recent bar
// and that bar's date.
func (s *Service) LatestSignals(ctx context.Context, ticker string) ([]model.Signal, time.Time, error) {
	rows, sigs, err := s.series(ctx, ticker, s.ind.Warmup()+1)
	if err != nil {
		return nil, time.Time{}, err
	}
	last := rows[len(rows)-1]
	return signals.OnDate(sigs, last), last.Date, nil
}

// series fetches at least MinAnalysisBars bars and runs the indicator
// engine and signal detector over them.
func (s *Service) series(ctx context.Context, ticker string, want int) ([]model.IndicatorRow, []model.Signal, error) {
	if ticker == "" {
		return nil, nil, model.NewQueryError(model.ErrNoTickerFound, "")
	}
	if want < MinAnalysisBars {
		want = MinAnalysisBars
	}
	bars, err := s.acc.PriceSeries(ctx, ticker, want)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	rows := indicator.ComputeWith(s.ind, bars)
	sigs := signals.DetectWith(s.th, rows)
	if s.prom != nil {
		s.prom.IndicatorComputeDur.Observe(time.Since(start).Seconds())
		s.prom.IndicatorRowsTotal.Add(float64(len(rows)))
		for _, sig := range sigs {
			s.prom.SignalsTotal.WithLabelValues(string(sig.Kind)).Inc()
		}
	}
	for i := range sigs {
		sigs[i].Ticker = ticker
	}
	return rows, sigs, nil
}

func signalsFrom(sigs []model.Signal, from time.Time) []model.Signal {
	var out []model.Signal
	for _, sig := range sigs {
		if !sig.Date.Before(from) {
			out = append(out, sig)
		}
	}
	return out
}

// answer wraps a pipeline run with the response cache, metrics and error
// conversion. Only successful results are cached; an empty key bypasses
// the cache.
func (s *Service) answer(ctx context.Context, kind, key string, run func() (model.QueryResult, error)) model.QueryResult {
	start := time.Now()
	if s.prom != nil {
		defer func() { s.prom.QueryDur.Observe(time.Since(start).Seconds()) }()
	}
	log := logger.Component(ctx, "qa")

	if res, ok := s.cached(ctx, key); ok {
		log.Debug().Str("kind", kind).Msg("answered from cache")
		return res
	}

	res, err := run()
	if err != nil {
		msg := model.ErrorResult(err)
		if s.prom != nil {
			s.prom.ErrorsTotal.WithLabelValues(string(msg.ErrKind)).Inc()
		}
		ev := log.Info()
		if msg.ErrKind == model.ErrUpstreamQuery || msg.ErrKind == model.ErrSchemaMissing {
			ev = log.Error()
		}
		ev.Err(err).Str("kind", kind).Str("error_kind", string(msg.ErrKind)).Msg("question not answered")
		return msg
	}

	s.store(ctx, key, res)
	return res
}

// cachedResult is the cache payload for a successful result.
type cachedResult struct {
	Kind   string                `json:"kind"`
	Table  *model.TabularRows    `json:"table,omitempty"`
	Report *model.AnalysisReport `json:"report,omitempty"`
}

func (s *Service) cached(ctx context.Context, key string) (model.QueryResult, bool) {
	if s.cache == nil || key == "" {
		return nil, false
	}
	payload, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.cacheError(ctx, err)
		return nil, false
	}
	if !found {
		if s.prom != nil {
			s.prom.CacheMisses.Inc()
		}
		return nil, false
	}

	var c cachedResult
	if err := json.Unmarshal(payload, &c); err != nil {
		s.cacheError(ctx, err)
		return nil, false
	}
	var res model.QueryResult
	switch {
	case c.Table != nil:
		res = c.Table
	case c.Report != nil:
		res = c.Report
	default:
		return nil, false
	}
	if s.prom != nil {
		s.prom.CacheHits.Inc()
	}
	return res, true
}

func (s *Service) store(ctx context.Context, key string, res model.QueryResult) {
	if s.cache == nil || key == "" {
		return
	}
	c := cachedResult{Kind: res.Kind()}
	switch r := res.(type) {
	case *model.TabularRows:
		c.Table = r
	case *model.AnalysisReport:
		c.Report = r
	default:
		return
	}
	payload, err := json.Marshal(c)
	if err != nil {
		s.cacheError(ctx, err)
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.ttl); err != nil {
		s.cacheError(ctx, err)
	}
}

func (s *Service) cacheError(ctx context.Context, err error) {
	if s.prom != nil {
		s.prom.CacheErrors.Inc()
	}
	logger.Component(ctx, "qa").Warn().Err(err).Msg("response cache unavailable")
}

func (s *Service) countQuery(in model.Intent) {
	if s.prom != nil {
		s.prom.QueriesTotal.WithLabelValues(string(in)).Inc()
	}
}
