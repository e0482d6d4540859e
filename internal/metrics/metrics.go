package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the question-answering service.
// Each Metrics owns its registry so several can coexist in one process.
type Metrics struct {
	Registry *prometheus.Registry

	// Query pipeline
	QueriesTotal *prometheus.CounterVec // labels: intent
	ErrorsTotal  *prometheus.CounterVec // labels: kind
	QueryDur     prometheus.Histogram

	// Store
	StoreQueryDur *prometheus.HistogramVec // labels: intent
	TickerMemo    *prometheus.CounterVec   // labels: result=hit|miss

	// Indicator engine and signals
	IndicatorComputeDur prometheus.Histogram
	IndicatorRowsTotal  prometheus.Counter
	SignalsTotal        *prometheus.CounterVec // labels: kind

	// Response cache
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	CacheErrors prometheus.Counter

	// Circuit breaker
	CacheCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	CacheCircuitBreakerTrips prometheus.Counter

	// API surface
	HTTPRequests  *prometheus.CounterVec // labels: route, code
	RateLimited   prometheus.Counter
	WSConnections prometheus.Gauge

	// Watchlist scanner
	ScanRuns     prometheus.Counter
	ScanFailures *prometheus.CounterVec // labels: ticker
	ScanStale    *prometheus.CounterVec // labels: ticker
	AlertsSent   *prometheus.CounterVec // labels: notifier
}

// NewMetrics registers and returns all Prometheus metrics on a fresh
// registry that also carries the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,

		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketqa_queries_total",
			Help: "Questions answered, by classified intent",
		}, []string{"intent"}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketqa_errors_total",
			Help: "Questions answered with an error result, by error kind",
		}, []string{"kind"}),
		QueryDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "marketqa_query_duration_seconds",
			Help:    "End-to-end latency of Ask and Analyze",
			Buckets: prometheus.DefBuckets,
		}),

		StoreQueryDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketqa_store_query_duration_seconds",
			Help:    "Market store query latency, by intent",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"intent"}),
		TickerMemo: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketqa_ticker_memo_total",
			Help: "Ticker existence lookups served from the in-process memo",
		}, []string{"result"}),

		IndicatorComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "marketqa_indicator_compute_duration_seconds",
			Help:    "Indicator engine latency per series",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		IndicatorRowsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketqa_indicator_rows_total",
			Help: "Indicator rows computed",
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketqa_signals_total",
			Help: "Signals detected, by kind",
		}, []string{"kind"}),

		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketqa_cache_hits_total",
			Help: "Response cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketqa_cache_misses_total",
			Help: "Response cache misses",
		}),
		CacheErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketqa_cache_errors_total",
			Help: "Response cache failures (request still served)",
		}),

		CacheCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "marketqa_cache_circuit_breaker_state",
			Help: "Response cache circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		CacheCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketqa_cache_circuit_breaker_trips_total",
			Help: "Times the response cache circuit breaker tripped open",
		}),

		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketqa_http_requests_total",
			Help: "HTTP requests, by route and status code",
		}, []string{"route", "code"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketqa_http_rate_limited_total",
			Help: "HTTP requests rejected by the per-client rate limiter",
		}),
		WSConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "marketqa_ws_connections",
			Help: "Open WebSocket question sessions",
		}),

		ScanRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketqa_scan_runs_total",
			Help: "Watchlist scan passes",
		}),
		ScanFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketqa_scan_failures_total",
			Help: "Watchlist tickers that failed to scan",
		}, []string{"ticker"}),
		ScanStale: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketqa_scan_stale_total",
			Help: "Watchlist tickers whose latest bar predates the last trading day",
		}, []string{"ticker"}),
		AlertsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketqa_alerts_sent_total",
			Help: "Signal alerts delivered, by notifier",
		}, []string{"notifier"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.QueriesTotal,
		m.ErrorsTotal,
		m.QueryDur,
		m.StoreQueryDur,
		m.TickerMemo,
		m.IndicatorComputeDur,
		m.IndicatorRowsTotal,
		m.SignalsTotal,
		m.CacheHits,
		m.CacheMisses,
		m.CacheErrors,
		m.CacheCircuitBreakerState,
		m.CacheCircuitBreakerTrips,
		m.HTTPRequests,
		m.RateLimited,
		m.WSConnections,
		m.ScanRuns,
		m.ScanFailures,
		m.ScanStale,
		m.AlertsSent,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Pinger is a dependency that can be probed for liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	StoreOK      bool `json:"store_ok"`
	CacheEnabled bool `json:"cache_enabled"`
	CacheOK      bool `json:"cache_ok"`

	// Liveness probe results
	StoreLatencyMs float64   `json:"store_latency_ms"`
	CacheLatencyMs float64   `json:"cache_latency_ms"`
	LastCheckAt    time.Time `json:"last_check_at"`
	StartedAt      time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetStoreOK(v bool) {
	h.mu.Lock()
	h.StoreOK = v
	h.mu.Unlock()
}

// SetCacheEnabled records whether a response cache is configured. A
// disabled cache does not degrade health.
func (h *HealthStatus) SetCacheEnabled(v bool) {
	h.mu.Lock()
	h.CacheEnabled = v
	h.mu.Unlock()
}

// CheckStore pings the market store and records latency + health.
func (h *HealthStatus) CheckStore(ctx context.Context, store Pinger) {
	start := time.Now()
	err := store.Ping(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.StoreOK = err == nil
	h.StoreLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckCache pings the response cache and records latency + connectivity.
func (h *HealthStatus) CheckCache(ctx context.Context, cache Pinger) {
	start := time.Now()
	err := cache.Ping(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.CacheOK = err == nil
	h.CacheLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// Probe runs every configured check once. cache may be nil.
func (h *HealthStatus) Probe(ctx context.Context, store, cache Pinger) {
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if store != nil {
		h.CheckStore(probeCtx, store)
	}
	if cache != nil {
		h.CheckCache(probeCtx, cache)
	}
}

// StartLivenessChecker runs periodic dependency checks until ctx is done.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, store, cache Pinger, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.Probe(ctx, store, cache)
			}
		}
	}()
}

// Report is the JSON body of the health endpoints.
type Report struct {
	Status         string  `json:"status"`
	Uptime         string  `json:"uptime"`
	StoreOK        bool    `json:"store_ok"`
	StoreLatencyMs float64 `json:"store_latency_ms"`
	CacheEnabled   bool    `json:"cache_enabled"`
	CacheOK        bool    `json:"cache_ok"`
	CacheLatencyMs float64 `json:"cache_latency_ms"`
	LastCheckAt    string  `json:"last_check_at"`
}

// Snapshot returns the current report and its HTTP status code.
//   - healthy: store reachable and cache reachable or disabled
//   - degraded: store reachable, cache configured but down (answers still
//     served without caching)
//   - unhealthy: store unreachable
func (h *HealthStatus) Snapshot() (Report, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status, code := "healthy", http.StatusOK
	switch {
	case !h.StoreOK:
		status, code = "unhealthy", http.StatusServiceUnavailable
	case h.CacheEnabled && !h.CacheOK:
		status = "degraded"
	}

	lastCheck := ""
	if !h.LastCheckAt.IsZero() {
		lastCheck = h.LastCheckAt.Format(time.RFC3339)
	}
	return Report{
		Status:         status,
		Uptime:         time.Since(h.StartedAt).Round(time.Second).String(),
		StoreOK:        h.StoreOK,
		StoreLatencyMs: h.StoreLatencyMs,
		CacheEnabled:   h.CacheEnabled,
		CacheOK:        h.CacheOK,
		CacheLatencyMs: h.CacheLatencyMs,
		LastCheckAt:    lastCheck,
	}, code
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report, code := h.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(report)
}

// Server runs an HTTP server for an arbitrary handler, typically the API
// router which also exposes /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a server for handler on addr.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start launches the HTTP server in a goroutine. Listen errors other than
// a graceful close are sent on the returned channel.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
