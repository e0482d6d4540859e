package qaengine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"marketqa/internal/markethours"
	"marketqa/internal/metrics"
	"marketqa/internal/model"
	"marketqa/internal/notification"
)

// Scanner periodically checks a watchlist for signals on the latest bar
// and sends an alert for each new one. It only reads the store.
type Scanner struct {
	svc      *Service
	tickers  []string
	notifier notification.Notifier
	prom     *metrics.Metrics
	cron     *cron.Cron
	now      func() time.Time

	mu   sync.Mutex
	sent map[string]bool // ticker|kind|date already alerted
}

// NewScanner creates a scanner over tickers. prom may be nil.
func NewScanner(svc *Service, tickers []string, n notification.Notifier, prom *metrics.Metrics) *Scanner {
	return &Scanner{
		svc:      svc,
		tickers:  tickers,
		notifier: n,
		prom:     prom,
		cron:     cron.New(cron.WithSeconds(), cron.WithLogger(cron.PrintfLogger(log.Default()))),
		now:      time.Now,
		sent:     make(map[string]bool),
	}
}

// Start schedules RunOnce on spec (six-field cron with seconds) and starts
// the scheduler. Scheduled runs are skipped on exchange holidays and
// weekends. Runs stop when ctx is done or Stop is called.
func (s *Scanner) Start(ctx context.Context, spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.scheduled(ctx) }); err != nil {
		return fmt.Errorf("register scan %q: %w", spec, err)
	}
	s.cron.Start()
	log.Printf("[scanner] started (%d tickers, schedule %q)", len(s.tickers), spec)
	return nil
}

// scheduled is one cron tick. It reports whether a scan ran.
func (s *Scanner) scheduled(ctx context.Context) bool {
	if now := s.now(); !markethours.IsTradingDay(now) {
		log.Printf("[scanner] %s is not a trading day, skipping", now.In(markethours.ET).Format("2006-01-02"))
		return false
	}
	if _, err := s.RunOnce(ctx); err != nil {
		log.Printf("[scanner] run failed: %v", err)
	}
	return true
}

// Stop stops the scheduler and waits for a running scan to finish.
func (s *Scanner) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[scanner] stopped")
}

// RunOnce scans every ticker once and returns the signals it alerted on.
// A failing ticker is logged and skipped; the error reports how many
// failed. A signal whose alert could not be sent is retried on the next
// run. Tickers whose latest bar predates the last trading day are logged
// as stale but still scanned.
func (s *Scanner) RunOnce(ctx context.Context) ([]model.Signal, error) {
	if s.prom != nil {
		s.prom.ScanRuns.Inc()
	}

	var (
		alerted []model.Signal
		failed  int
	)
	for _, ticker := range s.tickers {
		if ctx.Err() != nil {
			return alerted, ctx.Err()
		}
		sigs, asOf, err := s.svc.LatestSignals(ctx, ticker)
		if err != nil {
			failed++
			log.Printf("[scanner] %s: %v", ticker, err)
			if s.prom != nil {
				s.prom.ScanFailures.WithLabelValues(ticker).Inc()
			}
			continue
		}
		if want := markethours.LastTradingDay(s.now()); asOf.Before(want) {
			log.Printf("[scanner] WARNING: %s latest bar %s predates last trading day %s",
				ticker, asOf.Format("2006-01-02"), want.Format("2006-01-02"))
			if s.prom != nil {
				s.prom.ScanStale.WithLabelValues(ticker).Inc()
			}
		}
		for _, sig := range sigs {
			if s.wasSent(sig) {
				continue
			}
			if err := s.notifier.Send(ctx, notification.SignalAlert(sig)); err != nil {
				// Left unmarked so the next run retries it.
				log.Printf("[scanner] alert %s %s: %v", ticker, sig.Kind, err)
				continue
			}
			s.markSent(sig)
			alerted = append(alerted, sig)
		}
	}

	log.Printf("[scanner] scanned %d tickers, %d new signals, %d failed", len(s.tickers), len(alerted), failed)
	if failed > 0 {
		return alerted, fmt.Errorf("%d of %d tickers failed", failed, len(s.tickers))
	}
	return alerted, nil
}

func sentKey(sig model.Signal) string {
	return sig.Ticker + "|" + string(sig.Kind) + "|" + sig.Date.Format("2006-01-02")
}

// wasSent reports whether sig has already been delivered.
func (s *Scanner) wasSent(sig model.Signal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[sentKey(sig)]
}

// markSent records a delivered sig.
func (s *Scanner) markSent(sig model.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[sentKey(sig)] = true
}
