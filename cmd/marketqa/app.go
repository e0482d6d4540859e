package main

import (
	"fmt"
	"log"

	"marketqa/internal/metrics"
	"marketqa/internal/model"
	"marketqa/internal/notification"
	"marketqa/internal/qaengine"
	"marketqa/internal/store/redis"
	"marketqa/internal/store/sqlite"
)

// app holds the process-wide dependencies shared by the commands.
type app struct {
	store *sqlite.Reader
	cache *redis.ResultCache // nil when REDIS_ADDR is empty or unreachable
	prom  *metrics.Metrics
	svc   *qaengine.Service
}

// newApp opens the market store and, when configured, the response cache.
// An unreachable cache is logged and skipped; answers are still served.
func newApp() (*app, error) {
	store, err := sqlite.NewReader(sqlite.ReaderConfig{DBPath: cfg.SQLitePath, Driver: cfg.SQLiteDriver})
	if err != nil {
		return nil, fmt.Errorf("open market store: %w", err)
	}

	a := &app{store: store, prom: metrics.NewMetrics()}

	if cfg.RedisAddr != "" {
		cache, err := redis.NewCache(redis.CacheConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Printf("[marketqa] response cache disabled: %v", err)
		} else {
			a.cache = cache
			a.watchBreaker(cache.Breaker())
		}
	}

	opts := qaengine.Options{
		Thresholds: cfg.Signals,
		CacheTTL:   cfg.CacheTTL,
		Metrics:    a.prom,
	}
	if a.cache != nil {
		opts.Cache = a.cache
	}
	a.svc = qaengine.New(store, opts)
	return a, nil
}

// watchBreaker mirrors breaker transitions into the metrics.
func (a *app) watchBreaker(cb *redis.CircuitBreaker) {
	cb.OnStateChange = func(from, to redis.State) {
		a.prom.CacheCircuitBreakerState.Set(float64(to))
		if to == redis.StateOpen {
			a.prom.CacheCircuitBreakerTrips.Inc()
		}
		log.Printf("[marketqa] cache circuit breaker %s -> %s", from, to)
	}
}

// notifier fans alerts out to the log and every configured backend. When
// the cache is up, alerts are also published on the signals channel.
func (a *app) notifier() *notification.Multi {
	ns := []notification.Notifier{notification.NewLogNotifier()}
	if cfg.WebhookURL != "" {
		ns = append(ns, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.TelegramBotToken != "" {
		ns = append(ns, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if a.cache != nil {
		ns = append(ns, notification.NewPubSubNotifier(a.cache, notification.SignalChannel))
	}

	m := notification.NewMulti(ns...)
	m.OnSent = func(name string) { a.prom.AlertsSent.WithLabelValues(name).Inc() }
	return m
}

func (a *app) Close() {
	if a.cache != nil {
		a.cache.Close()
	}
	a.store.Close()
}

// printResult writes res to stdout; error results are not command failures.
func printResult(res model.QueryResult) {
	fmt.Println(res.Text())
}
