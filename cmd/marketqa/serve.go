package main

import (
	"context"
	"log"
	"time"

	"github.com/spf13/cobra"

	"marketqa/internal/api"
	"marketqa/internal/metrics"
	"marketqa/internal/qaengine"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP and WebSocket API",
	Long:  `Serve POST /api/v1/ask, POST /api/v1/analyze, the /api/v1/ws WebSocket, health and Prometheus metrics. When WATCHLIST is set the watchlist scanner runs on SCAN_CRON in the same process.`,
	RunE:  runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides HTTP_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	health := metrics.NewHealthStatus()
	health.SetCacheEnabled(a.cache != nil)
	var cachePinger metrics.Pinger
	if a.cache != nil {
		cachePinger = a.cache
	}
	health.Probe(ctx, a.store, cachePinger)
	health.StartLivenessChecker(ctx, a.store, cachePinger, 15*time.Second)

	if len(cfg.Watchlist) > 0 {
		scanner := qaengine.NewScanner(a.svc, cfg.Watchlist, a.notifier(), a.prom)
		if err := scanner.Start(ctx, cfg.ScanCron); err != nil {
			return err
		}
		defer scanner.Stop()
	}

	addr := cfg.HTTPAddr
	if serveAddr != "" {
		addr = serveAddr
	}
	router := api.NewRouter(a.svc, health, a.prom, api.Config{
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	srv := metrics.NewServer(addr, router)
	errCh := srv.Start()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("[marketqa] shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Printf("[marketqa] server shutdown: %v", err)
	}
	log.Println("[marketqa] stopped")
	return nil
}
