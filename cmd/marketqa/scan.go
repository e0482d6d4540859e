package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"marketqa/config"
	"marketqa/internal/qaengine"
)

var scanCmd = &cobra.Command{
	Use:   "scan [TICKER...]",
	Short: "Scan the watchlist once and alert on new signals",
	Long:  `Run the indicator engine for every watchlist ticker (WATCHLIST, or the tickers given as arguments) and send an alert for each signal that fired on the latest bar.`,
	RunE:  runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	tickers := cfg.Watchlist
	if len(args) > 0 {
		tickers = config.ParseWatchlist(strings.Join(args, ","))
	}
	if len(tickers) == 0 {
		return fmt.Errorf("no tickers: set WATCHLIST or pass tickers as arguments")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	scanner := qaengine.NewScanner(a.svc, tickers, a.notifier(), a.prom)
	sigs, err := scanner.RunOnce(cmd.Context())
	for _, sig := range sigs {
		fmt.Printf("%s  %-6s %s (close %.2f)\n", sig.Date.Format("2006-01-02"), sig.Ticker, sig.Kind.Label(), sig.Close)
	}
	if err != nil {
		log.Printf("[marketqa] scan: %v", err)
	}
	return err
}
