// cmd/marketqa answers natural-language questions about a local market
// database: fundamentals, insider trades, unusual options, prices, news and
// technical analysis.
//
// Usage:
//
//	marketqa ask "price history (AAPL) 10 days"
//	marketqa analyze "technical analysis (MSFT) 3 months"
//	marketqa repl [--analyze]
//	marketqa serve
//	marketqa scan
//	marketqa schema
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"marketqa/config"
	"marketqa/internal/logger"
)

var (
	configPath string
	dbPath     string
	logLevel   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "marketqa",
	Short:         "Ask questions about a local market database",
	Long:          `marketqa classifies a free-text question, reads the matching rows from a SQLite market database and prints them as a table, or runs a technical analysis over the price history.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.SQLitePath = dbPath
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logger.Init("marketqa", cfg.LogLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file (default $CONFIG_PATH)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "market database path (overrides SQLITE_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	rootCmd.AddCommand(askCmd, analyzeCmd, replCmd, serveCmd, scanCmd, schemaCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
