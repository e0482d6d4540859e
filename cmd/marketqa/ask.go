package main

import (
	"strings"

	"github.com/spf13/cobra"

	"marketqa/internal/logger"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a data question",
	Long:  `Classify the question (fundamentals, insider transactions, options activity, price history or news), fetch the rows for its ticker and print them as a table.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [question]",
	Short: "Run a technical analysis",
	Long:  `Compute moving averages, RSI and ADX for the ticker in the question and summarize the latest values and signals over the requested window (default 30 days).`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyze,
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := logger.WithTraceID(cmd.Context(), logger.GenerateTraceID())
	printResult(a.svc.Ask(ctx, strings.Join(args, " ")))
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := logger.WithTraceID(cmd.Context(), logger.GenerateTraceID())
	printResult(a.svc.Analyze(ctx, strings.Join(args, " ")))
	return nil
}
