package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"marketqa/internal/logger"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Answer questions read from stdin until exit",
	RunE:  runRepl,
}

var replAnalyze bool

func init() {
	replCmd.Flags().BoolVar(&replAnalyze, "analyze", false, "treat every line as a technical analysis question")
}

func runRepl(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	answer := a.svc.Ask
	prompt := ">> Enter your query (or type 'exit' to quit): "
	if replAnalyze {
		answer = a.svc.Analyze
		prompt = "Enter your technical analysis query (or type 'exit' to quit): "
	}

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(prompt)
		if !in.Scan() {
			fmt.Println()
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		ctx := logger.WithTraceID(cmd.Context(), logger.GenerateTraceID())
		printResult(answer(ctx, line))
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
