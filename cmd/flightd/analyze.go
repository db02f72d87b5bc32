package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <log.jsonl>",
	Short: "Analyze a telemetry log and print the flight summary",
	Long: `Analyze a JSONL telemetry log: normalize its channels, compute the
flight summary and channel digests, screen for anomalies, and run the
narrative analysis (deterministic fallback when no provider is
configured). The full flight analysis is printed as JSON.

Examples:
  # Analyze a log
  flightd analyze flight-0042.jsonl

  # With a config file
  flightd analyze --config flightd.yaml flight-0042.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	svcs, err := buildServices()
	if err != nil {
		return err
	}
	defer svcs.logger.Sync()

	flight, err := svcs.flights.AnalyzeFile(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(flight)
}
