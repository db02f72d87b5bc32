package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	askLog      string
	askFlightID string
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question...>",
	Short: "Ask a question about a flight",
	Long: `Ask a question about a flight. With --log the log is analyzed first and
the question runs against the fresh analysis; with --flight the question
runs against that flight's conversation memory alone. The per-flight
conversation memory persists across invocations.

Examples:
  # Analyze a log and ask about it
  flightd ask --log flight-0042.jsonl "how was the gps signal?"

  # Follow up on a previously analyzed flight id
  flightd ask --flight 3f2a... "what about the battery?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askLog, "log", "", "telemetry log to analyze before asking")
	askCmd.Flags().StringVar(&askFlightID, "flight", "", "previously analyzed flight id")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full response as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askLog == "" && askFlightID == "" {
		return fmt.Errorf("either --log or --flight is required")
	}

	svcs, err := buildServices()
	if err != nil {
		return err
	}
	defer svcs.logger.Sync()

	flightID := askFlightID
	if askLog != "" {
		flight, err := svcs.flights.AnalyzeFile(cmd.Context(), askLog)
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}
		flightID = flight.ID
	}

	resp := svcs.chat.Process(cmd.Context(), strings.Join(args, " "), flightID)

	if askJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Println(resp.Answer)
	if resp.ComparisonInsights != "" {
		fmt.Printf("\n%s\n", resp.ComparisonInsights)
	}
	for _, suggestion := range resp.Suggestions {
		fmt.Printf("\nSuggestion: %s\n", suggestion)
	}
	return nil
}
