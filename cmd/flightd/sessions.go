package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cleanupRetention time.Duration

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage conversation sessions",
}

var sessionsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Evict conversation sessions past the retention window",
	Long: `Evict conversation sessions whose last activity is older than the
retention window and persist the reduced session set.

Examples:
  # Evict with the configured retention (default 30 days)
  flightd sessions cleanup

  # Evict everything older than a week
  flightd sessions cleanup --retention 168h`,
	RunE: runSessionsCleanup,
}

func init() {
	sessionsCleanupCmd.Flags().DurationVar(&cleanupRetention, "retention", 0, "retention window (0 uses the configured value)")
	sessionsCmd.AddCommand(sessionsCleanupCmd)
}

func runSessionsCleanup(cmd *cobra.Command, args []string) error {
	svcs, err := buildServices()
	if err != nil {
		return err
	}
	defer svcs.logger.Sync()

	removed := svcs.memory.Cleanup(cmd.Context(), cleanupRetention)
	fmt.Printf("evicted %d session(s), %d remaining\n", removed, svcs.memory.SessionCount())
	return nil
}
