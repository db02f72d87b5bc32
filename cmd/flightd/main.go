// Package main implements the flightd CLI: UAV flight-log analysis and a
// conversational interface over the analyzed flights.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/flightd/internal/analysis"
	"github.com/fyrsmithlabs/flightd/internal/anomaly"
	"github.com/fyrsmithlabs/flightd/internal/chat"
	"github.com/fyrsmithlabs/flightd/internal/config"
	"github.com/fyrsmithlabs/flightd/internal/logging"
	"github.com/fyrsmithlabs/flightd/internal/memory"
	"github.com/fyrsmithlabs/flightd/internal/provider"
)

var (
	// configPath is the optional YAML configuration file.
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "flightd",
	Short: "UAV flight-log analysis and conversational telemetry assistant",
	Long: `flightd ingests UAV telemetry logs, summarizes each flight, screens it
for anomalies, and answers questions about analyzed flights with a
per-flight conversation memory.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML configuration file")
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(sessionsCmd)
}

// services bundles the wired application services for one CLI invocation.
type services struct {
	cfg     *config.Config
	logger  *logging.Logger
	flights *analysis.Service
	memory  *memory.Service
	chat    *chat.Service
}

// buildServices loads configuration and wires the full pipeline. A missing
// provider key degrades the narrative and chat tiers instead of failing.
func buildServices() (*services, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := logging.NewDefaultConfig()
	if cfg.Logging.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
		}
		logCfg.Level = level
	}
	if cfg.Logging.Format != "" {
		logCfg.Format = cfg.Logging.Format
	}
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	prov, err := provider.New(cfg.Provider)
	if err != nil {
		if !errors.Is(err, provider.ErrNotConfigured) {
			return nil, fmt.Errorf("failed to create provider: %w", err)
		}
		prov = nil
	}

	anomalies, err := anomaly.NewService(prov, cfg.Provider.Timeout.Duration(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create anomaly service: %w", err)
	}

	flights, err := analysis.NewService(cfg, anomalies, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis service: %w", err)
	}

	mem, err := memory.NewService(cfg.Memory, memory.NewFileStore(cfg.Memory.Path), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory service: %w", err)
	}

	chatSvc, err := chat.NewService(prov, flights, mem, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat service: %w", err)
	}

	return &services{
		cfg:     cfg,
		logger:  logger,
		flights: flights,
		memory:  mem,
		chat:    chatSvc,
	}, nil
}
