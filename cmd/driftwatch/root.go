package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "driftwatch",
	Short: "Streaming anomaly detection with concept-drift awareness",
	Long: `driftwatch detects point anomalies and concept drift in a numeric
stream. It combines an adaptive window (ADWIN) that tracks distribution
shifts with a z-score test against the window's current statistics.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, simulateCmd, replayCmd)
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}
