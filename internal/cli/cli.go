// Package cli provides the command-line interface for Stride.
package cli

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/stridefit/stride/internal/telemetry"
	"github.com/stridefit/stride/pkg/version"
)

var telemetryClient telemetry.Client

var commandStartTime time.Time

var rootCmd = &cobra.Command{
	Use:   "stride",
	Short: "Local workout sync for health-platform data",
	Long: `Stride keeps a local run log in sync with an external health platform.

It imports workouts incrementally, enriches them with GPS routes,
heart-rate correlation, splits and running dynamics in the background,
and recovers cleanly from interruptions.

Telemetry:
  Telemetry is enabled by default, always anonymous, and will never track
  workout contents, locations, or IP addresses.

  Opt-out with:
  	STRIDE_TELEMETRY_TRACKING_ENABLED=false`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		commandStartTime = time.Now()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cmd.Name() != "stride" {
			durationMs := time.Since(commandStartTime).Milliseconds()
			hasFlags := cmd.Flags().NFlag() > 0
			telemetryClient.TrackCLICommandExecuted(cmd.Name(), hasFlags, durationMs)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(resyncCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(runsCmd)
}

// Execute runs the CLI with fang enhancements.
func Execute(ctx context.Context, tc telemetry.Client) error {
	if tc == nil {
		tc = telemetry.New(nil)
	}
	telemetryClient = tc

	return fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(version.Short()),
		fang.WithCommit(version.Commit),
	)
}

// trackCLIError reports an error to telemetry and passes it through.
func trackCLIError(cmdName string, err error) error {
	if err == nil {
		return nil
	}
	telemetryClient.TrackCLIError(cmdName, classifyError(err))
	return err
}

// classifyError determines the error type for telemetry.
func classifyError(err error) string {
	errStr := err.Error()
	switch {
	case containsAny(errStr, "authorization", "denied", "not connected"):
		return "authorization_error"
	case containsAny(errStr, "database", "db"):
		return "database_error"
	case containsAny(errStr, "timeout", "connection"):
		return "network_error"
	case containsAny(errStr, "not found", "does not exist", "no route task"):
		return "not_found_error"
	case containsAny(errStr, "invalid", "parse", "format", "malformed"):
		return "validation_error"
	default:
		return "unknown_error"
	}
}

// containsAny checks if s contains any of the substrings (case-insensitive).
func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}
