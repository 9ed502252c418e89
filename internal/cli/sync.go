package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var syncExportPath string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one incremental sync cycle",
	Long: `Run one incremental anchored sync cycle against a platform export file.

Only records added or removed since the last sync are processed; route
enrichment for newly imported workouts runs in the background before the
command returns.

Examples:
  stride sync --export export.json`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncExportPath, "export", "", "path to a platform export file (required)")
	_ = syncCmd.MarkFlagRequired("export")
}

func runSync(cmd *cobra.Command, args []string) error {
	_, database, err := openDatabase()
	if err != nil {
		return trackCLIError("sync", err)
	}
	defer func() { _ = database.Close() }()

	orchestrator, _, err := buildPipeline(database, syncExportPath)
	if err != nil {
		return trackCLIError("sync", err)
	}

	start := time.Now()
	if err := orchestrator.Sync(cmd.Context()); err != nil {
		telemetryClient.TrackSyncFailed("incremental", classifyError(err))
		return trackCLIError("sync", err)
	}
	orchestrator.WaitBackground()

	result := orchestrator.LastResult()
	count, err := database.CountRuns()
	if err != nil {
		return trackCLIError("sync", err)
	}

	headerStyle := lipgloss.NewStyle().Bold(true)
	fmt.Println(headerStyle.Render("Sync complete"))
	fmt.Printf("Imported: %d, Updated: %d, Removed: %d, Skipped: %d\n",
		result.Imported, result.Updated, result.Removed, result.Skipped)
	fmt.Printf("Runs in collection: %d\n", count)
	telemetryClient.TrackSyncCompleted("incremental",
		result.Imported, result.Updated, result.Removed, result.Skipped,
		time.Since(start).Milliseconds())
	return nil
}
