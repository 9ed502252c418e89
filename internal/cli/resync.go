package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stridefit/stride/internal/sync"
)

var (
	resyncExportPath string
	resyncAll        bool
)

var resyncCmd = &cobra.Command{
	Use:   "resync",
	Short: "Re-fetch workouts from scratch",
	Long: `Reset the sync anchor and re-fetch workouts from the platform export.

By default only the last 14 days are reconciled, which is the
pull-to-refresh behavior. With --all the complete history is rebuilt in
parallel batches with progress reporting.

Examples:
  stride resync --export export.json
  stride resync --export export.json --all`,
	Args: cobra.NoArgs,
	RunE: runResync,
}

func init() {
	resyncCmd.Flags().StringVar(&resyncExportPath, "export", "", "path to a platform export file (required)")
	resyncCmd.Flags().BoolVar(&resyncAll, "all", false, "rebuild the complete history")
	_ = resyncCmd.MarkFlagRequired("export")
}

func runResync(cmd *cobra.Command, args []string) error {
	_, database, err := openDatabase()
	if err != nil {
		return trackCLIError("resync", err)
	}
	defer func() { _ = database.Close() }()

	orchestrator, _, err := buildPipeline(database, resyncExportPath)
	if err != nil {
		return trackCLIError("resync", err)
	}

	start := time.Now()
	mode := "recent"
	if resyncAll {
		mode = "full"
		bar := NewProgressBar(0, 20)
		orchestrator.OnProgress(func(p sync.Progress) {
			bar.SetTotal(p.Total)
			bar.Update(p.Processed, fmt.Sprintf("batch %d/%d", p.Batch, p.TotalBatches))
			fmt.Printf("\r%s", bar.Render())
		})
		err = orchestrator.ResyncAll(cmd.Context())
		fmt.Println()
		if err == nil {
			p := orchestrator.Progress()
			telemetryClient.TrackResyncProgress(p.TotalBatches, p.Total)
		}
	} else {
		err = orchestrator.ResyncRecent(cmd.Context())
	}
	if err != nil {
		telemetryClient.TrackSyncFailed(mode, classifyError(err))
		return trackCLIError("resync", err)
	}
	orchestrator.WaitBackground()

	result := orchestrator.LastResult()
	fmt.Printf("Done! Imported: %d, Updated: %d, Removed: %d, Skipped: %d\n",
		result.Imported, result.Updated, result.Removed, result.Skipped)
	telemetryClient.TrackSyncCompleted(mode,
		result.Imported, result.Updated, result.Removed, result.Skipped,
		time.Since(start).Milliseconds())
	return nil
}
