package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connection, anchor and queue state",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	_, database, err := openDatabase()
	if err != nil {
		return trackCLIError("status", err)
	}
	defer func() { _ = database.Close() }()

	settings, err := database.GetConnectionSettings()
	if err != nil {
		return trackCLIError("status", fmt.Errorf("load connection settings: %w", err))
	}
	syncStatus, err := database.GetSyncStatus()
	if err != nil {
		return trackCLIError("status", fmt.Errorf("load sync status: %w", err))
	}
	anchors, err := database.ListAnchors()
	if err != nil {
		return trackCLIError("status", fmt.Errorf("list anchors: %w", err))
	}
	stats, err := database.CountRouteTasks()
	if err != nil {
		return trackCLIError("status", fmt.Errorf("count route tasks: %w", err))
	}
	runCount, err := database.CountRuns()
	if err != nil {
		return trackCLIError("status", fmt.Errorf("count runs: %w", err))
	}

	headerStyle := lipgloss.NewStyle().Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B6B6B"))

	fmt.Println(headerStyle.Render("Connection"))
	fmt.Printf("  State: %s (scope version %d)\n", settings.State, settings.GrantedScopeVersion)

	fmt.Println(headerStyle.Render("Sync"))
	if syncStatus.LastSyncAt != nil {
		fmt.Printf("  Last sync: %s\n", syncStatus.LastSyncAt.Format(time.RFC3339))
	} else {
		fmt.Println(dimStyle.Render("  Never synced"))
	}
	if syncStatus.LastError != "" {
		fmt.Printf("  Last error: %s\n", syncStatus.LastError)
	}
	fmt.Printf("  Runs: %d\n", runCount)

	fmt.Println(headerStyle.Render("Anchors"))
	if len(anchors) == 0 {
		fmt.Println(dimStyle.Render("  None"))
	}
	for _, anchor := range anchors {
		fmt.Printf("  %s: cursor %d bytes, synced %s\n",
			anchor.StreamID, len(anchor.Cursor), anchor.LastSyncAt.Format(time.RFC3339))
	}

	fmt.Println(headerStyle.Render("Route queue"))
	fmt.Printf("  Pending: %d, Fetching: %d, Completed: %d, Failed: %d\n",
		stats.Pending, stats.Fetching, stats.Completed, stats.Failed)
	return nil
}
