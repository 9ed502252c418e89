package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	queueExportPath string
	queueRetryID    string
	queueProcess    bool
	queueLimit      int
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect or drive the route enrichment queue",
	Long: `List route enrichment tasks, re-arm a failed one, or process the queue.

Processing needs --export to fetch route detail from.

Examples:
  stride queue
  stride queue --retry workout-123
  stride queue --process --export export.json --limit 10`,
	Args: cobra.NoArgs,
	RunE: runQueue,
}

func init() {
	queueCmd.Flags().StringVar(&queueRetryID, "retry", "", "re-arm the failed task for this external workout id")
	queueCmd.Flags().BoolVar(&queueProcess, "process", false, "process pending tasks")
	queueCmd.Flags().StringVar(&queueExportPath, "export", "", "path to a platform export file (required with --process)")
	queueCmd.Flags().IntVar(&queueLimit, "limit", 0, "max tasks to process (0 = all)")
}

func runQueue(cmd *cobra.Command, args []string) error {
	cfg, database, err := openDatabase()
	if err != nil {
		return trackCLIError("queue", err)
	}
	defer func() { _ = database.Close() }()

	if queueRetryID != "" {
		task, err := database.GetRouteTask(queueRetryID)
		if err != nil {
			return trackCLIError("queue", err)
		}
		telemetryClient.TrackRouteRetry(task != nil)
		if task == nil {
			return trackCLIError("queue", fmt.Errorf("no route task for %s", queueRetryID))
		}
		if err := database.ResetTaskForRetry(queueRetryID); err != nil {
			return trackCLIError("queue", err)
		}
		fmt.Printf("Task %s re-armed.\n", queueRetryID)
		return nil
	}

	if queueProcess {
		if queueExportPath == "" {
			return trackCLIError("queue", fmt.Errorf("--process requires --export"))
		}
		_, queue, err := buildPipeline(database, queueExportPath)
		if err != nil {
			return trackCLIError("queue", err)
		}
		limit := queueLimit
		if limit == 0 {
			limit = cfg.RouteQueueLimit
		}
		if err := queue.Process(cmd.Context(), limit); err != nil {
			return trackCLIError("queue", err)
		}
		stats, err := database.CountRouteTasks()
		if err != nil {
			return trackCLIError("queue", err)
		}
		fmt.Printf("Queue processed. Completed: %d, Failed: %d, Pending: %d\n",
			stats.Completed, stats.Failed, stats.Pending)
		telemetryClient.TrackQueueProcessed(int(stats.Completed), int(stats.Failed), int(stats.Pending))
		return nil
	}

	tasks, err := database.ListRouteTasks()
	if err != nil {
		return trackCLIError("queue", err)
	}
	if len(tasks) == 0 {
		fmt.Println("Queue is empty.")
		return nil
	}

	headerStyle := lipgloss.NewStyle().Bold(true)
	fmt.Println(headerStyle.Render(fmt.Sprintf("%d route tasks", len(tasks))))
	for _, task := range tasks {
		fmt.Printf("  %-12s p%d attempts=%d %s (%s)\n",
			task.Status, task.Priority, task.AttemptCount,
			task.ExternalID, task.WorkoutDate.Format("2006-01-02"))
	}
	return nil
}
