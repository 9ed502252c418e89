package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored runs",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "max runs to show (0 = all)")
}

func runRuns(cmd *cobra.Command, args []string) error {
	_, database, err := openDatabase()
	if err != nil {
		return trackCLIError("runs", err)
	}
	defer func() { _ = database.Close() }()

	runs, err := database.ListRuns(runsLimit)
	if err != nil {
		return trackCLIError("runs", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs stored. Run 'stride sync' first.")
		return nil
	}

	headerStyle := lipgloss.NewStyle().Bold(true)
	fmt.Println(headerStyle.Render(fmt.Sprintf("%d runs", len(runs))))
	for _, run := range runs {
		hr := "-"
		if run.AvgHeartRate != nil && *run.AvgHeartRate > 0 {
			hr = fmt.Sprintf("%.0f bpm", *run.AvgHeartRate)
		}
		fmt.Printf("  %s  %-28s %6.2f km  %5ds  %s\n",
			run.Date.Format("2006-01-02"), run.WorkoutKind,
			run.DistanceKm, run.DurationSec, hr)
	}
	return nil
}
