package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bankclean/bankclean/internal/config"
	"github.com/bankclean/bankclean/internal/lock"
	"github.com/bankclean/bankclean/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last run and whether one is in progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := state.Load("")
		if err != nil {
			return fmt.Errorf("loading state: %w", err)
		}

		run := st.LastRun
		if run == nil {
			fmt.Println("No runs recorded.")
			return nil
		}

		fmt.Printf("Last run: %s\n", run.ID)
		fmt.Printf("  Status:      %s\n", run.Status)
		fmt.Printf("  Started:     %s\n", run.StartedAt.Format(time.RFC3339))
		if !run.CompletedAt.IsZero() {
			fmt.Printf("  Completed:   %s (%s)\n", run.CompletedAt.Format(time.RFC3339), run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond))
		}
		if run.ValidationStatus != "" {
			fmt.Printf("  Validation:  %s\n", run.ValidationStatus)
		}
		fmt.Printf("  Output:      %s\n", run.OutputDir)
		if run.ReportPath != "" {
			fmt.Printf("  Report:      %s\n", run.ReportPath)
		}
		if run.ArtifactURI != "" {
			fmt.Printf("  Artifacts:   %s\n", run.ArtifactURI)
		}
		if run.Error != "" {
			fmt.Printf("  Error:       %s\n", run.Error)
		}

		if run.OutputDir != "" {
			held, pid, err := lock.IsHeld(lock.Path(config.ExpandHome(run.OutputDir)))
			if err == nil && held {
				fmt.Printf("\nA run is in progress (pid %d).\n", pid)
			}
		}
		if len(st.History) > 1 {
			fmt.Printf("\n%d earlier runs recorded.\n", len(st.History)-1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
