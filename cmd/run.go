package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bankclean/bankclean/internal/engine"
	"github.com/bankclean/bankclean/internal/integrity"
	"github.com/bankclean/bankclean/internal/report"
	"github.com/bankclean/bankclean/internal/tui"
)

var runInteractive bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline",
	Long: `Load the raw tables, normalize them, filter them by referential integrity,
audit missing values, verify the partitions and write every output table.
A report is written to the output directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		if err := eng.Config.Validate(); err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var rep *report.RunReport
		if runInteractive {
			rep, err = tui.Run(ctx, eng)
		} else {
			rep, err = eng.Run(ctx, printCallbacks())
		}
		if err != nil {
			return err
		}

		fmt.Println()
		fmt.Print(report.FormatText(rep))
		return nil
	},
}

func printCallbacks() engine.Callbacks {
	return engine.Callbacks{
		OnStageDone: func(_, stage, detail string) {
			fmt.Printf("  [OK] %-10s %s\n", stage, detail)
		},
		OnFilterStage: func(_ string, s integrity.StageSummary) {
			fmt.Printf("       %-18s %d clean, %d orphaned\n", s.Stage, s.Clean, s.Orphaned)
		},
		OnError: func(_, stage string, err error) {
			fmt.Printf("  [XX] %-10s %v\n", stage, err)
		},
	}
}

func init() {
	runCmd.Flags().BoolVarP(&runInteractive, "interactive", "i", false, "show a live progress view")
	rootCmd.AddCommand(runCmd)
}
