package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bankclean/bankclean/internal/integrity"
	"github.com/bankclean/bankclean/internal/tui"
	"github.com/bankclean/bankclean/internal/validation"
)

var checkCmd = &cobra.Command{
	Use:   "check [dir]",
	Short: "Filter previously normalized output by referential integrity",
	Long: `Read the <entity>_normalized files from dir (default: the output directory),
partition the dependent tables into clean and orphaned rows, verify the
partitions and write them to the configured outputs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		dir := outputDir(eng, args)

		res, err := eng.Check(cmd.Context(), dir, func(s integrity.StageSummary) {
			eng.Logger.Debug("integrity stage", "stage", s.Stage, "clean", s.Clean, "orphaned", s.Orphaned)
		})
		if err != nil {
			return err
		}

		fmt.Println(tui.SummaryTable(res.Integrity.Stages))
		for _, tr := range res.Validation.Tables {
			fmt.Printf("  %-18s %s\n", tr.Name, tr.Status)
			if tr.PartitionCheck != nil && tr.PartitionCheck.Message != "" {
				fmt.Printf("    %s\n", tr.PartitionCheck.Message)
			}
			if tr.ReferenceCheck != nil {
				for _, m := range tr.ReferenceCheck.Messages {
					fmt.Printf("    %s\n", m)
				}
			}
		}
		fmt.Printf("\nVerification: %s\nWritten to %s\n", res.Validation.Status, res.Location)
		if res.Validation.Status == validation.StatusFail {
			return fmt.Errorf("verification failed for %v", res.Validation.Failed())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
