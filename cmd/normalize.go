package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bankclean/bankclean/internal/dataset"
	"github.com/bankclean/bankclean/internal/report"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize the raw tables without filtering",
	Long:  `Load and normalize the raw tables and write them as <entity>_normalized.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		if err := eng.Config.Validate(); err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}
		ctx := cmd.Context()

		ds, err := eng.Normalize(ctx)
		if err != nil {
			return err
		}
		tables := ds.Tables()
		loc, err := eng.WriteTables(ctx, tables)
		if err != nil {
			return err
		}

		audits := make([]dataset.NullAudit, 0, len(tables))
		for _, t := range tables {
			fmt.Printf("  %-28s %d rows\n", t.Name, t.Len())
			audits = append(audits, dataset.Audit(t))
		}
		fmt.Printf("\nWritten to %s\n\n", loc)
		fmt.Print(report.FormatAudits(audits))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
}
