package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bankclean/bankclean/internal/dataset"
	"github.com/bankclean/bankclean/internal/engine"
	"github.com/bankclean/bankclean/internal/report"
)

var auditPartition string

var auditCmd = &cobra.Command{
	Use:   "audit [dir]",
	Short: "Count missing values per column",
	Long: `Read the output tables from dir (default: the output directory) and print
the number of missing values per column. --partition selects the
normalized tables or the clean partition.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		if auditPartition != engine.PartitionNormalized && auditPartition != engine.PartitionClean {
			return fmt.Errorf("unknown partition %q (expected %s or %s)", auditPartition, engine.PartitionNormalized, engine.PartitionClean)
		}

		ds, err := eng.ReadOutput(cmd.Context(), outputDir(eng, args), auditPartition)
		if err != nil {
			return err
		}
		tables := ds.Tables()
		audits := make([]dataset.NullAudit, 0, len(tables))
		for _, t := range tables {
			audits = append(audits, dataset.Audit(t))
		}
		fmt.Print(report.FormatAudits(audits))
		return nil
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditPartition, "partition", engine.PartitionNormalized, "tables to audit (normalized, clean)")
	rootCmd.AddCommand(auditCmd)
}
