package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bankclean/bankclean/internal/analysis"
	"github.com/bankclean/bankclean/internal/macro"
)

var (
	analyzeMacro []string
	analyzeJSON  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [dir]",
	Short: "Descriptive aggregates over the clean tables",
	Long: `Read the clean partition from dir (default: the output directory) and print
monthly activity, proposal outcomes, balances, age brackets, branch types
and seasonal splits. --macro compares monthly activity with BCB series
(ipca, selic, icc or all).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		series, err := parseSeries(analyzeMacro)
		if err != nil {
			return err
		}

		r, err := eng.Analyze(cmd.Context(), outputDir(eng, args), series)
		if err != nil {
			return err
		}
		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(r)
		}
		return analysis.WriteText(os.Stdout, r)
	},
}

func parseSeries(names []string) ([]macro.Series, error) {
	var out []macro.Series
	for _, n := range names {
		if strings.EqualFold(n, "all") {
			return macro.All, nil
		}
		s, ok := macro.Lookup(n)
		if !ok {
			return nil, fmt.Errorf("unknown macro series %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}

func init() {
	analyzeCmd.Flags().StringSliceVar(&analyzeMacro, "macro", nil, "macro series to compare (ipca, selic, icc, all)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the report as JSON")
	rootCmd.AddCommand(analyzeCmd)
}
