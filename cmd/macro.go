package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bankclean/bankclean/internal/macro"
)

var (
	macroFrom string
	macroTo   string
)

var macroCmd = &cobra.Command{
	Use:   "macro <series>",
	Short: "Fetch a BCB series and print its monthly values",
	Long: `Fetch ipca, selic or icc (by name or SGS code) from the BCB API and print
one value per month. --from and --to (YYYY-MM-DD) bound ranged series.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		s, ok := macro.Lookup(args[0])
		if !ok {
			return fmt.Errorf("unknown macro series %q", args[0])
		}
		from, err := parseDate(macroFrom)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		to, err := parseDate(macroTo)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}

		obs, err := eng.MacroClient().Fetch(cmd.Context(), s, from, to)
		if err != nil {
			return err
		}
		monthly := macro.Monthly(obs)
		for _, m := range macro.Months(monthly) {
			fmt.Printf("%s  %.4f\n", m, monthly[m])
		}
		return nil
	},
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

func init() {
	macroCmd.Flags().StringVar(&macroFrom, "from", "", "first date (YYYY-MM-DD)")
	macroCmd.Flags().StringVar(&macroTo, "to", "", "last date (YYYY-MM-DD)")
	rootCmd.AddCommand(macroCmd)
}
