package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bankclean/bankclean/internal/integrity"
	"github.com/bankclean/bankclean/internal/schema"
)

var (
	schemaOutput  string
	schemaSummary bool
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the declared tables and relations",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := schema.Bank()
		g, err := integrity.NewStageGraph(s)
		if err != nil {
			return err
		}
		order, err := g.Order()
		if err != nil {
			return err
		}
		if schemaSummary {
			fmt.Println(s.Summary())
			fmt.Printf("stage order: %s\n", strings.Join(order, " -> "))
			return nil
		}
		if schemaOutput != "" {
			if err := s.WriteYAML(schemaOutput); err != nil {
				return err
			}
			fmt.Printf("Schema written to %s\n", schemaOutput)
			return nil
		}
		data, err := s.ToYAML()
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		fmt.Println("stage_order:")
		for _, stage := range order {
			fmt.Printf("  - %s\n", stage)
		}
		return nil
	},
}

func init() {
	schemaCmd.Flags().StringVarP(&schemaOutput, "output", "o", "", "write the schema as YAML to this file")
	schemaCmd.Flags().BoolVar(&schemaSummary, "summary", false, "print a one-line-per-table summary")
	rootCmd.AddCommand(schemaCmd)
}
