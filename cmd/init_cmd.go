package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bankclean/bankclean/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file interactively",
	Long:  `Walk through prompts to create a bankclean configuration file at ~/.bankclean/bankclean.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)

		fmt.Println("bankclean Configuration Setup")
		fmt.Println("=============================")
		fmt.Println()

		fmt.Println("Source")
		fmt.Println("------")
		cfg := &config.Config{Version: config.CurrentVersion}
		cfg.Source.Type = prompt(reader, "Source type (csv/postgresql/oracle)", config.SourceCSV)
		switch cfg.Source.Type {
		case config.SourceCSV:
			cfg.Source.Dir = prompt(reader, "Directory with the raw CSV exports", "./data")
			cfg.Source.Delimiter = prompt(reader, "Delimiter", ",")
		case config.SourcePostgreSQL, config.SourceOracle:
			cfg.Source.Host = prompt(reader, "Host", "localhost")
			portStr := prompt(reader, "Port", defaultPort(cfg.Source.Type))
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return fmt.Errorf("invalid port: %s", portStr)
			}
			cfg.Source.Port = port
			cfg.Source.Database = prompt(reader, "Database (service name for oracle)", "")
			cfg.Source.Schema = prompt(reader, "Schema (leave empty for default)", "")
			cfg.Source.Username = prompt(reader, "Username", "")
			cfg.Source.Password = prompt(reader, "Password (or env:/vault:/awssm: reference)", "")
		default:
			return fmt.Errorf("unsupported source type %q", cfg.Source.Type)
		}
		fmt.Println()

		fmt.Println("Output")
		fmt.Println("------")
		cfg.Output.Dir = prompt(reader, "Output directory", "./output")
		cfg.Output.MongoDB.ConnectionString = prompt(reader, "MongoDB connection string (optional)", "")
		if cfg.Output.MongoDB.ConnectionString != "" {
			cfg.Output.MongoDB.Database = prompt(reader, "MongoDB database", "bankclean")
		}
		cfg.Normalize.ReferenceDate = prompt(reader, "Reference date for ages, YYYY-MM-DD (empty for today)", "")
		fmt.Println()

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}

		cfgPath := config.ExpandHome(config.DefaultPath)
		if cfgFile != "" {
			cfgPath = cfgFile
		}
		if err := cfg.Save(cfgPath); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		fmt.Printf("Config written to %s\n", cfgPath)
		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("  bankclean run -i   Run the pipeline with a progress view")
		fmt.Println("  bankclean serve    Start the HTTP API")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func prompt(reader *bufio.Reader, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("  %s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("  %s: ", label)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}

func defaultPort(dbType string) string {
	switch dbType {
	case config.SourceOracle:
		return "1521"
	default:
		return "5432"
	}
}
