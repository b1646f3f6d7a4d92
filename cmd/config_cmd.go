package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and validate the bankclean configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current config (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Println("Current configuration:")
		fmt.Println()
		fmt.Printf("  Source:\n")
		fmt.Printf("    Type:           %s\n", cfg.Source.Type)
		if cfg.Source.Dir != "" {
			fmt.Printf("    Dir:            %s\n", cfg.Source.Dir)
			fmt.Printf("    Delimiter:      %q\n", cfg.Source.Delimiter)
		}
		if cfg.Source.Host != "" {
			fmt.Printf("    Host:           %s\n", cfg.Source.Host)
			fmt.Printf("    Port:           %d\n", cfg.Source.Port)
			fmt.Printf("    Database:       %s\n", cfg.Source.Database)
			fmt.Printf("    Username:       %s\n", cfg.Source.Username)
			fmt.Printf("    Password:       %s\n", maskSecret(cfg.Source.Password))
		}
		fmt.Println()
		fmt.Printf("  Output:\n")
		fmt.Printf("    Dir:            %s\n", cfg.Output.Dir)
		if cfg.Output.MongoDB.ConnectionString != "" {
			fmt.Printf("    MongoDB:        %s\n", maskSecret(cfg.Output.MongoDB.ConnectionString))
			fmt.Printf("    Database:       %s\n", cfg.Output.MongoDB.Database)
		}
		fmt.Println()
		ref := cfg.Normalize.ReferenceDate
		if ref == "" {
			ref = "(today)"
		}
		fmt.Printf("  Reference date:   %s\n", ref)
		fmt.Printf("  Macro API:        %s (timeout %ds, %d retries)\n", cfg.Macro.BaseURL, cfg.Macro.TimeoutSeconds, cfg.Macro.Retries)
		if cfg.Notify.URL != "" {
			fmt.Printf("  Notify:           %s -> %s\n", maskSecret(cfg.Notify.URL), cfg.Notify.Exchange)
		}
		if cfg.AWS.S3Bucket != "" {
			fmt.Printf("  Artifacts:        s3://%s/%s (%s)\n", cfg.AWS.S3Bucket, cfg.AWS.S3Prefix, cfg.AWS.Region)
		}
		fmt.Printf("  Logs:             %s (%s, %d days)\n", cfg.Logging.Directory, cfg.Logging.Level, cfg.Logging.RetentionDays)

		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}
		fmt.Println("Configuration is valid.")
		return nil
	},
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
