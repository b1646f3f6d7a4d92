package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bankclean/bankclean/internal/config"
	"github.com/bankclean/bankclean/internal/engine"
	"github.com/bankclean/bankclean/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	version  = "dev"
	commit   = "none"
	date     = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "bankclean",
	Short: "bankclean: retail-bank batch data cleaning",
	Long: `bankclean normalizes the raw exports of a retail bank (branches, customers,
employees, accounts, credit proposals and transactions), partitions the
dependent tables into clean and orphaned rows by referential integrity,
and audits missing values.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.bankclean/bankclean.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
}

// loadConfig reads --config, falling back to defaults when no file was
// given and the default file does not exist.
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		if _, err := os.Stat(config.ExpandHome(config.DefaultPath)); errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the run logger from the config and --log-level, and
// prunes expired log files.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, err := logging.SetupWriter(level, cfg.Logging.Directory, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}
	if n, err := logging.Prune(cfg.Logging.Directory, cfg.Logging.RetentionDays, time.Now()); err != nil {
		logger.Warn("pruning old logs", "error", err)
	} else if n > 0 {
		logger.Debug("pruned old logs", "files", n)
	}
	return logger, nil
}

// newEngine loads the config and logger and creates an engine.
func newEngine() (*engine.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	return engine.New(cfg, logger), nil
}

// outputDir returns the first argument, or the configured output directory.
func outputDir(eng *engine.Engine, args []string) string {
	if len(args) > 0 {
		return config.ExpandHome(args[0])
	}
	return eng.Config.Output.Dir
}
