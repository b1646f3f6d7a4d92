package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	go_ora "github.com/sijms/go-ora/v2"
	"gopkg.in/yaml.v3"
)

const (
	CurrentVersion = 1
	DefaultPath    = "~/.bankclean/bankclean.yaml"
)

// Supported source types.
const (
	SourceCSV        = "csv"
	SourcePostgreSQL = "postgresql"
	SourceOracle     = "oracle"
)

// Config is the top-level configuration.
type Config struct {
	Version   int             `yaml:"version"`
	Source    SourceConfig    `yaml:"source"`
	Output    OutputConfig    `yaml:"output"`
	Normalize NormalizeConfig `yaml:"normalize,omitempty"`
	Macro     MacroConfig     `yaml:"macro,omitempty"`
	Notify    NotifyConfig    `yaml:"notify,omitempty"`
	AWS       AWSConfig       `yaml:"aws,omitempty"`
	Logging   LogConfig       `yaml:"logging,omitempty"`
}

// SourceConfig defines where the raw tables are read from.
type SourceConfig struct {
	Type      string `yaml:"type"`                // csv, postgresql or oracle
	Dir       string `yaml:"dir,omitempty"`       // csv only
	Delimiter string `yaml:"delimiter,omitempty"` // csv only, default ","
	Host      string `yaml:"host,omitempty"`
	Port      int    `yaml:"port,omitempty"`
	Database  string `yaml:"database,omitempty"` // service name for oracle
	Schema    string `yaml:"schema,omitempty"`
	Username  string `yaml:"username,omitempty"`
	Password  string `yaml:"password,omitempty"`
	SSL       bool   `yaml:"ssl,omitempty"`
	// Tables overrides the physical name of a raw table (file stem or table name).
	Tables map[string]string `yaml:"tables,omitempty"`
}

// OutputConfig defines where the normalized and partitioned tables are written.
type OutputConfig struct {
	Dir     string        `yaml:"dir"`
	MongoDB MongoDBConfig `yaml:"mongodb,omitempty"`
}

// MongoDBConfig enables the optional MongoDB sink.
type MongoDBConfig struct {
	ConnectionString string `yaml:"connection_string,omitempty"`
	Database         string `yaml:"database,omitempty"`
}

// NormalizeConfig tunes the normalizer.
type NormalizeConfig struct {
	// ReferenceDate pins the "today" used for age computation (YYYY-MM-DD).
	// Empty means the wall-clock date at the start of the run.
	ReferenceDate string `yaml:"reference_date,omitempty"`
}

// MacroConfig configures the macro-index client.
type MacroConfig struct {
	BaseURL        string `yaml:"base_url,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
	Retries        int    `yaml:"retries,omitempty"`
}

// NotifyConfig configures the run-completion publisher.
type NotifyConfig struct {
	URL      string `yaml:"url,omitempty"`
	Exchange string `yaml:"exchange,omitempty"`
}

// AWSConfig defines where run artifacts are uploaded.
type AWSConfig struct {
	Region   string `yaml:"region,omitempty"`
	Profile  string `yaml:"profile,omitempty"`
	S3Bucket string `yaml:"s3_bucket,omitempty"`
	S3Prefix string `yaml:"s3_prefix,omitempty"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level         string `yaml:"level,omitempty"`          // debug, info, warn, error
	Directory     string `yaml:"directory,omitempty"`      // default ~/.bankclean/logs/
	RetentionDays int    `yaml:"retention_days,omitempty"` // default 30
}

// Default returns a configuration reading CSV exports from ./data.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion, Source: SourceConfig{Type: SourceCSV}}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the config file from the given path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the config to the given path.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks the settings a run depends on.
func (c *Config) Validate() error {
	switch c.Source.Type {
	case SourceCSV:
		if c.Source.Dir == "" {
			return fmt.Errorf("source.dir is required for csv sources")
		}
		if len([]rune(c.Source.Delimiter)) != 1 {
			return fmt.Errorf("source.delimiter must be a single character")
		}
	case SourcePostgreSQL, SourceOracle:
		if c.Source.Host == "" || c.Source.Database == "" {
			return fmt.Errorf("source.host and source.database are required for %s sources", c.Source.Type)
		}
	default:
		return fmt.Errorf("unsupported source type %q", c.Source.Type)
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}
	if _, err := c.Normalize.Today(time.Now); err != nil {
		return err
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Source.Type == "" {
		c.Source.Type = SourceCSV
	}
	if c.Source.Type == SourceCSV && c.Source.Dir == "" {
		c.Source.Dir = "./data"
	}
	c.Source.Dir = ExpandHome(c.Source.Dir)
	if c.Source.Delimiter == "" {
		c.Source.Delimiter = ","
	}
	if c.Source.Port == 0 {
		switch c.Source.Type {
		case SourcePostgreSQL:
			c.Source.Port = 5432
		case SourceOracle:
			c.Source.Port = 1521
		}
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "./output"
	}
	c.Output.Dir = ExpandHome(c.Output.Dir)
	if c.Output.MongoDB.ConnectionString != "" && c.Output.MongoDB.Database == "" {
		c.Output.MongoDB.Database = "bankclean"
	}
	if c.Macro.BaseURL == "" {
		c.Macro.BaseURL = "https://api.bcb.gov.br/dados/serie"
	}
	if c.Macro.TimeoutSeconds == 0 {
		c.Macro.TimeoutSeconds = 30
	}
	if c.Macro.Retries == 0 {
		c.Macro.Retries = 3
	}
	if c.Notify.Exchange == "" {
		c.Notify.Exchange = "bankclean.runs"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Directory == "" {
		c.Logging.Directory = ExpandHome("~/.bankclean/logs/")
	}
	if c.Logging.RetentionDays == 0 {
		c.Logging.RetentionDays = 30
	}
}

// Today returns the pinned reference date, or the current date from now
// truncated to midnight UTC when none is configured.
func (n NormalizeConfig) Today(now func() time.Time) (time.Time, error) {
	if n.ReferenceDate == "" {
		t := now()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02", n.ReferenceDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("normalize.reference_date %q: expected YYYY-MM-DD", n.ReferenceDate)
	}
	return t, nil
}

// TableName returns the physical name configured for a raw table.
func (s SourceConfig) TableName(raw string) string {
	if name, ok := s.Tables[raw]; ok && name != "" {
		return name
	}
	return raw
}

// ConnectionString builds the driver connection string for database sources.
func (s SourceConfig) ConnectionString() string {
	switch s.Type {
	case SourcePostgreSQL:
		ssl := "disable"
		if s.SSL {
			ssl = "require"
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(s.Username, s.Password),
			Host:     fmt.Sprintf("%s:%d", s.Host, s.Port),
			Path:     s.Database,
			RawQuery: "sslmode=" + ssl,
		}
		return u.String()
	case SourceOracle:
		var opts map[string]string
		if s.SSL {
			opts = map[string]string{"SSL": "true"}
		}
		return go_ora.BuildUrl(s.Host, s.Port, s.Database, s.Username, s.Password, opts)
	}
	return ""
}

func (c *Config) resolveSecrets() error {
	var err error
	c.Source.Password, err = ResolveValue(c.Source.Password)
	if err != nil {
		return fmt.Errorf("source password: %w", err)
	}
	c.Output.MongoDB.ConnectionString, err = ResolveValue(c.Output.MongoDB.ConnectionString)
	if err != nil {
		return fmt.Errorf("mongodb connection string: %w", err)
	}
	c.Notify.URL, err = ResolveValue(c.Notify.URL)
	if err != nil {
		return fmt.Errorf("notify url: %w", err)
	}
	return nil
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
