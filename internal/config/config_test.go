package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bankclean.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `version: 1
source:
  type: postgresql
  host: localhost
  database: bank
  username: bank
  password: secret
output:
  dir: /tmp/bankclean-out
  mongodb:
    connection_string: "mongodb://localhost:27017"
normalize:
  reference_date: "2024-03-15"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Source.Type != SourcePostgreSQL {
		t.Errorf("expected source type postgresql, got %s", cfg.Source.Type)
	}
	if cfg.Source.Port != 5432 {
		t.Errorf("expected default port 5432, got %d", cfg.Source.Port)
	}
	if cfg.Output.MongoDB.Database != "bankclean" {
		t.Errorf("expected default mongodb database, got %q", cfg.Output.MongoDB.Database)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level info, got %s", cfg.Logging.Level)
	}
	if cfg.Macro.Retries != 3 || cfg.Macro.TimeoutSeconds != 30 {
		t.Errorf("unexpected macro defaults %+v", cfg.Macro)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadInvalidVersion(t *testing.T) {
	path := writeConfig(t, "version: 99\nsource:\n  type: csv\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid version")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Source.Type != SourceCSV || cfg.Source.Dir != "./data" || cfg.Source.Delimiter != "," {
		t.Errorf("unexpected source defaults %+v", cfg.Source)
	}
	if cfg.Output.Dir != "./output" {
		t.Errorf("unexpected output dir %q", cfg.Output.Dir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown source", func(c *Config) { c.Source.Type = "excel" }},
		{"db without host", func(c *Config) { c.Source.Type = SourceOracle; c.Source.Host = "" }},
		{"long delimiter", func(c *Config) { c.Source.Delimiter = ";;" }},
		{"bad reference date", func(c *Config) { c.Normalize.ReferenceDate = "15/03/2024" }},
		{"no output", func(c *Config) { c.Output.Dir = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestNormalizeToday(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 3, 14, 18, 30, 0, 0, time.UTC) }

	got, err := NormalizeConfig{}.Today(now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected wall-clock date, got %v", got)
	}

	got, err = NormalizeConfig{ReferenceDate: "2024-03-15"}.Today(now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Day() != 15 {
		t.Errorf("expected pinned date, got %v", got)
	}
}

func TestConnectionString(t *testing.T) {
	pg := SourceConfig{Type: SourcePostgreSQL, Host: "db", Port: 5432, Database: "bank", Username: "u", Password: "p@ss", SSL: true}
	got := pg.ConnectionString()
	if !strings.HasPrefix(got, "postgres://u:p%40ss@db:5432/bank") || !strings.Contains(got, "sslmode=require") {
		t.Errorf("unexpected postgres connection string %q", got)
	}

	ora := SourceConfig{Type: SourceOracle, Host: "ora", Port: 1521, Database: "XEPDB1", Username: "u", Password: "p"}
	if got := ora.ConnectionString(); !strings.HasPrefix(got, "oracle://") || !strings.Contains(got, "ora:1521") {
		t.Errorf("unexpected oracle connection string %q", got)
	}

	if (SourceConfig{Type: SourceCSV}).ConnectionString() != "" {
		t.Error("csv sources have no connection string")
	}
}

func TestTableName(t *testing.T) {
	s := SourceConfig{Tables: map[string]string{"contas": "contas_2024"}}
	if s.TableName("contas") != "contas_2024" || s.TableName("clientes") != "clientes" {
		t.Error("unexpected table name mapping")
	}
}

func TestResolveEnvSecret(t *testing.T) {
	t.Setenv("TEST_SECRET", "mysecret")
	val, err := ResolveValue("${ENV:TEST_SECRET}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "mysecret" {
		t.Errorf("expected mysecret, got %s", val)
	}
}

func TestResolveEnvSecret_Unset(t *testing.T) {
	t.Setenv("TEST_SECRET_UNSET", "")
	if _, err := ResolveValue("prefix-${ENV:TEST_SECRET_UNSET}"); err == nil {
		t.Error("expected error for unset variable")
	}
}

func TestResolvePlainValue(t *testing.T) {
	val, err := ResolveValue("plaintext")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "plaintext" {
		t.Errorf("expected plaintext, got %s", val)
	}
}

func TestLoadResolvesSecrets(t *testing.T) {
	t.Setenv("BANKCLEAN_PG_PASSWORD", "from-env")
	path := writeConfig(t, `version: 1
source:
  type: postgresql
  host: localhost
  database: bank
  password: "${ENV:BANKCLEAN_PG_PASSWORD}"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Source.Password != "from-env" {
		t.Errorf("expected resolved password, got %q", cfg.Source.Password)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bankclean.yaml")
	cfg := Default()
	cfg.Normalize.ReferenceDate = "2024-01-31"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Normalize.ReferenceDate != "2024-01-31" {
		t.Errorf("reference date lost: %q", loaded.Normalize.ReferenceDate)
	}
}
