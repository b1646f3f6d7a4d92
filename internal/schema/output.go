package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadYAML reads a schema from a YAML file.
func LoadYAML(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	s := &Schema{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	return s, nil
}

// WriteYAML writes the schema to a YAML file at the given path.
func (s *Schema) WriteYAML(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling schema: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// ToYAML returns the schema as a YAML byte slice.
func (s *Schema) ToYAML() ([]byte, error) {
	return yaml.Marshal(s)
}

// Summary returns a human-readable summary of the schema.
func (s *Schema) Summary() string {
	var totalCols, totalFKs, filtered int
	for _, t := range s.Tables {
		totalCols += len(t.Columns)
		totalFKs += len(t.ForeignKeys)
		if t.Filtered {
			filtered++
		}
	}
	return fmt.Sprintf("%d tables, %d columns, %d foreign keys\n%d tables filtered for referential integrity",
		len(s.Tables), totalCols, totalFKs, filtered)
}
