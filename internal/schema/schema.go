package schema

// Reference partitions a foreign key can be resolved against.
const (
	// PartitionNormalized resolves against the normalized, unfiltered table.
	PartitionNormalized = ""
	// PartitionClean resolves against the clean output of the table's own filter stage.
	PartitionClean = "clean"
)

// Schema is the declared relational model of the bank dataset.
type Schema struct {
	Name   string  `json:"name" yaml:"name"`
	Tables []Table `json:"tables" yaml:"tables"`
}

// Table is one entity table.
type Table struct {
	Name        string       `json:"name" yaml:"name"`
	RawName     string       `json:"raw_name" yaml:"raw_name"`
	Columns     []Column     `json:"columns" yaml:"columns"`
	PrimaryKey  *PrimaryKey  `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty" yaml:"foreign_keys,omitempty"`
	// Filtered tables are partitioned into clean and orphaned rows.
	Filtered bool `json:"filtered" yaml:"filtered"`
}

// Column is a normalized output column.
type Column struct {
	Name     string `json:"name" yaml:"name"`
	DataType string `json:"data_type" yaml:"data_type"` // integer, text, decimal, period, date
	Nullable bool   `json:"nullable" yaml:"nullable"`
}

// PrimaryKey lists the key columns of a table.
type PrimaryKey struct {
	Columns []string `json:"columns" yaml:"columns"`
}

// ForeignKey is an existence constraint from Column to the referenced table's key.
type ForeignKey struct {
	Name             string `json:"name" yaml:"name"`
	Column           string `json:"column" yaml:"column"`
	ReferencedTable  string `json:"referenced_table" yaml:"referenced_table"`
	ReferencedColumn string `json:"referenced_column" yaml:"referenced_column"`
	Partition        string `json:"partition,omitempty" yaml:"partition,omitempty"`
}

// Reference names the key set the foreign key is checked against, e.g.
// "customers" or "accounts.clean".
func (fk ForeignKey) Reference() string {
	if fk.Partition == PartitionClean {
		return fk.ReferencedTable + "." + PartitionClean
	}
	return fk.ReferencedTable
}

// Table returns the named table or nil.
func (s *Schema) Table(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// FilteredTables returns the tables partitioned by the integrity filter, in
// declaration order.
func (s *Schema) FilteredTables() []Table {
	var out []Table
	for _, t := range s.Tables {
		if t.Filtered {
			out = append(out, t)
		}
	}
	return out
}

// KeyColumn returns the single primary-key column, or "" for composite or
// missing keys.
func (t *Table) KeyColumn() string {
	if t.PrimaryKey == nil || len(t.PrimaryKey.Columns) != 1 {
		return ""
	}
	return t.PrimaryKey.Columns[0]
}
