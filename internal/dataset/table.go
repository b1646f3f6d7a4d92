// Package dataset holds the in-memory tabular representation shared by the
// readers, the normalizer and the sinks.
package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// Table is an in-memory relational table with ordered columns and positional rows.
// A nil cell is a missing value.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any

	// index maps normalized column names to positions; indexedCols is the
	// column count it was built for.
	index       map[string]int
	indexedCols int
}

// New creates an empty table with the given columns.
func New(name string, columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Name: name, Columns: cols}
}

// Append adds a row. The row must have one value per column.
func (t *Table) Append(values []any) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("table %s: row has %d values, want %d", t.Name, len(values), len(t.Columns))
	}
	t.Rows = append(t.Rows, values)
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of a column or -1 when absent. Names match
// case-insensitively; when two headers collide the first one wins.
func (t *Table) Index(column string) int {
	if t.index == nil || t.indexedCols != len(t.Columns) {
		t.index = make(map[string]int, len(t.Columns))
		for i, c := range t.Columns {
			key := columnKey(c)
			if _, dup := t.index[key]; !dup {
				t.index[key] = i
			}
		}
		t.indexedCols = len(t.Columns)
	}
	if i, ok := t.index[columnKey(column)]; ok {
		return i
	}
	return -1
}

func columnKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// HasColumn reports whether the table carries the column.
func (t *Table) HasColumn(column string) bool {
	return t.Index(column) >= 0
}

// Row returns a read accessor for row i.
func (t *Table) Row(i int) Row {
	return Row{table: t, values: t.Rows[i]}
}

// Each calls fn for every row in order.
func (t *Table) Each(fn func(Row)) {
	if t == nil {
		return
	}
	for i := range t.Rows {
		fn(t.Row(i))
	}
}

// Record is implemented by entities that can be flattened into a table row.
type Record interface {
	Header() []string
	Values() []any
}

// FromRecords builds a table from typed records. Empty slices still produce
// the header when a zero value of T is given as prototype.
func FromRecords[T Record](name string, prototype T, records []T) *Table {
	t := New(name, prototype.Header())
	t.Rows = make([][]any, 0, len(records))
	for _, r := range records {
		t.Rows = append(t.Rows, r.Values())
	}
	return t
}

// ErrMissingTable is returned when a required input table cannot be found.
var ErrMissingTable = errors.New("missing input table")
