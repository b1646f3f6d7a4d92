package dataset

// NullAudit reports, for one table, how many cells of each column are missing.
type NullAudit struct {
	Table   string         `json:"table" yaml:"table"`
	Rows    int            `json:"rows" yaml:"rows"`
	Columns []string       `json:"columns" yaml:"columns"`
	Nulls   map[string]int `json:"nulls" yaml:"nulls"`
}

// Audit counts missing values per column of t.
func Audit(t *Table) NullAudit {
	a := NullAudit{
		Table:   t.Name,
		Rows:    t.Len(),
		Columns: append([]string(nil), t.Columns...),
		Nulls:   make(map[string]int, len(t.Columns)),
	}
	for _, c := range t.Columns {
		a.Nulls[c] = 0
	}
	for _, row := range t.Rows {
		for i, c := range t.Columns {
			if i >= len(row) || IsNull(row[i]) {
				a.Nulls[c]++
			}
		}
	}
	return a
}

// ColumnCount is a column name paired with its missing-value count.
type ColumnCount struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
}

// Missing returns the columns with at least one missing value, in column order.
func (a NullAudit) Missing() []ColumnCount {
	var out []ColumnCount
	for _, c := range a.Columns {
		if n := a.Nulls[c]; n > 0 {
			out = append(out, ColumnCount{Column: c, Count: n})
		}
	}
	return out
}

// Total returns the number of missing cells across all columns.
func (a NullAudit) Total() int {
	total := 0
	for _, n := range a.Nulls {
		total += n
	}
	return total
}
