package integrity

import (
	"github.com/bankclean/bankclean/internal/dataset"
)

// Check is one foreign-key existence constraint over records of type T.
type Check[T any] struct {
	Column string
	Key    func(T) *int64
	Ref    *dataset.KeySet
}

// Partition splits a table into rows whose foreign keys all resolve and rows
// with at least one dangling or missing key. Both keep input order.
type Partition[T any] struct {
	Clean    []T
	Orphaned []T
	// Violations counts failing rows per foreign-key column. A row failing
	// several checks is counted once per column.
	Violations map[string]int
}

// Len returns the number of input rows.
func (p Partition[T]) Len() int {
	return len(p.Clean) + len(p.Orphaned)
}

// Split evaluates every check for every row. Rows are never modified.
func Split[T any](rows []T, checks []Check[T]) Partition[T] {
	p := Partition[T]{
		Clean:      make([]T, 0, len(rows)),
		Violations: make(map[string]int, len(checks)),
	}
	for _, c := range checks {
		p.Violations[c.Column] = 0
	}
	for _, row := range rows {
		valid := true
		for _, c := range checks {
			if !c.Ref.Has(c.Key(row)) {
				p.Violations[c.Column]++
				valid = false
			}
		}
		if valid {
			p.Clean = append(p.Clean, row)
		} else {
			p.Orphaned = append(p.Orphaned, row)
		}
	}
	return p
}
