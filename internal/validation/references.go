package validation

import (
	"fmt"

	"github.com/bankclean/bankclean/internal/dataset"
	"github.com/bankclean/bankclean/internal/schema"
)

// ReferenceCheck holds the result of re-resolving foreign keys.
type ReferenceCheck struct {
	// DanglingClean counts clean rows whose key does not resolve, per column.
	DanglingClean map[string]int `json:"dangling_clean" yaml:"dangling_clean"`
	// ResolvedOrphans counts orphaned rows whose keys all resolve.
	ResolvedOrphans int      `json:"resolved_orphans" yaml:"resolved_orphans"`
	Messages        []string `json:"messages,omitempty" yaml:"messages,omitempty"`
}

// Passed reports whether every clean row resolves and every orphan fails.
func (c *ReferenceCheck) Passed() bool {
	for _, n := range c.DanglingClean {
		if n > 0 {
			return false
		}
	}
	return c.ResolvedOrphans == 0
}

type columnRef struct {
	column string
	keys   *dataset.KeySet
}

// validateReferences rebuilds the reference key sets from the output tables.
// A reference to a clean partition reads "<table>_clean".
func (v *Validator) validateReferences(tbl schema.Table) (*ReferenceCheck, error) {
	refs := make([]columnRef, 0, len(tbl.ForeignKeys))
	for _, fk := range tbl.ForeignKeys {
		name := fk.ReferencedTable + "_normalized"
		if fk.Partition == schema.PartitionClean {
			name = fk.ReferencedTable + "_clean"
		}
		ref, err := v.table(name)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", fk.Name, err)
		}
		refs = append(refs, columnRef{column: fk.Column, keys: dataset.ColumnKeys(ref, fk.ReferencedColumn)})
	}

	clean, err := v.table(tbl.Name + "_clean")
	if err != nil {
		return nil, err
	}
	orphaned, err := v.table(tbl.Name + "_orphaned")
	if err != nil {
		return nil, err
	}

	check := &ReferenceCheck{DanglingClean: make(map[string]int, len(refs))}
	for _, r := range refs {
		check.DanglingClean[r.column] = 0
	}

	clean.Each(func(row dataset.Row) {
		for _, r := range refs {
			if !resolves(row, r) {
				check.DanglingClean[r.column]++
			}
		}
	})
	orphaned.Each(func(row dataset.Row) {
		for _, r := range refs {
			if !resolves(row, r) {
				return
			}
		}
		check.ResolvedOrphans++
	})

	for _, r := range refs {
		if n := check.DanglingClean[r.column]; n > 0 {
			check.Messages = append(check.Messages, fmt.Sprintf("%d clean rows with unresolved %s", n, r.column))
		}
	}
	if check.ResolvedOrphans > 0 {
		check.Messages = append(check.Messages, fmt.Sprintf("%d orphaned rows resolve every key", check.ResolvedOrphans))
	}
	return check, nil
}

func resolves(row dataset.Row, r columnRef) bool {
	k, ok := row.Int(r.column)
	return ok && r.keys.Contains(k)
}
