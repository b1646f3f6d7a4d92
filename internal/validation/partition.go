package validation

import (
	"fmt"
	"strings"

	"github.com/bankclean/bankclean/internal/dataset"
	"github.com/bankclean/bankclean/internal/schema"
)

// PartitionCheck holds the result of comparing a normalized table with its
// clean and orphaned partitions.
type PartitionCheck struct {
	InputCount    int    `json:"input_count" yaml:"input_count"`
	CleanCount    int    `json:"clean_count" yaml:"clean_count"`
	OrphanedCount int    `json:"orphaned_count" yaml:"orphaned_count"`
	Complete      bool   `json:"complete" yaml:"complete"`
	Message       string `json:"message,omitempty" yaml:"message,omitempty"`
}

// validatePartition walks the input once, matching each row against the
// next unconsumed clean or orphaned row. It passes only when every row lands
// in exactly one partition with relative order kept.
func (v *Validator) validatePartition(tbl schema.Table) (*PartitionCheck, error) {
	input, err := v.table(tbl.Name + "_normalized")
	if err != nil {
		return nil, err
	}
	clean, err := v.table(tbl.Name + "_clean")
	if err != nil {
		return nil, err
	}
	orphaned, err := v.table(tbl.Name + "_orphaned")
	if err != nil {
		return nil, err
	}

	check := &PartitionCheck{
		InputCount:    input.Len(),
		CleanCount:    clean.Len(),
		OrphanedCount: orphaned.Len(),
	}
	if check.InputCount != check.CleanCount+check.OrphanedCount {
		check.Message = fmt.Sprintf("count mismatch: input=%d, clean=%d, orphaned=%d (diff=%d)",
			check.InputCount, check.CleanCount, check.OrphanedCount,
			check.InputCount-check.CleanCount-check.OrphanedCount)
		return check, nil
	}

	ci, oi := 0, 0
	for i := range input.Rows {
		row := rowKey(input.Rows[i])
		switch {
		case ci < clean.Len() && rowKey(clean.Rows[ci]) == row:
			ci++
		case oi < orphaned.Len() && rowKey(orphaned.Rows[oi]) == row:
			oi++
		default:
			check.Message = fmt.Sprintf("input row %d is missing from both partitions or out of order", i)
			return check, nil
		}
	}
	check.Complete = true
	return check, nil
}

func rowKey(row []any) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = dataset.Format(v)
	}
	return strings.Join(parts, "\x1f")
}
