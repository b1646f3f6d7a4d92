// Package validation re-checks the integrity filter's postconditions on the
// output tables, independently of the code that produced them.
package validation

import (
	"fmt"
	"time"

	"github.com/bankclean/bankclean/internal/dataset"
	"github.com/bankclean/bankclean/internal/schema"
)

// Status values.
const (
	StatusPass    = "PASS"
	StatusFail    = "FAIL"
	StatusPartial = "PARTIAL"
)

// Result holds the outcome of post-filter validation.
type Result struct {
	Status      string        `json:"status" yaml:"status"` // PASS, FAIL, PARTIAL
	Tables      []TableResult `json:"tables" yaml:"tables"`
	StartedAt   time.Time     `json:"started_at" yaml:"started_at"`
	CompletedAt time.Time     `json:"completed_at" yaml:"completed_at"`
}

// TableResult holds validation results for a single filtered table.
type TableResult struct {
	Name           string          `json:"name" yaml:"name"`
	PartitionCheck *PartitionCheck `json:"partition_check,omitempty" yaml:"partition_check,omitempty"`
	ReferenceCheck *ReferenceCheck `json:"reference_check,omitempty" yaml:"reference_check,omitempty"`
	Status         string          `json:"status" yaml:"status"` // PASS, FAIL
}

// Validator checks the "<table>_normalized", "<table>_clean" and
// "<table>_orphaned" tables of every filtered table in Schema.
type Validator struct {
	Schema *schema.Schema
	Tables map[string]*dataset.Table
	// Now defaults to time.Now.
	Now      func() time.Time
	Callback func(table, checkType string, passed bool)
}

// NewValidator indexes tables by name.
func NewValidator(s *schema.Schema, tables []*dataset.Table) *Validator {
	byName := make(map[string]*dataset.Table, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
	}
	return &Validator{Schema: s, Tables: byName}
}

// Validate runs the partition and reference checks for every filtered table.
func (v *Validator) Validate() (*Result, error) {
	result := &Result{StartedAt: v.now()}

	for _, tbl := range v.Schema.FilteredTables() {
		tr := TableResult{Name: tbl.Name, Status: StatusPass}

		pc, err := v.validatePartition(tbl)
		if err != nil {
			return nil, err
		}
		tr.PartitionCheck = pc
		if !pc.Complete {
			tr.Status = StatusFail
		}
		v.notify(tbl.Name, "partition", pc.Complete)

		rc, err := v.validateReferences(tbl)
		if err != nil {
			return nil, err
		}
		tr.ReferenceCheck = rc
		if !rc.Passed() {
			tr.Status = StatusFail
		}
		v.notify(tbl.Name, "reference", rc.Passed())

		result.Tables = append(result.Tables, tr)
	}

	result.CompletedAt = v.now()
	result.Status = computeOverallStatus(result.Tables)
	return result, nil
}

func (v *Validator) table(name string) (*dataset.Table, error) {
	t, ok := v.Tables[name]
	if !ok || t == nil {
		return nil, fmt.Errorf("%w: %s", dataset.ErrMissingTable, name)
	}
	return t, nil
}

func (v *Validator) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func (v *Validator) notify(table, checkType string, passed bool) {
	if v.Callback != nil {
		v.Callback(table, checkType, passed)
	}
}

// Failed returns the names of the tables that did not pass.
func (r *Result) Failed() []string {
	var out []string
	for _, t := range r.Tables {
		if t.Status == StatusFail {
			out = append(out, t.Name)
		}
	}
	return out
}

func computeOverallStatus(tables []TableResult) string {
	if len(tables) == 0 {
		return StatusPass
	}
	failCount := 0
	for _, t := range tables {
		if t.Status == StatusFail {
			failCount++
		}
	}
	if failCount == 0 {
		return StatusPass
	}
	if failCount == len(tables) {
		return StatusFail
	}
	return StatusPartial
}
