package engine

import (
	"context"
	"fmt"

	"github.com/bankclean/bankclean/internal/bank"
	"github.com/bankclean/bankclean/internal/dataset"
	"github.com/bankclean/bankclean/internal/integrity"
	"github.com/bankclean/bankclean/internal/source"
	"github.com/bankclean/bankclean/internal/validation"
)

// Output partitions that can be read back from an output directory.
const (
	PartitionNormalized = "normalized"
	PartitionClean      = "clean"
)

// ReadOutput reads a dataset back from CSV files written by a previous run.
// Reference tables are always read from "<entity>_normalized"; filtered
// tables are read from the requested partition.
func (e *Engine) ReadOutput(ctx context.Context, dir, partition string) (*bank.Dataset, error) {
	r := source.NewCSVReader(dir, ",")
	if err := r.Connect(ctx); err != nil {
		return nil, fmt.Errorf("opening %s: %w", dir, err)
	}
	defer r.Close()

	filtered := make(map[string]bool)
	for _, t := range e.Schema.FilteredTables() {
		filtered[t.Name] = true
	}
	names := make([]string, 0, len(bank.Entities))
	for _, entity := range bank.Entities {
		suffix := PartitionNormalized
		if filtered[entity] {
			suffix = partition
		}
		names = append(names, entity+"_"+suffix)
	}

	tables, err := source.LoadAll(ctx, r, names, nil)
	if err != nil {
		return nil, err
	}
	get := func(entity string) *dataset.Table {
		if t, ok := tables[entity+"_"+PartitionNormalized]; ok {
			return t
		}
		return tables[entity+"_"+partition]
	}
	return &bank.Dataset{
		Branches:         bank.DecodeBranches(get(bank.Branches)),
		Customers:        bank.DecodeCustomers(get(bank.Customers)),
		Employees:        bank.DecodeEmployees(get(bank.Employees)),
		EmployeeBranches: bank.DecodeEmployeeBranches(get(bank.EmployeeBranches)),
		Accounts:         bank.DecodeAccounts(get(bank.Accounts)),
		Proposals:        bank.DecodeProposals(get(bank.Proposals)),
		Transactions:     bank.DecodeTransactions(get(bank.Transactions)),
	}, nil
}

// CheckResult is the outcome of re-filtering previously normalized output.
type CheckResult struct {
	Integrity  *integrity.Result
	Validation *validation.Result
	Tables     []*dataset.Table
	Location   string
}

// Check runs the integrity filter over the "<entity>_normalized" files in
// dir and writes the partitions to the configured sinks.
func (e *Engine) Check(ctx context.Context, dir string, onStage func(integrity.StageSummary)) (*CheckResult, error) {
	ds, err := e.ReadOutput(ctx, dir, PartitionNormalized)
	if err != nil {
		return nil, err
	}
	res, err := e.Filter(ds, onStage)
	if err != nil {
		return nil, err
	}
	tables := append(ds.Tables(), res.Tables()...)
	v, err := e.Validate(tables)
	if err != nil {
		return nil, err
	}
	loc, err := e.WriteTables(ctx, res.Tables())
	if err != nil {
		return nil, err
	}
	return &CheckResult{Integrity: res, Validation: v, Tables: tables, Location: loc}, nil
}
