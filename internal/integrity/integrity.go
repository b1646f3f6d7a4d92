// Package integrity partitions the dependent bank tables into clean and
// orphaned rows by foreign-key existence.
//
// Stages run in the order derived from the declared relations. A stage that
// resolves keys against another stage's clean partition runs after it, so a
// transaction pointing at an orphaned account is itself orphaned.
package integrity

import (
	"fmt"
	"log/slog"

	"github.com/bankclean/bankclean/internal/bank"
	"github.com/bankclean/bankclean/internal/dataset"
	"github.com/bankclean/bankclean/internal/schema"
)

// References maps a reference name ("customers", "accounts.clean") to its key set.
type References map[string]*dataset.KeySet

// StageSummary describes the outcome of one filter stage.
type StageSummary struct {
	Stage      string         `json:"stage" yaml:"stage"`
	DependsOn  []string       `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	Input      int            `json:"input" yaml:"input"`
	Clean      int            `json:"clean" yaml:"clean"`
	Orphaned   int            `json:"orphaned" yaml:"orphaned"`
	Violations map[string]int `json:"violations" yaml:"violations"`
}

// Result holds the partitions of every filtered table.
type Result struct {
	Order            []string
	Accounts         Partition[bank.Account]
	Proposals        Partition[bank.Proposal]
	EmployeeBranches Partition[bank.EmployeeBranch]
	Transactions     Partition[bank.Transaction]
	Stages           []StageSummary
}

// Filter runs the integrity stages declared by Schema.
type Filter struct {
	Schema *schema.Schema
	Logger *slog.Logger

	// OnStageStart and OnStageDone, when set, are called synchronously
	// around each stage.
	OnStageStart func(stage string)
	OnStageDone  func(StageSummary)
}

// New creates a Filter over s.
func New(s *schema.Schema, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{Schema: s, Logger: logger}
}

var (
	accountKeys = map[string]func(bank.Account) *int64{
		"account_number": func(a bank.Account) *int64 { return a.Number },
		"customer_code":  func(a bank.Account) *int64 { return a.CustomerCode },
		"branch_code":    func(a bank.Account) *int64 { return a.BranchCode },
		"employee_code":  func(a bank.Account) *int64 { return a.EmployeeCode },
	}
	proposalKeys = map[string]func(bank.Proposal) *int64{
		"proposal_code": func(p bank.Proposal) *int64 { return p.Code },
		"customer_code": func(p bank.Proposal) *int64 { return p.CustomerCode },
		"employee_code": func(p bank.Proposal) *int64 { return p.EmployeeCode },
	}
	linkKeys = map[string]func(bank.EmployeeBranch) *int64{
		"employee_code": func(l bank.EmployeeBranch) *int64 { return l.EmployeeCode },
		"branch_code":   func(l bank.EmployeeBranch) *int64 { return l.BranchCode },
	}
	transactionKeys = map[string]func(bank.Transaction) *int64{
		"transaction_code": func(t bank.Transaction) *int64 { return t.Code },
		"account_number":   func(t bank.Transaction) *int64 { return t.AccountNumber },
	}
)

// BaseReferences builds the key sets of the unfiltered tables.
func BaseReferences(ds *bank.Dataset) References {
	return References{
		bank.Branches:  dataset.KeysOf(ds.Branches, func(b bank.Branch) *int64 { return b.Code }),
		bank.Customers: dataset.KeysOf(ds.Customers, func(c bank.Customer) *int64 { return c.Code }),
		bank.Employees: dataset.KeysOf(ds.Employees, func(e bank.Employee) *int64 { return e.Code }),
	}
}

// Run filters ds. Reference key sets come from the normalized branch,
// customer and employee tables and from the clean output of earlier stages.
func (f *Filter) Run(ds *bank.Dataset) (*Result, error) {
	graph, err := NewStageGraph(f.Schema)
	if err != nil {
		return nil, fmt.Errorf("building stage graph: %w", err)
	}
	order, err := graph.Order()
	if err != nil {
		return nil, fmt.Errorf("ordering stages: %w", err)
	}

	refs := BaseReferences(ds)
	res := &Result{Order: order}
	for _, name := range order {
		tbl := f.Schema.Table(name)
		if f.OnStageStart != nil {
			f.OnStageStart(name)
		}

		var sum StageSummary
		switch name {
		case bank.Accounts:
			res.Accounts, sum, err = runStage(tbl, ds.Accounts, accountKeys, refs)
		case bank.Proposals:
			res.Proposals, sum, err = runStage(tbl, ds.Proposals, proposalKeys, refs)
		case bank.EmployeeBranches:
			res.EmployeeBranches, sum, err = runStage(tbl, ds.EmployeeBranches, linkKeys, refs)
		case bank.Transactions:
			res.Transactions, sum, err = runStage(tbl, ds.Transactions, transactionKeys, refs)
		default:
			err = fmt.Errorf("no records bound to table %s", name)
		}
		if err != nil {
			return nil, fmt.Errorf("filtering %s: %w", name, err)
		}
		sum.DependsOn = graph.DependsOn(name)

		f.Logger.Info("integrity stage complete",
			"stage", name, "input", sum.Input, "clean", sum.Clean, "orphaned", sum.Orphaned)
		res.Stages = append(res.Stages, sum)
		if f.OnStageDone != nil {
			f.OnStageDone(sum)
		}
	}
	return res, nil
}

func runStage[T any](tbl *schema.Table, rows []T, keys map[string]func(T) *int64, refs References) (Partition[T], StageSummary, error) {
	checks := make([]Check[T], 0, len(tbl.ForeignKeys))
	for _, fk := range tbl.ForeignKeys {
		key, ok := keys[fk.Column]
		if !ok {
			return Partition[T]{}, StageSummary{}, fmt.Errorf("%w: no key binding for column %s", ErrInvalidRelation, fk.Column)
		}
		ref, ok := refs[fk.Reference()]
		if !ok {
			return Partition[T]{}, StageSummary{}, fmt.Errorf("%w: reference %s is not available", ErrInvalidRelation, fk.Reference())
		}
		checks = append(checks, Check[T]{Column: fk.Column, Key: key, Ref: ref})
	}

	p := Split(rows, checks)
	if col := tbl.KeyColumn(); col != "" {
		if key, ok := keys[col]; ok {
			refs[tbl.Name+"."+schema.PartitionClean] = dataset.KeysOf(p.Clean, key)
		}
	}

	return p, StageSummary{
		Stage:      tbl.Name,
		Input:      len(rows),
		Clean:      len(p.Clean),
		Orphaned:   len(p.Orphaned),
		Violations: p.Violations,
	}, nil
}

// Tables flattens the partitions into "<entity>_clean" and
// "<entity>_orphaned" tables, in stage order.
func (r *Result) Tables() []*dataset.Table {
	var out []*dataset.Table
	for _, name := range r.Order {
		switch name {
		case bank.Accounts:
			out = append(out, partitionTables(name, bank.Account{}, r.Accounts)...)
		case bank.Proposals:
			out = append(out, partitionTables(name, bank.Proposal{}, r.Proposals)...)
		case bank.EmployeeBranches:
			out = append(out, partitionTables(name, bank.EmployeeBranch{}, r.EmployeeBranches)...)
		case bank.Transactions:
			out = append(out, partitionTables(name, bank.Transaction{}, r.Transactions)...)
		}
	}
	return out
}

func partitionTables[T dataset.Record](name string, prototype T, p Partition[T]) []*dataset.Table {
	return []*dataset.Table{
		dataset.FromRecords(name+"_clean", prototype, p.Clean),
		dataset.FromRecords(name+"_orphaned", prototype, p.Orphaned),
	}
}

// CleanDataset returns ds with every filtered table replaced by its clean partition.
func (r *Result) CleanDataset(ds *bank.Dataset) *bank.Dataset {
	return &bank.Dataset{
		Branches:         ds.Branches,
		Customers:        ds.Customers,
		Employees:        ds.Employees,
		EmployeeBranches: r.EmployeeBranches.Clean,
		Accounts:         r.Accounts.Clean,
		Proposals:        r.Proposals.Clean,
		Transactions:     r.Transactions.Clean,
	}
}

// Stage returns the summary of the named stage.
func (r *Result) Stage(name string) (StageSummary, bool) {
	for _, s := range r.Stages {
		if s.Stage == name {
			return s, true
		}
	}
	return StageSummary{}, false
}
