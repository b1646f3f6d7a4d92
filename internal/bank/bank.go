// Package bank defines the normalized retail-bank entities produced by the
// normalizer and partitioned by the integrity filter.
package bank

import (
	"time"

	"github.com/shopspring/decimal"
)

// Raw table names as exported by the core banking system.
const (
	RawBranches         = "agencias"
	RawCustomers        = "clientes"
	RawEmployees        = "colaboradores"
	RawEmployeeBranches = "colaborador_agencia"
	RawAccounts         = "contas"
	RawProposals        = "propostas_credito"
	RawTransactions     = "transacoes"
)

// RawTables lists every raw table the pipeline loads, in load order.
var RawTables = []string{
	RawBranches,
	RawCustomers,
	RawEmployees,
	RawEmployeeBranches,
	RawAccounts,
	RawProposals,
	RawTransactions,
}

// Entity names used for output tables and relations.
const (
	Branches         = "branches"
	Customers        = "customers"
	Employees        = "employees"
	EmployeeBranches = "employee_branches"
	Accounts         = "accounts"
	Proposals        = "proposals"
	Transactions     = "transactions"
)

// Entities lists the entity names in load order.
var Entities = []string{
	Branches,
	Customers,
	Employees,
	EmployeeBranches,
	Accounts,
	Proposals,
	Transactions,
}

// Direction classifies a transaction as money entering or leaving an account.
type Direction string

const (
	Inflow  Direction = "Inflow"
	Outflow Direction = "Outflow"
	Other   Direction = "Other"
)

// OtherLabel is the simplified label of a transaction type outside the taxonomy.
const OtherLabel = "Other"

// Branch is a bank branch.
type Branch struct {
	Code        *int64
	Name        string
	City        string
	State       string
	OpeningDate *time.Time
	Type        string
	PostalCode  string
}

// Customer is a bank customer with PII removed.
type Customer struct {
	Code            *int64
	FirstName       string
	LastName        string
	Type            string
	InclusionPeriod string
	Age             *int
	PostalCode      string
}

// Employee is a bank employee with PII removed. BranchCode comes from the
// employee-branch link; an employee linked to several branches appears once
// per branch.
type Employee struct {
	Code       *int64
	FirstName  string
	LastName   string
	BranchCode *int64
	Age        *int
	PostalCode string
}

// EmployeeBranch links an employee to a branch.
type EmployeeBranch struct {
	EmployeeCode *int64
	BranchCode   *int64
}

// Account is a customer account opened at a branch by an employee.
type Account struct {
	Number             *int64
	CustomerCode       *int64
	BranchCode         *int64
	EmployeeCode       *int64
	Type               string
	OpeningPeriod      string
	LastActivityPeriod string
	TotalBalance       decimal.NullDecimal
	AvailableBalance   decimal.NullDecimal
}

// Proposal is a credit proposal.
type Proposal struct {
	Code                *int64
	CustomerCode        *int64
	EmployeeCode        *int64
	EntryPeriod         string
	MonthlyInterestRate decimal.NullDecimal
	ProposalAmount      decimal.NullDecimal
	FinancedAmount      decimal.NullDecimal
	DownPayment         decimal.NullDecimal
	InstallmentAmount   decimal.NullDecimal
	Installments        *int64
	GracePeriod         *int64
	Status              string
}

// Transaction is an account movement.
type Transaction struct {
	Code           *int64
	AccountNumber  *int64
	Period         string
	Amount         decimal.NullDecimal
	AbsoluteAmount decimal.NullDecimal
	Label          string
	Direction      Direction
}

// Dataset is the full set of normalized tables.
type Dataset struct {
	Branches         []Branch
	Customers        []Customer
	Employees        []Employee
	EmployeeBranches []EmployeeBranch
	Accounts         []Account
	Proposals        []Proposal
	Transactions     []Transaction
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
