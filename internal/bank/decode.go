package bank

import (
	"github.com/shopspring/decimal"

	"github.com/bankclean/bankclean/internal/dataset"
)

func optInt(r dataset.Row, col string) *int64 {
	if v, ok := r.Int(col); ok {
		return &v
	}
	return nil
}

func optAge(r dataset.Row, col string) *int {
	if v, ok := r.Int(col); ok {
		n := int(v)
		return &n
	}
	return nil
}

func optText(r dataset.Row, col string) string {
	s, _ := r.String(col)
	return s
}

func optDecimal(r dataset.Row, col string) decimal.NullDecimal {
	if d, ok := r.Decimal(col); ok {
		return decimal.NewNullDecimal(d)
	}
	return decimal.NullDecimal{}
}

// DecodeBranches reads a branches_normalized table.
func DecodeBranches(t *dataset.Table) []Branch {
	out := make([]Branch, 0, t.Len())
	t.Each(func(r dataset.Row) {
		b := Branch{
			Code:       optInt(r, "branch_code"),
			Name:       optText(r, "name"),
			City:       optText(r, "city"),
			State:      optText(r, "state"),
			Type:       optText(r, "branch_type"),
			PostalCode: optText(r, "postal_code"),
		}
		if ts, ok := r.Time("opening_date"); ok {
			b.OpeningDate = &ts
		}
		out = append(out, b)
	})
	return out
}

// DecodeCustomers reads a customers_normalized table.
func DecodeCustomers(t *dataset.Table) []Customer {
	out := make([]Customer, 0, t.Len())
	t.Each(func(r dataset.Row) {
		out = append(out, Customer{
			Code:            optInt(r, "customer_code"),
			FirstName:       optText(r, "first_name"),
			LastName:        optText(r, "last_name"),
			Type:            optText(r, "customer_type"),
			InclusionPeriod: optText(r, "inclusion_period"),
			Age:             optAge(r, "age"),
			PostalCode:      optText(r, "postal_code"),
		})
	})
	return out
}

// DecodeEmployees reads an employees_normalized table.
func DecodeEmployees(t *dataset.Table) []Employee {
	out := make([]Employee, 0, t.Len())
	t.Each(func(r dataset.Row) {
		out = append(out, Employee{
			Code:       optInt(r, "employee_code"),
			FirstName:  optText(r, "first_name"),
			LastName:   optText(r, "last_name"),
			BranchCode: optInt(r, "branch_code"),
			Age:        optAge(r, "age"),
			PostalCode: optText(r, "postal_code"),
		})
	})
	return out
}

// DecodeEmployeeBranches reads an employee_branches_normalized table.
func DecodeEmployeeBranches(t *dataset.Table) []EmployeeBranch {
	out := make([]EmployeeBranch, 0, t.Len())
	t.Each(func(r dataset.Row) {
		out = append(out, EmployeeBranch{
			EmployeeCode: optInt(r, "employee_code"),
			BranchCode:   optInt(r, "branch_code"),
		})
	})
	return out
}

// DecodeAccounts reads an accounts table.
func DecodeAccounts(t *dataset.Table) []Account {
	out := make([]Account, 0, t.Len())
	t.Each(func(r dataset.Row) {
		out = append(out, Account{
			Number:             optInt(r, "account_number"),
			CustomerCode:       optInt(r, "customer_code"),
			BranchCode:         optInt(r, "branch_code"),
			EmployeeCode:       optInt(r, "employee_code"),
			Type:               optText(r, "account_type"),
			OpeningPeriod:      optText(r, "opening_period"),
			LastActivityPeriod: optText(r, "last_activity_period"),
			TotalBalance:       optDecimal(r, "total_balance"),
			AvailableBalance:   optDecimal(r, "available_balance"),
		})
	})
	return out
}

// DecodeProposals reads a proposals table.
func DecodeProposals(t *dataset.Table) []Proposal {
	out := make([]Proposal, 0, t.Len())
	t.Each(func(r dataset.Row) {
		out = append(out, Proposal{
			Code:                optInt(r, "proposal_code"),
			CustomerCode:        optInt(r, "customer_code"),
			EmployeeCode:        optInt(r, "employee_code"),
			EntryPeriod:         optText(r, "entry_period"),
			MonthlyInterestRate: optDecimal(r, "monthly_interest_rate"),
			ProposalAmount:      optDecimal(r, "proposal_amount"),
			FinancedAmount:      optDecimal(r, "financed_amount"),
			DownPayment:         optDecimal(r, "down_payment"),
			InstallmentAmount:   optDecimal(r, "installment_amount"),
			Installments:        optInt(r, "installments"),
			GracePeriod:         optInt(r, "grace_period"),
			Status:              optText(r, "status"),
		})
	})
	return out
}

// DecodeTransactions reads a transactions table.
func DecodeTransactions(t *dataset.Table) []Transaction {
	out := make([]Transaction, 0, t.Len())
	t.Each(func(r dataset.Row) {
		dir := Direction(optText(r, "transaction_direction"))
		switch dir {
		case Inflow, Outflow:
		default:
			dir = Other
		}
		out = append(out, Transaction{
			Code:           optInt(r, "transaction_code"),
			AccountNumber:  optInt(r, "account_number"),
			Period:         optText(r, "transaction_period"),
			Amount:         optDecimal(r, "amount"),
			AbsoluteAmount: optDecimal(r, "absolute_amount"),
			Label:          optText(r, "transaction_label"),
			Direction:      dir,
		})
	})
	return out
}
