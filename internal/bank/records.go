package bank

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankclean/bankclean/internal/dataset"
)

func intValue(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func ageValue(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func textValue(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func decimalValue(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal
}

func dateValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// Header lists the output columns of a branch table.
func (Branch) Header() []string {
	return []string{"branch_code", "name", "city", "state", "opening_date", "branch_type", "postal_code"}
}

// Values returns the row in Header order.
func (b Branch) Values() []any {
	return []any{intValue(b.Code), textValue(b.Name), textValue(b.City), textValue(b.State),
		dateValue(b.OpeningDate), textValue(b.Type), textValue(b.PostalCode)}
}

// Header lists the output columns of a customer table.
func (Customer) Header() []string {
	return []string{"customer_code", "first_name", "last_name", "customer_type", "inclusion_period", "age", "postal_code"}
}

// Values returns the row in Header order.
func (c Customer) Values() []any {
	return []any{intValue(c.Code), textValue(c.FirstName), textValue(c.LastName), textValue(c.Type),
		textValue(c.InclusionPeriod), ageValue(c.Age), textValue(c.PostalCode)}
}

// Header lists the output columns of a employee table.
func (Employee) Header() []string {
	return []string{"employee_code", "first_name", "last_name", "branch_code", "age", "postal_code"}
}

// Values returns the row in Header order.
func (e Employee) Values() []any {
	return []any{intValue(e.Code), textValue(e.FirstName), textValue(e.LastName), intValue(e.BranchCode),
		ageValue(e.Age), textValue(e.PostalCode)}
}

// Header lists the output columns of a employee-branch link table.
func (EmployeeBranch) Header() []string {
	return []string{"employee_code", "branch_code"}
}

// Values returns the row in Header order.
func (l EmployeeBranch) Values() []any {
	return []any{intValue(l.EmployeeCode), intValue(l.BranchCode)}
}

// Header lists the output columns of a account table.
func (Account) Header() []string {
	return []string{"account_number", "customer_code", "branch_code", "employee_code", "account_type",
		"opening_period", "last_activity_period", "total_balance", "available_balance"}
}

// Values returns the row in Header order.
func (a Account) Values() []any {
	return []any{intValue(a.Number), intValue(a.CustomerCode), intValue(a.BranchCode), intValue(a.EmployeeCode),
		textValue(a.Type), textValue(a.OpeningPeriod), textValue(a.LastActivityPeriod),
		decimalValue(a.TotalBalance), decimalValue(a.AvailableBalance)}
}

// Header lists the output columns of a proposal table.
func (Proposal) Header() []string {
	return []string{"proposal_code", "customer_code", "employee_code", "entry_period", "monthly_interest_rate",
		"proposal_amount", "financed_amount", "down_payment", "installment_amount", "installments",
		"grace_period", "status"}
}

// Values returns the row in Header order.
func (p Proposal) Values() []any {
	return []any{intValue(p.Code), intValue(p.CustomerCode), intValue(p.EmployeeCode), textValue(p.EntryPeriod),
		decimalValue(p.MonthlyInterestRate), decimalValue(p.ProposalAmount), decimalValue(p.FinancedAmount),
		decimalValue(p.DownPayment), decimalValue(p.InstallmentAmount), intValue(p.Installments),
		intValue(p.GracePeriod), textValue(p.Status)}
}

// Header lists the output columns of a transaction table.
func (Transaction) Header() []string {
	return []string{"transaction_code", "account_number", "transaction_period", "amount", "absolute_amount",
		"transaction_label", "transaction_direction"}
}

// Values returns the row in Header order.
func (t Transaction) Values() []any {
	return []any{intValue(t.Code), intValue(t.AccountNumber), textValue(t.Period), decimalValue(t.Amount),
		decimalValue(t.AbsoluteAmount), textValue(t.Label), textValue(string(t.Direction))}
}

// Tables flattens the normalized dataset into one table per entity, named
// "<entity>_normalized".
func (d *Dataset) Tables() []*dataset.Table {
	return []*dataset.Table{
		dataset.FromRecords(Branches+"_normalized", Branch{}, d.Branches),
		dataset.FromRecords(Customers+"_normalized", Customer{}, d.Customers),
		dataset.FromRecords(Employees+"_normalized", Employee{}, d.Employees),
		dataset.FromRecords(EmployeeBranches+"_normalized", EmployeeBranch{}, d.EmployeeBranches),
		dataset.FromRecords(Accounts+"_normalized", Account{}, d.Accounts),
		dataset.FromRecords(Proposals+"_normalized", Proposal{}, d.Proposals),
		dataset.FromRecords(Transactions+"_normalized", Transaction{}, d.Transactions),
	}
}
