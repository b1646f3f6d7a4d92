package schema

import (
	"github.com/bankclean/bankclean/internal/bank"
)

func cols(specs ...string) []Column {
	out := make([]Column, 0, len(specs)/2)
	for i := 0; i+1 < len(specs); i += 2 {
		out = append(out, Column{Name: specs[i], DataType: specs[i+1], Nullable: true})
	}
	return out
}

func pk(columns ...string) *PrimaryKey {
	return &PrimaryKey{Columns: columns}
}

func fk(table, column, refTable, refColumn, partition string) ForeignKey {
	return ForeignKey{
		Name:             "fk_" + table + "_" + column,
		Column:           column,
		ReferencedTable:  refTable,
		ReferencedColumn: refColumn,
		Partition:        partition,
	}
}

// Bank returns the relations of the retail-bank dataset. Filtered tables are
// declared in cascade order; the transaction stage resolves accounts against
// the clean output of the account stage.
func Bank() *Schema {
	return &Schema{
		Name: "bank",
		Tables: []Table{
			{
				Name:       bank.Branches,
				RawName:    bank.RawBranches,
				Columns:    cols("branch_code", "integer", "name", "text", "city", "text", "state", "text", "opening_date", "date", "branch_type", "text", "postal_code", "text"),
				PrimaryKey: pk("branch_code"),
			},
			{
				Name:       bank.Customers,
				RawName:    bank.RawCustomers,
				Columns:    cols("customer_code", "integer", "first_name", "text", "last_name", "text", "customer_type", "text", "inclusion_period", "period", "age", "integer", "postal_code", "text"),
				PrimaryKey: pk("customer_code"),
			},
			{
				Name:       bank.Employees,
				RawName:    bank.RawEmployees,
				Columns:    cols("employee_code", "integer", "first_name", "text", "last_name", "text", "branch_code", "integer", "age", "integer", "postal_code", "text"),
				PrimaryKey: pk("employee_code"),
			},
			{
				Name:       bank.Accounts,
				RawName:    bank.RawAccounts,
				Columns:    cols("account_number", "integer", "customer_code", "integer", "branch_code", "integer", "employee_code", "integer", "account_type", "text", "opening_period", "period", "last_activity_period", "period", "total_balance", "decimal", "available_balance", "decimal"),
				PrimaryKey: pk("account_number"),
				ForeignKeys: []ForeignKey{
					fk(bank.Accounts, "customer_code", bank.Customers, "customer_code", PartitionNormalized),
					fk(bank.Accounts, "branch_code", bank.Branches, "branch_code", PartitionNormalized),
					fk(bank.Accounts, "employee_code", bank.Employees, "employee_code", PartitionNormalized),
				},
				Filtered: true,
			},
			{
				Name:       bank.Proposals,
				RawName:    bank.RawProposals,
				Columns:    cols("proposal_code", "integer", "customer_code", "integer", "employee_code", "integer", "entry_period", "period", "monthly_interest_rate", "decimal", "proposal_amount", "decimal", "financed_amount", "decimal", "down_payment", "decimal", "installment_amount", "decimal", "installments", "integer", "grace_period", "integer", "status", "text"),
				PrimaryKey: pk("proposal_code"),
				ForeignKeys: []ForeignKey{
					fk(bank.Proposals, "customer_code", bank.Customers, "customer_code", PartitionNormalized),
					fk(bank.Proposals, "employee_code", bank.Employees, "employee_code", PartitionNormalized),
				},
				Filtered: true,
			},
			{
				Name:       bank.EmployeeBranches,
				RawName:    bank.RawEmployeeBranches,
				Columns:    cols("employee_code", "integer", "branch_code", "integer"),
				PrimaryKey: pk("employee_code", "branch_code"),
				ForeignKeys: []ForeignKey{
					fk(bank.EmployeeBranches, "branch_code", bank.Branches, "branch_code", PartitionNormalized),
					fk(bank.EmployeeBranches, "employee_code", bank.Employees, "employee_code", PartitionNormalized),
				},
				Filtered: true,
			},
			{
				Name:       bank.Transactions,
				RawName:    bank.RawTransactions,
				Columns:    cols("transaction_code", "integer", "account_number", "integer", "transaction_period", "period", "amount", "decimal", "absolute_amount", "decimal", "transaction_label", "text", "transaction_direction", "text"),
				PrimaryKey: pk("transaction_code"),
				ForeignKeys: []ForeignKey{
					fk(bank.Transactions, "account_number", bank.Accounts, "account_number", PartitionClean),
				},
				Filtered: true,
			},
		},
	}
}
