// Package normalize turns the raw bank extracts into canonical entity tables.
//
// Every derivation degrades to a missing value on malformed input; the only
// error a Normalizer returns is a missing raw table. Personally identifying
// columns (tax id, email, address, birth date) and the raw date and
// transaction-name columns never reach the output.
package normalize

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankclean/bankclean/internal/bank"
	"github.com/bankclean/bankclean/internal/dataset"
)

// Normalizer derives the normalized tables. Today is the reference date for
// age computation.
type Normalizer struct {
	Today  time.Time
	Logger *slog.Logger
}

// New creates a Normalizer computing ages as of today.
func New(today time.Time, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{Today: today, Logger: logger}
}

// Raw holds the raw input tables keyed by raw table name.
type Raw map[string]*dataset.Table

// Normalize derives every normalized table from raw.
func (n *Normalizer) Normalize(raw Raw) (*bank.Dataset, error) {
	for _, name := range bank.RawTables {
		if raw[name] == nil {
			return nil, fmt.Errorf("normalizing: %w: %s", dataset.ErrMissingTable, name)
		}
	}

	links := n.EmployeeBranches(raw[bank.RawEmployeeBranches])
	ds := &bank.Dataset{
		Branches:         n.Branches(raw[bank.RawBranches]),
		Customers:        n.Customers(raw[bank.RawCustomers]),
		Employees:        n.Employees(raw[bank.RawEmployees], links),
		EmployeeBranches: links,
		Accounts:         n.Accounts(raw[bank.RawAccounts]),
		Proposals:        n.Proposals(raw[bank.RawProposals]),
		Transactions:     n.Transactions(raw[bank.RawTransactions]),
	}

	n.Logger.Info("normalized dataset",
		"branches", len(ds.Branches),
		"customers", len(ds.Customers),
		"employees", len(ds.Employees),
		"employee_branches", len(ds.EmployeeBranches),
		"accounts", len(ds.Accounts),
		"proposals", len(ds.Proposals),
		"transactions", len(ds.Transactions),
	)
	return ds, nil
}

// Branches normalizes the agencias table. The postal code is extracted from
// the free-text address.
func (n *Normalizer) Branches(t *dataset.Table) []bank.Branch {
	out := make([]bank.Branch, 0, t.Len())
	t.Each(func(r dataset.Row) {
		b := bank.Branch{
			Code:  key(r, "cod_agencia"),
			Name:  text(r, "nome"),
			City:  text(r, "cidade"),
			State: text(r, "uf"),
			Type:  text(r, "tipo_agencia"),
		}
		if ts, ok := r.Time("data_abertura"); ok {
			d := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
			b.OpeningDate = &d
		}
		if addr, ok := r.String("endereco"); ok {
			b.PostalCode, _ = ExtractPostalCode(addr)
		}
		out = append(out, b)
	})
	return out
}

// Customers normalizes the clientes table.
func (n *Normalizer) Customers(t *dataset.Table) []bank.Customer {
	out := make([]bank.Customer, 0, t.Len())
	t.Each(func(r dataset.Row) {
		out = append(out, bank.Customer{
			Code:            key(r, "cod_cliente"),
			FirstName:       text(r, "primeiro_nome"),
			LastName:        text(r, "ultimo_nome"),
			Type:            text(r, "tipo_cliente"),
			InclusionPeriod: period(r, "data_inclusao"),
			Age:             n.age(r, "data_nascimento"),
			PostalCode:      postalCode(r, "cep"),
		})
	})
	return out
}

// Employees normalizes the colaboradores table and left-joins it with the
// employee-branch links. An employee with several links is repeated once per
// branch in link order; one without links keeps a missing branch code.
func (n *Normalizer) Employees(t *dataset.Table, links []bank.EmployeeBranch) []bank.Employee {
	branchesOf := make(map[int64][]*int64)
	for _, l := range links {
		if l.EmployeeCode == nil {
			continue
		}
		branchesOf[*l.EmployeeCode] = append(branchesOf[*l.EmployeeCode], l.BranchCode)
	}

	out := make([]bank.Employee, 0, t.Len())
	t.Each(func(r dataset.Row) {
		e := bank.Employee{
			Code:       key(r, "cod_colaborador"),
			FirstName:  text(r, "primeiro_nome"),
			LastName:   text(r, "ultimo_nome"),
			Age:        n.age(r, "data_nascimento"),
			PostalCode: postalCode(r, "cep"),
		}
		var branches []*int64
		if e.Code != nil {
			branches = branchesOf[*e.Code]
		}
		if len(branches) == 0 {
			out = append(out, e)
			return
		}
		for _, b := range branches {
			linked := e
			linked.BranchCode = b
			out = append(out, linked)
		}
	})
	return out
}

// EmployeeBranches reads the colaborador_agencia link table.
func (n *Normalizer) EmployeeBranches(t *dataset.Table) []bank.EmployeeBranch {
	out := make([]bank.EmployeeBranch, 0, t.Len())
	t.Each(func(r dataset.Row) {
		out = append(out, bank.EmployeeBranch{
			EmployeeCode: key(r, "cod_colaborador"),
			BranchCode:   key(r, "cod_agencia"),
		})
	})
	return out
}

// Accounts normalizes the contas table.
func (n *Normalizer) Accounts(t *dataset.Table) []bank.Account {
	out := make([]bank.Account, 0, t.Len())
	t.Each(func(r dataset.Row) {
		out = append(out, bank.Account{
			Number:             key(r, "num_conta"),
			CustomerCode:       key(r, "cod_cliente"),
			BranchCode:         key(r, "cod_agencia"),
			EmployeeCode:       key(r, "cod_colaborador"),
			Type:               text(r, "tipo_conta"),
			OpeningPeriod:      period(r, "data_abertura"),
			LastActivityPeriod: period(r, "data_ultimo_lancamento"),
			TotalBalance:       amount(r, "saldo_total"),
			AvailableBalance:   amount(r, "saldo_disponivel"),
		})
	})
	return out
}

// Proposals normalizes the propostas_credito table.
func (n *Normalizer) Proposals(t *dataset.Table) []bank.Proposal {
	out := make([]bank.Proposal, 0, t.Len())
	t.Each(func(r dataset.Row) {
		out = append(out, bank.Proposal{
			Code:                key(r, "cod_proposta"),
			CustomerCode:        key(r, "cod_cliente"),
			EmployeeCode:        key(r, "cod_colaborador"),
			EntryPeriod:         period(r, "data_entrada_proposta"),
			MonthlyInterestRate: amount(r, "taxa_juros_mensal"),
			ProposalAmount:      amount(r, "valor_proposta"),
			FinancedAmount:      amount(r, "valor_financiamento"),
			DownPayment:         amount(r, "valor_entrada"),
			InstallmentAmount:   amount(r, "valor_prestacao"),
			Installments:        key(r, "quantidade_parcelas"),
			GracePeriod:         key(r, "carencia"),
			Status:              text(r, "status_proposta"),
		})
	})
	return out
}

// Transactions normalizes the transacoes table. The raw name is replaced by
// its simplified label and direction.
func (n *Normalizer) Transactions(t *dataset.Table) []bank.Transaction {
	out := make([]bank.Transaction, 0, t.Len())
	t.Each(func(r dataset.Row) {
		tx := bank.Transaction{
			Code:          key(r, "cod_transacao"),
			AccountNumber: key(r, "num_conta"),
			Period:        period(r, "data_transacao"),
			Amount:        amount(r, "valor_transacao"),
			Label:         bank.OtherLabel,
			Direction:     bank.Other,
		}
		if tx.Amount.Valid {
			tx.AbsoluteAmount = decimal.NewNullDecimal(tx.Amount.Decimal.Abs())
		}
		if name, ok := r.String("nome_transacao"); ok {
			tx.Label = Simplify(name)
			tx.Direction = Categorize(name)
		}
		out = append(out, tx)
	})
	return out
}

func (n *Normalizer) age(r dataset.Row, column string) *int {
	birth, ok := r.Time(column)
	if !ok {
		return nil
	}
	a := Age(birth, n.Today)
	return &a
}

func key(r dataset.Row, column string) *int64 {
	if v, ok := r.Int(column); ok {
		return &v
	}
	return nil
}

func text(r dataset.Row, column string) string {
	s, _ := r.String(column)
	return s
}

func period(r dataset.Row, column string) string {
	if ts, ok := r.Time(column); ok {
		return YearMonth(ts)
	}
	return ""
}

func amount(r dataset.Row, column string) decimal.NullDecimal {
	if d, ok := r.Decimal(column); ok {
		return decimal.NewNullDecimal(d)
	}
	return decimal.NullDecimal{}
}

func postalCode(r dataset.Row, column string) string {
	raw, ok := r.String(column)
	if !ok {
		return ""
	}
	pc, _ := FormatPostalCode(raw)
	return pc
}
