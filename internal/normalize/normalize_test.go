package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/bankclean/bankclean/internal/bank"
	"github.com/bankclean/bankclean/internal/dataset"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestFormatPostalCode(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12345-678", "12345-678", true},
		{"12.345-678", "12345-678", true},
		{"12345678", "12345-678", true},
		{" 01310 100 ", "01310-100", true},
		{"1234567", "", false},
		{"123456789", "", false},
		{"", "", false},
		{"abc", "", false},
	}
	for _, c := range cases {
		got, ok := FormatPostalCode(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("FormatPostalCode(%q) = (%q, %v), want (%q, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestFormatPostalCode_Idempotent(t *testing.T) {
	for _, in := range []string{"12345-678", "00000-000", "99999-999"} {
		once, ok := FormatPostalCode(in)
		if !ok {
			t.Fatalf("%q should be valid", in)
		}
		twice, _ := FormatPostalCode(once)
		if once != in || twice != once {
			t.Errorf("%q: not idempotent (%q, %q)", in, once, twice)
		}
	}
}

func TestExtractPostalCode(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Rua das Flores, 123 - Centro, São Paulo - SP, 01310-100", "01310-100", true},
		{"Av. Brasil 500, CEP 20040-002 e 20040-003", "20040-002", true},
		{"Praça sem CEP", "", false},
		{"codigo 1234-567", "", false},
	}
	for _, c := range cases {
		got, ok := ExtractPostalCode(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("ExtractPostalCode(%q) = (%q, %v), want (%q, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestAge_Boundary(t *testing.T) {
	birth := date("2000-03-15")
	if got := Age(birth, date("2024-03-14")); got != 23 {
		t.Errorf("day before birthday: got %d, want 23", got)
	}
	if got := Age(birth, date("2024-03-15")); got != 24 {
		t.Errorf("on birthday: got %d, want 24", got)
	}
	if got := Age(birth, date("2024-02-20")); got != 23 {
		t.Errorf("earlier month: got %d, want 23", got)
	}
	if got := Age(birth, date("2024-12-01")); got != 24 {
		t.Errorf("later month: got %d, want 24", got)
	}
}

func TestYearMonth(t *testing.T) {
	if got := YearMonth(date("2023-07-31")); got != "2023-07" {
		t.Errorf("got %q", got)
	}
}

func TestClassificationTotality(t *testing.T) {
	for _, name := range KnownTransactionNames() {
		d := Categorize(name)
		if d != bank.Inflow && d != bank.Outflow {
			t.Errorf("%q: expected a direction, got %s", name, d)
		}
		if Simplify(name) == bank.OtherLabel {
			t.Errorf("%q: expected a simplified label", name)
		}
	}

	collapsed := map[string]string{
		"Pix - Recebido":                   "Pix",
		"Pix - Realizado":                  "Pix",
		"TED - Recebido":                   "TED",
		"TED - Realizado":                  "TED",
		"DOC - Recebido":                   "DOC",
		"DOC - Realizado":                  "DOC",
		"Transferência entre CC - Crédito": "Transferência entre CC",
		"Transferência entre CC - Débito":  "Transferência entre CC",
		"Saque":                            "Saque",
	}
	for in, want := range collapsed {
		if got := Simplify(in); got != want {
			t.Errorf("Simplify(%q) = %q, want %q", in, got, want)
		}
	}

	if Categorize("Foo Bar") != bank.Other || Simplify("Foo Bar") != bank.OtherLabel {
		t.Error("unknown label should map to (Other, Other)")
	}
	if Categorize("pix - recebido") != bank.Other {
		t.Error("lookup must be exact")
	}
	if Categorize("Pix - Recebido") != bank.Inflow || Categorize("Pix - Realizado") != bank.Outflow {
		t.Error("unexpected Pix directions")
	}
}

func rawTables() Raw {
	branches := dataset.New(bank.RawBranches, []string{"cod_agencia", "nome", "endereco", "cidade", "uf", "data_abertura", "tipo_agencia"})
	branches.Rows = [][]any{
		{"1", "Agência Centro", "Rua A, 10 - Centro, São Paulo - SP, 01310-100", "São Paulo", "SP", "2010-05-20", "Física"},
		{"2", "Agência Digital", "", "Rio de Janeiro", "RJ", "bad", "Digital"},
	}
	customers := dataset.New(bank.RawCustomers, []string{"cod_cliente", "primeiro_nome", "ultimo_nome", "email", "tipo_cliente", "data_inclusao", "cpfcnpj", "data_nascimento", "endereco", "cep"})
	customers.Rows = [][]any{
		{"1", "Ana", "Silva", "ana@example.com", "PF", "2021-02-03 10:00:00 UTC", "123.456.789-00", "2000-03-15", "Rua B", "12.345-678"},
		{"2", "Bruno", "Souza", "b@example.com", "PF", "", "", "unknown", "", "1234567"},
	}
	employees := dataset.New(bank.RawEmployees, []string{"cod_colaborador", "primeiro_nome", "ultimo_nome", "email", "cpf", "data_nascimento", "endereco", "cep"})
	employees.Rows = [][]any{
		{"10", "Carla", "Lima", "c@example.com", "000", "1990-01-01", "Rua C", "01310100"},
		{"11", "Diego", "Reis", "d@example.com", "111", "1985-12-31", "Rua D", ""},
	}
	links := dataset.New(bank.RawEmployeeBranches, []string{"cod_colaborador", "cod_agencia"})
	links.Rows = [][]any{{"10", "1"}, {"10", "2"}}
	accounts := dataset.New(bank.RawAccounts, []string{"num_conta", "cod_cliente", "cod_agencia", "cod_colaborador", "tipo_conta", "data_abertura", "saldo_total", "saldo_disponivel", "data_ultimo_lancamento"})
	accounts.Rows = [][]any{
		{"100", "1", "1", "10", "PF", "2021-02-03 11:00:00 UTC", "1500.25", "1400", "2023-12-30 09:00:00 UTC"},
	}
	proposals := dataset.New(bank.RawProposals, []string{"cod_proposta", "cod_cliente", "cod_colaborador", "data_entrada_proposta", "taxa_juros_mensal", "valor_proposta", "valor_financiamento", "valor_entrada", "valor_prestacao", "quantidade_parcelas", "carencia", "status_proposta"})
	proposals.Rows = [][]any{
		{"500", "1", "10", "2022-06-01 00:00:00 UTC", "0.015", "10000", "9000", "1000", "450.5", "24", "0", "Aprovada"},
	}
	transactions := dataset.New(bank.RawTransactions, []string{"cod_transacao", "num_conta", "data_transacao", "nome_transacao", "valor_transacao"})
	transactions.Rows = [][]any{
		{"1", "100", "2023-01-05 12:00:00 UTC", "Pix - Realizado", "-250.10"},
		{"2", "100", "2023-01-06 12:00:00 UTC", "Foo Bar", "10"},
		{"3", "100", "garbage", "", ""},
	}
	return Raw{
		bank.RawBranches:         branches,
		bank.RawCustomers:        customers,
		bank.RawEmployees:        employees,
		bank.RawEmployeeBranches: links,
		bank.RawAccounts:         accounts,
		bank.RawProposals:        proposals,
		bank.RawTransactions:     transactions,
	}
}

func TestNormalize(t *testing.T) {
	n := New(date("2024-03-14"), nil)
	ds, err := n.Normalize(rawTables())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ds.Branches[0].PostalCode != "01310-100" || ds.Branches[1].PostalCode != "" {
		t.Errorf("unexpected branch postal codes: %q, %q", ds.Branches[0].PostalCode, ds.Branches[1].PostalCode)
	}
	if ds.Branches[0].OpeningDate == nil || ds.Branches[1].OpeningDate != nil {
		t.Error("unexpected branch opening dates")
	}

	ana := ds.Customers[0]
	if ana.Age == nil || *ana.Age != 23 {
		t.Errorf("expected age 23, got %v", ana.Age)
	}
	if ana.InclusionPeriod != "2021-02" || ana.PostalCode != "12345-678" {
		t.Errorf("unexpected customer %+v", ana)
	}
	bruno := ds.Customers[1]
	if bruno.Age != nil || bruno.InclusionPeriod != "" || bruno.PostalCode != "" {
		t.Errorf("malformed fields should be missing: %+v", bruno)
	}

	if len(ds.Employees) != 3 {
		t.Fatalf("expected employee 10 duplicated per branch, got %d rows", len(ds.Employees))
	}
	if *ds.Employees[0].BranchCode != 1 || *ds.Employees[1].BranchCode != 2 {
		t.Error("employee branches should follow link order")
	}
	if ds.Employees[2].BranchCode != nil {
		t.Error("unlinked employee should keep a missing branch code")
	}
	if ds.Employees[0].PostalCode != "01310-100" {
		t.Errorf("unexpected employee postal code %q", ds.Employees[0].PostalCode)
	}

	acc := ds.Accounts[0]
	if acc.OpeningPeriod != "2021-02" || acc.LastActivityPeriod != "2023-12" {
		t.Errorf("unexpected account periods %+v", acc)
	}
	if acc.TotalBalance.Decimal.String() != "1500.25" {
		t.Errorf("unexpected balance %s", acc.TotalBalance.Decimal)
	}

	p := ds.Proposals[0]
	if p.EntryPeriod != "2022-06" || *p.Installments != 24 || p.Status != "Aprovada" {
		t.Errorf("unexpected proposal %+v", p)
	}

	tx := ds.Transactions
	if tx[0].Label != "Pix" || tx[0].Direction != bank.Outflow || tx[0].AbsoluteAmount.Decimal.String() != "250.1" {
		t.Errorf("unexpected transaction %+v", tx[0])
	}
	if tx[1].Label != bank.OtherLabel || tx[1].Direction != bank.Other {
		t.Errorf("unknown name should map to Other: %+v", tx[1])
	}
	if tx[2].Period != "" || tx[2].Amount.Valid || tx[2].AbsoluteAmount.Valid || tx[2].Direction != bank.Other {
		t.Errorf("empty transaction should degrade: %+v", tx[2])
	}
}

func TestNormalize_DropsPII(t *testing.T) {
	ds, err := New(date("2024-01-01"), nil).Normalize(rawTables())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dropped := map[string]bool{"email": true, "cpfcnpj": true, "cpf": true, "endereco": true, "data_nascimento": true, "nome_transacao": true}
	for _, tbl := range ds.Tables() {
		for _, c := range tbl.Columns {
			if dropped[c] {
				t.Errorf("%s still carries %s", tbl.Name, c)
			}
		}
	}
}

func TestNormalize_MissingTable(t *testing.T) {
	raw := rawTables()
	delete(raw, bank.RawTransactions)
	_, err := New(date("2024-01-01"), nil).Normalize(raw)
	if !errors.Is(err, dataset.ErrMissingTable) {
		t.Fatalf("expected ErrMissingTable, got %v", err)
	}
}

func TestNormalize_MissingColumnDegrades(t *testing.T) {
	raw := rawTables()
	raw[bank.RawCustomers] = dataset.New(bank.RawCustomers, []string{"cod_cliente"})
	raw[bank.RawCustomers].Rows = [][]any{{"7"}}
	ds, err := New(date("2024-01-01"), nil).Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := ds.Customers[0]
	if *c.Code != 7 || c.Age != nil || c.PostalCode != "" {
		t.Errorf("unexpected customer %+v", c)
	}
}
