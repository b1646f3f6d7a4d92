package bank

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankclean/bankclean/internal/dataset"
)

func TestHeaderMatchesValues(t *testing.T) {
	records := []dataset.Record{
		Branch{}, Customer{}, Employee{}, EmployeeBranch{}, Account{}, Proposal{}, Transaction{},
	}
	for _, r := range records {
		if len(r.Header()) != len(r.Values()) {
			t.Errorf("%T: header has %d columns, values has %d", r, len(r.Header()), len(r.Values()))
		}
	}
}

func TestValues_NullsAreNil(t *testing.T) {
	vals := Account{Type: "PF"}.Values()
	for i, v := range vals {
		if i == 4 {
			if v != "PF" {
				t.Errorf("expected account_type PF, got %v", v)
			}
			continue
		}
		if v != nil {
			t.Errorf("column %d: expected nil, got %v", i, v)
		}
	}
}

func TestTablesRoundTrip(t *testing.T) {
	opened := time.Date(2010, 5, 20, 0, 0, 0, 0, time.UTC)
	ds := &Dataset{
		Branches: []Branch{{Code: Ptr(int64(1)), Name: "Centro", State: "SP", OpeningDate: &opened, PostalCode: "01310-100"}},
		Customers: []Customer{{Code: Ptr(int64(10)), FirstName: "Ana", Age: Ptr(34), InclusionPeriod: "2020-01"}},
		Accounts: []Account{{
			Number:       Ptr(int64(100)),
			CustomerCode: Ptr(int64(10)),
			TotalBalance: decimal.NewNullDecimal(decimal.RequireFromString("99.90")),
		}},
		Transactions: []Transaction{{Code: Ptr(int64(7)), AccountNumber: Ptr(int64(100)), Direction: Inflow, Label: "Pix"}},
	}
	tables := ds.Tables()
	if len(tables) != 7 {
		t.Fatalf("expected 7 tables, got %d", len(tables))
	}
	if tables[0].Name != "branches_normalized" {
		t.Errorf("unexpected name %s", tables[0].Name)
	}

	branches := DecodeBranches(tables[0])
	if len(branches) != 1 || branches[0].OpeningDate == nil || !branches[0].OpeningDate.Equal(opened) {
		t.Errorf("branch opening date lost: %+v", branches)
	}
	customers := DecodeCustomers(tables[1])
	if *customers[0].Age != 34 || customers[0].InclusionPeriod != "2020-01" {
		t.Errorf("unexpected customer %+v", customers[0])
	}
	accounts := DecodeAccounts(tables[4])
	if !accounts[0].TotalBalance.Valid || accounts[0].AvailableBalance.Valid {
		t.Errorf("unexpected balances %+v", accounts[0])
	}
	if accounts[0].BranchCode != nil {
		t.Error("missing branch code should decode as nil")
	}
	txs := DecodeTransactions(tables[6])
	if txs[0].Direction != Inflow || txs[0].Label != "Pix" {
		t.Errorf("unexpected transaction %+v", txs[0])
	}
}

func TestDecodeTransactions_UnknownDirection(t *testing.T) {
	tbl := dataset.New("transactions_clean", Transaction{}.Header())
	tbl.Rows = [][]any{{"1", "2", "2024-01", "10", "10", "Pix", "Sideways"}}
	txs := DecodeTransactions(tbl)
	if txs[0].Direction != Other {
		t.Errorf("expected Other, got %s", txs[0].Direction)
	}
}
