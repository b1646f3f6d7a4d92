package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bankclean/bankclean/internal/config"
	"github.com/bankclean/bankclean/internal/dataset"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCSVReader_ReadTable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "contas.csv", "\ufeffnum_conta,cod_cliente,saldo_total\n100,1,\"1,500.00\"\n101,,20\n102,3\n")

	r := NewCSVReader(dir, ",")
	if err := r.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	tbl, err := r.ReadTable(context.Background(), "contas")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if tbl.Name != "contas" || len(tbl.Columns) != 3 || tbl.Columns[0] != "num_conta" {
		t.Fatalf("unexpected table %s %v", tbl.Name, tbl.Columns)
	}
	if tbl.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", tbl.Len())
	}
	if _, ok := tbl.Row(1).Int("cod_cliente"); ok {
		t.Error("empty cell should be missing")
	}
	if _, ok := tbl.Row(2).String("saldo_total"); ok {
		t.Error("short row should be padded with missing values")
	}
	if s, _ := tbl.Row(0).String("saldo_total"); s != "1,500.00" {
		t.Errorf("quoted field not preserved: %q", s)
	}
}

func TestCSVReader_PandasIndexColumn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "clientes.csv", ",cod_cliente,primeiro_nome\n0,1,Ana\n1,2,Bruno\n")

	tbl, err := NewCSVReader(dir, "").ReadTable(context.Background(), "clientes")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(tbl.Columns) != 2 || tbl.Columns[0] != "cod_cliente" {
		t.Fatalf("index column should be dropped, got %v", tbl.Columns)
	}
	if name, _ := tbl.Row(1).String("primeiro_nome"); name != "Bruno" {
		t.Errorf("unexpected value %q", name)
	}
}

func TestCSVReader_Semicolon(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "agencias.csv", "cod_agencia;nome\n1;Centro\n")
	tbl, err := NewCSVReader(dir, ";").ReadTable(context.Background(), "agencias")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if n, ok := tbl.Row(0).String("nome"); !ok || n != "Centro" {
		t.Errorf("unexpected value %q", n)
	}
}

func TestCSVReader_MissingTable(t *testing.T) {
	_, err := NewCSVReader(t.TempDir(), ",").ReadTable(context.Background(), "transacoes")
	if !errors.Is(err, dataset.ErrMissingTable) {
		t.Fatalf("expected ErrMissingTable, got %v", err)
	}
}

func TestCSVReader_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "contas.csv", "")
	_, err := NewCSVReader(dir, ",").ReadTable(context.Background(), "contas")
	if !errors.Is(err, dataset.ErrMissingTable) {
		t.Fatalf("expected ErrMissingTable, got %v", err)
	}
}

func TestCSVReader_ConnectMissingDir(t *testing.T) {
	r := NewCSVReader(filepath.Join(t.TempDir(), "nope"), ",")
	if err := r.Connect(context.Background()); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestLoadAll(t *testing.T) {
	m := &MockReader{Tables: map[string]*dataset.Table{
		"contas_2024": dataset.New("contas_2024", []string{"num_conta"}),
		"clientes":    dataset.New("clientes", []string{"cod_cliente"}),
	}}
	physical := func(name string) string {
		if name == "contas" {
			return "contas_2024"
		}
		return name
	}
	tables, err := LoadAll(context.Background(), m, []string{"contas", "clientes"}, physical)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if tables["contas"] == nil || tables["contas"].Name != "contas" {
		t.Errorf("table should keep its raw name, got %+v", tables["contas"])
	}
	if len(m.Reads) != 2 || m.Reads[0] != "contas_2024" {
		t.Errorf("unexpected reads %v", m.Reads)
	}
}

func TestLoadAll_MissingTable(t *testing.T) {
	m := &MockReader{Tables: map[string]*dataset.Table{}}
	_, err := LoadAll(context.Background(), m, []string{"contas"}, nil)
	if !errors.Is(err, dataset.ErrMissingTable) {
		t.Fatalf("expected ErrMissingTable, got %v", err)
	}
}

func TestMockReader_Connect(t *testing.T) {
	m := &MockReader{}
	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.Connected {
		t.Error("should be connected")
	}
	m2 := &MockReader{ConnectErr: errors.New("refused")}
	if err := m2.Connect(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestNew(t *testing.T) {
	for _, typ := range []string{config.SourceCSV, config.SourcePostgreSQL, config.SourceOracle} {
		if _, err := New(config.SourceConfig{Type: typ, Dir: "."}); err != nil {
			t.Errorf("%s: unexpected error %v", typ, err)
		}
	}
	if _, err := New(config.SourceConfig{Type: "excel"}); !errors.Is(err, ErrUnknownSourceType) {
		t.Errorf("expected ErrUnknownSourceType, got %v", err)
	}
}

func TestPgReadError(t *testing.T) {
	if err := pgReadError("contas", errors.New("boom")); errors.Is(err, dataset.ErrMissingTable) {
		t.Error("generic errors must not be reported as missing tables")
	}
}

func TestOraReadError(t *testing.T) {
	err := oraReadError("contas", errors.New("ORA-00942: table or view does not exist"))
	if !errors.Is(err, dataset.ErrMissingTable) {
		t.Errorf("expected ErrMissingTable, got %v", err)
	}
}
