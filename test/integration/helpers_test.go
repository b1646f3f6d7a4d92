//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/bankclean/bankclean/internal/bank"
)

const testSchema = "bankclean_it"

func pgConnString(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		pgUser(t), pgPassword(t), pgHost(t), pgPort(t), pgDatabase(t))
}

func pgHost(t *testing.T) string {
	t.Helper()
	return envOrDefault("BANKCLEAN_TEST_PG_HOST", "localhost")
}

func pgPort(t *testing.T) int {
	t.Helper()
	p := envOrDefault("BANKCLEAN_TEST_PG_PORT", "25432")
	var port int
	fmt.Sscanf(p, "%d", &port)
	return port
}

func pgDatabase(t *testing.T) string {
	t.Helper()
	return envOrDefault("BANKCLEAN_TEST_PG_DATABASE", "bankclean_test")
}

func pgUser(t *testing.T) string {
	t.Helper()
	return envOrDefault("BANKCLEAN_TEST_PG_USER", "postgres")
}

func pgPassword(t *testing.T) string {
	t.Helper()
	return envOrDefault("BANKCLEAN_TEST_PG_PASSWORD", "postgres")
}

func mongoURI(t *testing.T) string {
	t.Helper()
	return envOrDefault("BANKCLEAN_TEST_MONGO_URI", "mongodb://localhost:37017/?directConnection=true")
}

func mongoDatabase(t *testing.T) string {
	t.Helper()
	return envOrDefault("BANKCLEAN_TEST_MONGO_DATABASE", "bankclean_test")
}

func skipIfNoPostgres(t *testing.T) {
	t.Helper()
	if os.Getenv("BANKCLEAN_TEST_PG_HOST") == "" && os.Getenv("BANKCLEAN_TEST_PG_PORT") == "" {
		t.Skip("skipping: BANKCLEAN_TEST_PG_HOST/PORT not set")
	}
}

func skipIfNoMongo(t *testing.T) {
	t.Helper()
	if os.Getenv("BANKCLEAN_TEST_MONGO_URI") == "" {
		t.Skip("skipping: BANKCLEAN_TEST_MONGO_URI not set")
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

type rawTable struct {
	columns []string
	rows    [][]string
}

// rawFixture has one account held by an unknown customer and one
// transaction on that account, so both are orphaned.
var rawFixture = map[string]rawTable{
	bank.RawBranches: {
		columns: []string{"cod_agencia", "nome", "endereco", "cidade", "uf", "data_abertura", "tipo_agencia"},
		rows:    [][]string{{"1", "Centro", "Rua A, 01310-100", "São Paulo", "SP", "2010-05-20", "Física"}},
	},
	bank.RawCustomers: {
		columns: []string{"cod_cliente", "primeiro_nome", "ultimo_nome", "email", "tipo_cliente", "data_inclusao", "cpfcnpj", "data_nascimento", "endereco", "cep"},
		rows:    [][]string{{"1", "Ana", "Silva", "a@x", "PF", "2021-02-03", "000", "2000-03-15", "Rua B", "12345678"}},
	},
	bank.RawEmployees: {
		columns: []string{"cod_colaborador", "primeiro_nome", "ultimo_nome", "email", "cpf", "data_nascimento", "endereco", "cep"},
		rows:    [][]string{{"10", "Carla", "Lima", "c@x", "111", "1990-01-01", "Rua C", ""}},
	},
	bank.RawEmployeeBranches: {
		columns: []string{"cod_colaborador", "cod_agencia"},
		rows:    [][]string{{"10", "1"}},
	},
	bank.RawAccounts: {
		columns: []string{"num_conta", "cod_cliente", "cod_agencia", "cod_colaborador", "tipo_conta", "data_abertura", "saldo_total", "saldo_disponivel", "data_ultimo_lancamento"},
		rows: [][]string{
			{"100", "1", "1", "10", "PF", "2021-02-03", "10", "5", "2023-12-30"},
			{"101", "99", "1", "10", "PF", "2021-03-03", "20", "5", "2023-12-30"},
		},
	},
	bank.RawProposals: {
		columns: []string{"cod_proposta", "cod_cliente", "cod_colaborador", "data_entrada_proposta", "taxa_juros_mensal", "valor_proposta", "valor_financiamento", "valor_entrada", "valor_prestacao", "quantidade_parcelas", "carencia", "status_proposta"},
		rows:    [][]string{{"500", "1", "10", "2022-06-01", "0.01", "1000", "900", "100", "50", "24", "0", "Aprovada"}},
	},
	bank.RawTransactions: {
		columns: []string{"cod_transacao", "num_conta", "data_transacao", "nome_transacao", "valor_transacao"},
		rows: [][]string{
			{"1", "100", "2023-01-05", "Pix - Realizado", "-25"},
			{"2", "101", "2023-01-06", "Pix - Recebido", "30"},
		},
	},
}

// seedPostgres recreates the test schema with the raw tables as text columns.
func seedPostgres(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, pgConnString(t))
	if err != nil {
		t.Fatalf("connecting to PostgreSQL: %v", err)
	}
	defer conn.Close(ctx)

	exec := func(sql string, args ...any) {
		t.Helper()
		if _, err := conn.Exec(ctx, sql, args...); err != nil {
			t.Fatalf("%s: %v", sql, err)
		}
	}
	exec("DROP SCHEMA IF EXISTS " + testSchema + " CASCADE")
	exec("CREATE SCHEMA " + testSchema)
	for name, tbl := range rawFixture {
		defs := make([]string, len(tbl.columns))
		params := make([]string, len(tbl.columns))
		for i, c := range tbl.columns {
			defs[i] = c + " TEXT"
			params[i] = fmt.Sprintf("$%d", i+1)
		}
		qualified := testSchema + "." + name
		exec(fmt.Sprintf("CREATE TABLE %s (%s)", qualified, strings.Join(defs, ", ")))
		insert := fmt.Sprintf("INSERT INTO %s VALUES (%s)", qualified, strings.Join(params, ", "))
		for _, row := range tbl.rows {
			args := make([]any, len(row))
			for i, v := range row {
				if v == "" {
					args[i] = nil
				} else {
					args[i] = v
				}
			}
			exec(insert, args...)
		}
	}
	t.Cleanup(func() {
		c, err := pgx.Connect(context.Background(), pgConnString(t))
		if err != nil {
			return
		}
		defer c.Close(context.Background())
		_, _ = c.Exec(context.Background(), "DROP SCHEMA IF EXISTS "+testSchema+" CASCADE")
	})
}
