package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Oracle driver
	_ "github.com/sijms/go-ora/v2"

	"github.com/bankclean/bankclean/internal/dataset"
)

// OracleReader implements Reader for Oracle using go-ora.
type OracleReader struct {
	connStr string
	schema  string
	db      *sql.DB
}

// NewOracleReader creates a new Oracle reader. Table names are upper-cased
// to match unquoted Oracle identifiers.
func NewOracleReader(connStr, schema string) *OracleReader {
	return &OracleReader{connStr: connStr, schema: strings.ToUpper(schema)}
}

func (r *OracleReader) Connect(ctx context.Context) error {
	db, err := sql.Open("oracle", r.connStr)
	if err != nil {
		return fmt.Errorf("opening Oracle connection: %w", err)
	}
	db.SetMaxOpenConns(2)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("pinging Oracle: %w", err)
	}
	r.db = db
	return nil
}

func (r *OracleReader) qualified(name string) string {
	table := quoteIdentOra(strings.ToUpper(name))
	if r.schema == "" {
		return table
	}
	return quoteIdentOra(r.schema) + "." + table
}

func (r *OracleReader) ReadTable(ctx context.Context, name string) (*dataset.Table, error) {
	if r.db == nil {
		return nil, fmt.Errorf("reading %s: reader not connected", name)
	}
	rows, err := r.db.QueryContext(ctx, "SELECT * FROM "+r.qualified(name))
	if err != nil {
		return nil, oraReadError(name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("getting columns of %s: %w", name, err)
	}
	for i := range cols {
		cols[i] = strings.ToLower(cols[i])
	}

	t := dataset.New(name, cols)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row of %s: %w", name, err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		t.Rows = append(t.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, oraReadError(name, err)
	}
	return t, nil
}

func (r *OracleReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func oraReadError(table string, err error) error {
	// ORA-00942: table or view does not exist
	if strings.Contains(err.Error(), "ORA-00942") {
		return fmt.Errorf("%w: %s", dataset.ErrMissingTable, table)
	}
	return fmt.Errorf("reading %s: %w", table, err)
}

func quoteIdentOra(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
