package source

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bankclean/bankclean/internal/dataset"
)

// undefinedTable is the PostgreSQL SQLSTATE for a missing relation.
const undefinedTable = "42P01"

// PostgresReader implements Reader for PostgreSQL using pgx.
type PostgresReader struct {
	connStr string
	schema  string
	pool    *pgxpool.Pool
}

// NewPostgresReader creates a new PostgreSQL reader.
func NewPostgresReader(connStr, schema string) *PostgresReader {
	if schema == "" {
		schema = "public"
	}
	return &PostgresReader{connStr: connStr, schema: schema}
}

func (r *PostgresReader) Connect(ctx context.Context) error {
	cfg, err := pgxpool.ParseConfig(r.connStr)
	if err != nil {
		return fmt.Errorf("parsing connection string: %w", err)
	}
	cfg.MaxConns = 2
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging PostgreSQL: %w", err)
	}
	r.pool = pool
	return nil
}

func (r *PostgresReader) ReadTable(ctx context.Context, name string) (*dataset.Table, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("reading %s: reader not connected", name)
	}
	sql := fmt.Sprintf("SELECT * FROM %s.%s", quoteIdentPg(r.schema), quoteIdentPg(name))
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, pgReadError(name, err)
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	cols := make([]string, len(descs))
	for i, d := range descs {
		cols[i] = d.Name
	}
	t := dataset.New(name, cols)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scanning row of %s: %w", name, err)
		}
		for i, v := range vals {
			vals[i] = plainValue(v)
		}
		t.Rows = append(t.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, pgReadError(name, err)
	}
	return t, nil
}

func (r *PostgresReader) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

func pgReadError(table string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return fmt.Errorf("%w: %s (%s)", dataset.ErrMissingTable, table, pgErr.Message)
	}
	return fmt.Errorf("reading %s: %w", table, err)
}

// plainValue unwraps driver-specific types such as pgtype.Numeric into
// their database/sql/driver representation.
func plainValue(v any) any {
	valuer, ok := v.(driver.Valuer)
	if !ok {
		return v
	}
	dv, err := valuer.Value()
	if err != nil {
		return nil
	}
	return dv
}

func quoteIdentPg(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
