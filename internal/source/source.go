package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/bankclean/bankclean/internal/config"
	"github.com/bankclean/bankclean/internal/dataset"
)

// ErrUnknownSourceType is returned for an unsupported source.type.
var ErrUnknownSourceType = errors.New("unknown source type")

// Reader loads raw tables wholesale.
type Reader interface {
	Connect(ctx context.Context) error
	// ReadTable returns every row of the named table. A table that does not
	// exist yields an error wrapping dataset.ErrMissingTable.
	ReadTable(ctx context.Context, name string) (*dataset.Table, error)
	Close() error
}

// New creates the reader configured by cfg.
func New(cfg config.SourceConfig) (Reader, error) {
	switch cfg.Type {
	case config.SourceCSV:
		return NewCSVReader(cfg.Dir, cfg.Delimiter), nil
	case config.SourcePostgreSQL:
		return NewPostgresReader(cfg.ConnectionString(), cfg.Schema), nil
	case config.SourceOracle:
		return NewOracleReader(cfg.ConnectionString(), cfg.Schema), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSourceType, cfg.Type)
}

// LoadAll reads every named raw table. physical maps a raw name to the name
// used by the reader; nil means identity. The returned tables keep the raw
// name regardless of the physical one.
func LoadAll(ctx context.Context, r Reader, names []string, physical func(string) string) (map[string]*dataset.Table, error) {
	out := make(map[string]*dataset.Table, len(names))
	for _, name := range names {
		phys := name
		if physical != nil {
			phys = physical(name)
		}
		t, err := r.ReadTable(ctx, phys)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", name, err)
		}
		t.Name = name
		out[name] = t
	}
	return out, nil
}
