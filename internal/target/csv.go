package target

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bankclean/bankclean/internal/dataset"
)

// CSVSink writes each table to "<dir>/<name>.csv" with a header row.
// Missing values are written as empty fields.
type CSVSink struct {
	dir string
}

// NewCSVSink creates the output directory if needed.
func NewCSVSink(dir string) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &CSVSink{dir: dir}, nil
}

// Path returns the file a table is written to.
func (s *CSVSink) Path(name string) string {
	return filepath.Join(s.dir, name+".csv")
}

func (s *CSVSink) WriteTable(ctx context.Context, t *dataset.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.Path(t.Name)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		f.Close()
		return fmt.Errorf("writing header of %s: %w", t.Name, err)
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i := range rec {
			rec[i] = ""
			if i < len(row) {
				rec[i] = dataset.Format(row[i])
			}
		}
		if err := w.Write(rec); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", t.Name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flushing %s: %w", t.Name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

func (s *CSVSink) Location() string {
	return "csv:" + s.dir
}

func (s *CSVSink) Close(_ context.Context) error {
	return nil
}
