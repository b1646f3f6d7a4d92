package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bankclean/bankclean/internal/dataset"
)

// CSVReader reads one "<name>.csv" file per table from a directory. Every
// cell is kept as text; empty cells are missing values.
type CSVReader struct {
	dir   string
	comma rune
}

// NewCSVReader creates a reader over dir using delimiter (default ",").
func NewCSVReader(dir, delimiter string) *CSVReader {
	comma := ','
	if r := []rune(delimiter); len(r) == 1 {
		comma = r[0]
	}
	return &CSVReader{dir: dir, comma: comma}
}

func (r *CSVReader) Connect(_ context.Context) error {
	info, err := os.Stat(r.dir)
	if err != nil {
		return fmt.Errorf("opening source directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source path %s is not a directory", r.dir)
	}
	return nil
}

// Path returns the file a table is read from.
func (r *CSVReader) Path(name string) string {
	if strings.HasSuffix(name, ".csv") {
		return filepath.Join(r.dir, name)
	}
	return filepath.Join(r.dir, name+".csv")
}

func (r *CSVReader) ReadTable(ctx context.Context, name string) (*dataset.Table, error) {
	path := r.Path(name)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", dataset.ErrMissingTable, path)
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = r.comma
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s has no header row", dataset.ErrMissingTable, path)
		}
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	// pandas exports carry an unnamed index column first.
	skipIndex := len(header) > 0 && strings.TrimSpace(header[0]) == ""
	if skipIndex {
		header = header[1:]
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := dataset.New(strings.TrimSuffix(name, ".csv"), header)
	for line := 2; ; line++ {
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if skipIndex && len(rec) > 0 {
			rec = rec[1:]
		}
		// Short rows are padded with missing values, extra fields dropped.
		row := make([]any, len(header))
		for i := range row {
			if i < len(rec) {
				row[i] = rec[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func (r *CSVReader) Close() error {
	return nil
}
