package target

import (
	"context"
	"errors"
	"fmt"

	"github.com/bankclean/bankclean/internal/dataset"
)

// Sink persists output tables. Writing a table replaces any previous
// version with the same name.
type Sink interface {
	WriteTable(ctx context.Context, t *dataset.Table) error
	// Location describes where tables end up, e.g. "csv:/data/out".
	Location() string
	Close(ctx context.Context) error
}

// Multi writes every table to each sink in order.
type Multi []Sink

func (m Multi) WriteTable(ctx context.Context, t *dataset.Table) error {
	for _, s := range m {
		if err := s.WriteTable(ctx, t); err != nil {
			return fmt.Errorf("%s: %w", s.Location(), err)
		}
	}
	return nil
}

func (m Multi) Location() string {
	loc := ""
	for i, s := range m {
		if i > 0 {
			loc += ", "
		}
		loc += s.Location()
	}
	return loc
}

func (m Multi) Close(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteAll writes tables in order, stopping at the first failure.
func WriteAll(ctx context.Context, s Sink, tables []*dataset.Table) error {
	for _, t := range tables {
		if err := s.WriteTable(ctx, t); err != nil {
			return fmt.Errorf("writing %s: %w", t.Name, err)
		}
	}
	return nil
}
