package source

import (
	"context"
	"fmt"

	"github.com/bankclean/bankclean/internal/dataset"
)

// MockReader is a test double for the Reader interface.
type MockReader struct {
	ConnectErr error

	Tables  map[string]*dataset.Table
	ReadErr error

	Connected bool
	Closed    bool
	Reads     []string
}

func (m *MockReader) Connect(_ context.Context) error {
	if m.ConnectErr != nil {
		return m.ConnectErr
	}
	m.Connected = true
	return nil
}

func (m *MockReader) ReadTable(_ context.Context, name string) (*dataset.Table, error) {
	m.Reads = append(m.Reads, name)
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	t, ok := m.Tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dataset.ErrMissingTable, name)
	}
	cp := dataset.New(t.Name, t.Columns)
	cp.Rows = append(cp.Rows, t.Rows...)
	return cp, nil
}

func (m *MockReader) Close() error {
	m.Closed = true
	return nil
}
