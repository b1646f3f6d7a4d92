package target

import (
	"context"

	"github.com/bankclean/bankclean/internal/dataset"
)

// MockSink is a test double for the Sink interface.
type MockSink struct {
	WriteErr error
	CloseErr error

	// Track calls
	Written map[string]*dataset.Table
	Order   []string
	Closed  bool
}

func (m *MockSink) WriteTable(_ context.Context, t *dataset.Table) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	if m.Written == nil {
		m.Written = make(map[string]*dataset.Table)
	}
	m.Written[t.Name] = t
	m.Order = append(m.Order, t.Name)
	return nil
}

func (m *MockSink) Location() string {
	return "mock"
}

func (m *MockSink) Close(_ context.Context) error {
	m.Closed = true
	return m.CloseErr
}
