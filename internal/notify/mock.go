package notify

import "context"

// MockPublisher is a test double for the Publisher interface.
type MockPublisher struct {
	PublishErr error

	// Track calls
	Events []RunEvent
	Closed bool
}

func (m *MockPublisher) Publish(_ context.Context, ev RunEvent) error {
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.Events = append(m.Events, ev)
	return nil
}

func (m *MockPublisher) Close() error {
	m.Closed = true
	return nil
}
