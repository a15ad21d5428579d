package link

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MockTransport implements Transport with configurable behaviour for testing.
// It records every delivered message.
type MockTransport struct {
	mu sync.Mutex

	// Sent holds delivered messages in order
	Sent []Message

	// Reply is returned with every successful delivery
	Reply string

	// DeliverError is returned by the next Deliver call if set
	DeliverError error

	// Latency delays each Deliver call
	Latency time.Duration

	// Closed indicates whether Close was called
	Closed bool

	// inFlight counts concurrent Deliver calls; MaxInFlight is its peak
	inFlight    int
	MaxInFlight int
}

// NewMockTransport creates a MockTransport.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// Opener returns an Opener that always yields m.
func (m *MockTransport) Opener() Opener {
	return func(context.Context, Options) (Transport, error) {
		return m, nil
	}
}

// FailingOpener returns an Opener that always fails with err.
func FailingOpener(err error) Opener {
	return func(context.Context, Options) (Transport, error) {
		return nil, err
	}
}

// Deliver records msg after the configured latency.
func (m *MockTransport) Deliver(_ context.Context, msg Message) (string, error) {
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > m.MaxInFlight {
		m.MaxInFlight = m.inFlight
	}
	latency := m.Latency
	m.mu.Unlock()

	if latency > 0 {
		time.Sleep(latency)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight--

	if m.Closed {
		return "", errors.New("transport closed")
	}
	if m.DeliverError != nil {
		err := m.DeliverError
		m.DeliverError = nil
		return "", err
	}
	m.Sent = append(m.Sent, msg)
	return m.Reply, nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Messages returns a copy of the delivered messages.
func (m *MockTransport) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.Sent))
	copy(out, m.Sent)
	return out
}

// SetDeliverError makes the next Deliver fail with err.
func (m *MockTransport) SetDeliverError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeliverError = err
}

// SetLatency changes the delay applied to each Deliver.
func (m *MockTransport) SetLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Latency = d
}

// PeakInFlight returns the most concurrent Deliver calls observed.
func (m *MockTransport) PeakInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.MaxInFlight
}
