// Package telemetry records the arm's simulated positions over time.
package telemetry

import (
	"errors"
	"sync"
	"time"

	"github.com/gwillem/manipulator/pkg/robot"
)

// Sample is the six current positions at one tick.
type Sample struct {
	Time      time.Time              `json:"time"`
	Positions [robot.NumAxes]float64 `json:"positions"`
}

// Sink receives samples.
type Sink interface {
	Record(s Sample) error
	Close() error
}

// Gate forwards at most one sample per interval to its sink, and nothing at
// all while disabled.
type Gate struct {
	mu       sync.Mutex
	sink     Sink
	interval time.Duration
	enabled  bool
	last     time.Time
}

// NewGate wraps sink. The gate starts enabled.
func NewGate(sink Sink, interval time.Duration) *Gate {
	return &Gate{sink: sink, interval: interval, enabled: true}
}

// Record forwards s if enabled and at least interval has passed since the
// last forwarded sample.
func (g *Gate) Record(s Sample) error {
	g.mu.Lock()
	if !g.enabled || (!g.last.IsZero() && s.Time.Sub(g.last) < g.interval) {
		g.mu.Unlock()
		return nil
	}
	g.last = s.Time
	g.mu.Unlock()

	return g.sink.Record(s)
}

// SetEnabled turns forwarding on or off.
func (g *Gate) SetEnabled(on bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.enabled = on
	if !on {
		g.last = time.Time{}
	}
}

// Enabled reports whether samples are being forwarded.
func (g *Gate) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}

// Close closes the wrapped sink.
func (g *Gate) Close() error {
	return g.sink.Close()
}

// Multi fans samples out to several sinks.
type Multi []Sink

// Record sends s to every sink and joins their errors.
func (m Multi) Record(s Sample) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Record(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, sink := range m {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
