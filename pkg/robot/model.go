package robot

import (
	"fmt"
	"math"
)

const (
	// Epsilon is the distance below which an axis counts as arrived.
	Epsilon = 0.5

	// Smooth is the fraction of the remaining distance covered per Advance.
	Smooth = 0.08
)

// State is the discrete motion state of one axis.
type State int

const (
	Idle State = iota
	Moving
	AtLimit
	// Error is reserved for device-reported faults. The board protocol has no
	// fault report, so nothing in this package sets it.
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Moving:
		return "moving"
	case AtLimit:
		return "at limit"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Direction selects which way UpdateTarget steps.
type Direction int

const (
	Increase Direction = iota
	Decrease
)

func (d Direction) String() string {
	if d == Decrease {
		return "-"
	}
	return "+"
}

// MotorInfo is a read-only snapshot of one axis.
type MotorInfo struct {
	Index         int
	Name          MotorName
	Current       float64
	Target        int
	Min           int
	Max           int
	State         State
	Speed         float64 // |velocity| in units per tick
	Angle         float64 // degrees, derived from Target
	TorqueEnabled bool
}

// Model tracks target and simulated current position for every axis.
// It is not safe for concurrent use.
type Model struct {
	current  [NumAxes]float64
	target   [NumAxes]int
	velocity [NumAxes]float64
	state    [NumAxes]State
}

// NewModel returns a model with every axis resting at its default position.
func NewModel() *Model {
	m := &Model{}
	for i, a := range axes {
		m.target[i] = a.Default
		m.current[i] = float64(a.Default)
		if a.AtLimit(a.Default) {
			m.state[i] = AtLimit
		}
	}
	return m
}

// UpdateTarget moves the target of axis i by step in direction dir, clamped to
// the axis range. It reports whether the target changed; pushing further
// against a bound is a no-op that returns false.
func (m *Model) UpdateTarget(i int, dir Direction, step int) bool {
	a := AxisAt(i)
	if step <= 0 {
		panic(fmt.Sprintf("robot: non-positive step %d", step))
	}

	next := m.target[i] + step
	if dir == Decrease {
		next = m.target[i] - step
	}
	next = a.Clamp(next)
	if next == m.target[i] {
		return false
	}

	m.setTarget(i, next)
	return true
}

// SetTargets assigns all targets at once. Values are clamped into range.
func (m *Model) SetTargets(v [NumAxes]int) {
	for i, a := range axes {
		m.setTarget(i, a.Clamp(v[i]))
	}
}

func (m *Model) setTarget(i, pos int) {
	m.target[i] = pos
	switch {
	case axes[i].AtLimit(pos):
		m.state[i] = AtLimit
	case math.Abs(float64(pos)-m.current[i]) > Epsilon:
		m.state[i] = Moving
	default:
		m.state[i] = Idle
	}
}

// Advance runs one smoothing step on every axis. Current positions approach
// their targets exponentially and snap exactly onto them once within Epsilon.
// AtLimit and Error are never changed here.
func (m *Model) Advance() {
	for i := range m.target {
		diff := float64(m.target[i]) - m.current[i]
		if math.Abs(diff) > Epsilon {
			m.velocity[i] = diff * Smooth
			m.current[i] += m.velocity[i]
			if m.state[i] == Idle {
				m.state[i] = Moving
			}
			continue
		}

		m.current[i] = float64(m.target[i])
		m.velocity[i] = 0
		if m.state[i] == Moving {
			m.state[i] = Idle
		}
	}
}

// Target returns the target of axis i.
func (m *Model) Target(i int) int {
	AxisAt(i)
	return m.target[i]
}

// Current returns the simulated position of axis i.
func (m *Model) Current(i int) float64 {
	AxisAt(i)
	return m.current[i]
}

// State returns the motion state of axis i.
func (m *Model) State(i int) State {
	AxisAt(i)
	return m.state[i]
}

// Targets returns a copy of all targets.
func (m *Model) Targets() [NumAxes]int {
	return m.target
}

// Currents returns a copy of all simulated positions.
func (m *Model) Currents() [NumAxes]float64 {
	return m.current
}

// Snapshot returns the state of axis i. TorqueEnabled is left false; torque
// flags live outside the model.
func (m *Model) Snapshot(i int) MotorInfo {
	a := AxisAt(i)
	return MotorInfo{
		Index:   i,
		Name:    a.Name,
		Current: m.current[i],
		Target:  m.target[i],
		Min:     a.Min,
		Max:     a.Max,
		State:   m.state[i],
		Speed:   math.Abs(m.velocity[i]),
		Angle:   Angle(m.target[i]),
	}
}

// Torque holds the per-axis torque enable flags.
type Torque [NumAxes]bool

// AllTorqueOn returns flags with every axis enabled.
func AllTorqueOn() Torque {
	var t Torque
	for i := range t {
		t[i] = true
	}
	return t
}

// Toggle flips the flag of axis i and returns the new value.
func (t *Torque) Toggle(i int) bool {
	AxisAt(i)
	t[i] = !t[i]
	return t[i]
}
