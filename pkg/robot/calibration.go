package robot

import (
	"fmt"
	"math"
)

// MotorCalibration maps one axis onto a bus servo. The axis range [Min, Max]
// is scaled linearly onto servo ticks [RangeMin, RangeMax]; RangeMin may be
// larger than RangeMax for a servo mounted in reverse.
type MotorCalibration struct {
	ID       int `json:"id"`
	RangeMin int `json:"range_min"`
	RangeMax int `json:"range_max"`
}

// Calibration holds the servo mapping for all motors, keyed by motor name.
type Calibration map[MotorName]MotorCalibration

// DefaultCalibration assigns servo IDs 1-6 in axis order and passes
// positions through unscaled.
func DefaultCalibration() Calibration {
	cal := make(Calibration, NumAxes)
	for _, a := range axes {
		cal[a.Name] = MotorCalibration{ID: a.Index + 1, RangeMin: a.Min, RangeMax: a.Max}
	}
	return cal
}

// WithDefaults fills motors missing from c with their default mapping and
// checks that servo IDs are unique.
func (c Calibration) WithDefaults() (Calibration, error) {
	out := DefaultCalibration()
	for name, mc := range c {
		if _, ok := out[name]; !ok {
			return nil, fmt.Errorf("calibration for unknown motor %q", name)
		}
		out[name] = mc
	}

	seen := make(map[int]MotorName, NumAxes)
	for _, name := range AllMotors() {
		id := out[name].ID
		if other, dup := seen[id]; dup {
			return nil, fmt.Errorf("servo ID %d used by both %s and %s", id, other, name)
		}
		seen[id] = name
	}
	return out, nil
}

// ToServo converts an axis position to servo ticks.
func (c MotorCalibration) ToServo(a Axis, pos int) int {
	span := float64(a.Max - a.Min)
	if span == 0 {
		return c.RangeMin
	}
	frac := float64(pos-a.Min) / span
	return int(math.Round(float64(c.RangeMin) + frac*float64(c.RangeMax-c.RangeMin)))
}

// MotorIDs returns the servo IDs in axis order.
func (c Calibration) MotorIDs() []int {
	ids := make([]int, 0, len(c))
	for _, name := range AllMotors() {
		if mc, ok := c[name]; ok {
			ids = append(ids, mc.ID)
		}
	}
	return ids
}
