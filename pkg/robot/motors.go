// Package robot provides the axis registry, position model and preset store
// for a six-axis manipulator arm.
package robot

import "fmt"

// NumAxes is the number of independently controlled joints on the arm.
const NumAxes = 6

// MotorName identifies a motor in the arm.
type MotorName string

// Motor names, in board channel order.
const (
	Base     MotorName = "Base"
	Shoulder MotorName = "Shoulder"
	UpperArm MotorName = "Upper_Arm"
	Elbow    MotorName = "Elbow"
	Wrist    MotorName = "Wrist"
	Hand     MotorName = "Hand"
)

// Axis describes one motor: its position on the board and its valid range in
// raw position units.
type Axis struct {
	Index   int
	Name    MotorName
	Min     int
	Max     int
	Default int
}

var axes = [NumAxes]Axis{
	{Index: 0, Name: Base, Min: 0, Max: 1023, Default: 512},
	{Index: 1, Name: Shoulder, Min: 512, Max: 960, Default: 512},
	{Index: 2, Name: UpperArm, Min: 30, Max: 1010, Default: 512},
	{Index: 3, Name: Elbow, Min: 15, Max: 980, Default: 980},
	{Index: 4, Name: Wrist, Min: 0, Max: 1023, Default: 800},
	{Index: 5, Name: Hand, Min: 430, Max: 890, Default: 430},
}

// AllAxes returns all axes in order (matching board channels M1-M6).
func AllAxes() []Axis {
	out := make([]Axis, NumAxes)
	copy(out, axes[:])
	return out
}

// AllMotors returns all motor names in order.
func AllMotors() []MotorName {
	names := make([]MotorName, NumAxes)
	for i, a := range axes {
		names[i] = a.Name
	}
	return names
}

// AxisAt returns the axis with the given index. The index must be in [0, NumAxes).
func AxisAt(i int) Axis {
	if i < 0 || i >= NumAxes {
		panic(fmt.Sprintf("robot: axis index %d out of range [0,%d)", i, NumAxes))
	}
	return axes[i]
}

// Defaults returns the startup target of every axis.
func Defaults() [NumAxes]int {
	var v [NumAxes]int
	for i, a := range axes {
		v[i] = a.Default
	}
	return v
}

// Clamp limits a raw position to the axis range.
func (a Axis) Clamp(pos int) int {
	if pos < a.Min {
		return a.Min
	}
	if pos > a.Max {
		return a.Max
	}
	return pos
}

// InRange reports whether pos lies within the axis range.
func (a Axis) InRange(pos int) bool {
	return pos >= a.Min && pos <= a.Max
}

// AtLimit reports whether pos sits exactly on either end of the range.
func (a Axis) AtLimit(pos int) bool {
	return pos == a.Min || pos == a.Max
}

// Progress returns where pos lies within the range, 0 at Min and 1 at Max.
// It is not clamped, so a smoothed position slightly past a bound reads
// slightly outside [0, 1].
func (a Axis) Progress(pos float64) float64 {
	span := float64(a.Max - a.Min)
	if span == 0 {
		return 0
	}
	return (pos - float64(a.Min)) / span
}

// fullScale is the raw unit count spanning the servo's 300 degree travel.
const fullScale = 1023

// Angle converts a raw position to degrees over the 300 degree physical range.
func Angle(pos int) float64 {
	return float64(pos) * (300.0 / fullScale)
}

// ValidateVector checks that every element of v lies in its axis range.
func ValidateVector(v [NumAxes]int) error {
	for i, a := range axes {
		if !a.InRange(v[i]) {
			return fmt.Errorf("%s: %d outside [%d, %d]", a.Name, v[i], a.Min, a.Max)
		}
	}
	return nil
}
