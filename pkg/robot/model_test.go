package robot

import (
	"math"
	"testing"
)

func TestAxisAt_Registry(t *testing.T) {
	tests := []struct {
		index int
		name  MotorName
		min   int
		max   int
		def   int
	}{
		{0, Base, 0, 1023, 512},
		{1, Shoulder, 512, 960, 512},
		{2, UpperArm, 30, 1010, 512},
		{3, Elbow, 15, 980, 980},
		{4, Wrist, 0, 1023, 800},
		{5, Hand, 430, 890, 430},
	}

	for _, tt := range tests {
		a := AxisAt(tt.index)
		if a.Name != tt.name || a.Min != tt.min || a.Max != tt.max || a.Default != tt.def {
			t.Errorf("AxisAt(%d) = %+v, want %s(%d,%d,%d)", tt.index, a, tt.name, tt.min, tt.max, tt.def)
		}
	}
}

func TestAxisAt_OutOfRangePanics(t *testing.T) {
	for _, i := range []int{-1, NumAxes, 100} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("AxisAt(%d) did not panic", i)
				}
			}()
			AxisAt(i)
		}()
	}
}

func TestAngle(t *testing.T) {
	tests := []struct {
		pos      int
		expected float64
	}{
		{0, 0},
		{1023, 300},
		{512, 512 * 300.0 / 1023},
	}

	for _, tt := range tests {
		got := Angle(tt.pos)
		if math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("Angle(%d) = %f, want %f", tt.pos, got, tt.expected)
		}
	}
}

func TestModel_UpdateTargetStaysInRange(t *testing.T) {
	m := NewModel()
	for i, a := range AllAxes() {
		for n := 0; n < 500; n++ {
			dir := Increase
			if (n/37)%2 == 1 {
				dir = Decrease
			}
			m.UpdateTarget(i, dir, 1+n%9)
			if got := m.Target(i); got < a.Min || got > a.Max {
				t.Fatalf("%s target %d escaped [%d,%d]", a.Name, got, a.Min, a.Max)
			}
		}
	}
}

func TestModel_UpdateTargetReturnsFalseOnlyWhenUnchanged(t *testing.T) {
	m := NewModel()
	for n := 0; n < 2000; n++ {
		i := n % NumAxes
		dir := Direction(n / 7 % 2)
		before := m.Target(i)
		changed := m.UpdateTarget(i, dir, 5)
		if changed != (m.Target(i) != before) {
			t.Fatalf("step %d: changed=%v but target %d -> %d", n, changed, before, m.Target(i))
		}
	}
}

func TestModel_DecreaseBaseToZero(t *testing.T) {
	m := NewModel()
	for n := 1; n <= 256; n++ {
		if !m.UpdateTarget(0, Decrease, 2) {
			t.Fatalf("call %d returned false, target=%d", n, m.Target(0))
		}
		if m.Target(0) < 0 {
			t.Fatalf("call %d drove target below zero: %d", n, m.Target(0))
		}
	}
	if m.Target(0) != 0 {
		t.Fatalf("target after 256 steps = %d, want 0", m.Target(0))
	}
	if m.UpdateTarget(0, Decrease, 2) {
		t.Error("257th call should return false")
	}
	if m.State(0) != AtLimit {
		t.Errorf("state = %v, want %v", m.State(0), AtLimit)
	}
}

func TestModel_ClampOnOvershoot(t *testing.T) {
	m := NewModel()
	// Shoulder default 512 == min
	if m.UpdateTarget(1, Decrease, 10) {
		t.Error("decrease at min should be a no-op")
	}
	if !m.UpdateTarget(1, Increase, 1000) {
		t.Fatal("increase should change target")
	}
	if m.Target(1) != 960 {
		t.Errorf("target = %d, want clamp to 960", m.Target(1))
	}
	if m.State(1) != AtLimit {
		t.Errorf("state = %v, want at limit", m.State(1))
	}
}

func TestModel_StateTransitions(t *testing.T) {
	m := NewModel()

	if !m.UpdateTarget(0, Increase, 10) {
		t.Fatal("expected change")
	}
	if m.State(0) != Moving {
		t.Errorf("mid-range move: state = %v, want moving", m.State(0))
	}

	for n := 0; n < 200; n++ {
		m.Advance()
	}
	if m.State(0) != Idle {
		t.Errorf("after convergence: state = %v, want idle", m.State(0))
	}

	m.UpdateTarget(0, Increase, 2000)
	if m.State(0) != AtLimit {
		t.Errorf("state = %v, want at limit immediately", m.State(0))
	}
	m.Advance()
	if m.State(0) != AtLimit {
		t.Errorf("advance must not leave at limit, got %v", m.State(0))
	}
	for n := 0; n < 300; n++ {
		m.Advance()
	}
	if m.State(0) != AtLimit {
		t.Errorf("convergence must not leave at limit, got %v", m.State(0))
	}

	m.UpdateTarget(0, Decrease, 1)
	if m.State(0) != Moving {
		t.Errorf("leaving the bound: state = %v, want moving", m.State(0))
	}
}

func TestModel_LeavingLimitOntoCurrentIsIdle(t *testing.T) {
	m := NewModel()
	m.UpdateTarget(0, Increase, 10) // 522
	for n := 0; n < 25; n++ {
		m.Advance()
	}
	// current is now roughly 520.76
	m.UpdateTarget(0, Increase, 2000)
	if m.State(0) != AtLimit {
		t.Fatalf("state = %v, want at limit", m.State(0))
	}

	m.UpdateTarget(0, Decrease, 1023-521)
	if m.Target(0) != 521 {
		t.Fatalf("target = %d, want 521", m.Target(0))
	}
	if m.State(0) != Idle {
		t.Errorf("target within epsilon of current %f: state = %v, want idle", m.Current(0), m.State(0))
	}
}

func TestModel_AdvanceConverges(t *testing.T) {
	m := NewModel()
	m.UpdateTarget(0, Increase, 300)
	target := float64(m.Target(0))

	prev := math.Abs(target - m.Current(0))
	for n := 0; n < 1000; n++ {
		m.Advance()
		gap := math.Abs(target - m.Current(0))
		if gap == 0 {
			break
		}
		if gap >= prev {
			t.Fatalf("tick %d: gap %f did not shrink from %f", n, gap, prev)
		}
		prev = gap
	}

	if m.Current(0) != target {
		t.Fatalf("current = %v, want exactly %v", m.Current(0), target)
	}
	info := m.Snapshot(0)
	if info.Speed != 0 {
		t.Errorf("speed after convergence = %f, want 0", info.Speed)
	}
}

func TestModel_AdvanceStepIsFraction(t *testing.T) {
	m := NewModel()
	m.UpdateTarget(0, Increase, 100)
	m.Advance()

	want := 512 + 100*Smooth
	if math.Abs(m.Current(0)-want) > 1e-9 {
		t.Errorf("current after one tick = %f, want %f", m.Current(0), want)
	}
	if info := m.Snapshot(0); math.Abs(info.Speed-100*Smooth) > 1e-9 {
		t.Errorf("speed = %f, want %f", info.Speed, 100*Smooth)
	}
}

func TestModel_SetTargets(t *testing.T) {
	m := NewModel()
	m.SetTargets([NumAxes]int{0, 700, 2000, 956, 800, 430})

	want := [NumAxes]int{0, 700, 1010, 956, 800, 430}
	if got := m.Targets(); got != want {
		t.Errorf("Targets() = %v, want %v", got, want)
	}

	states := []State{AtLimit, Moving, AtLimit, Moving, Idle, AtLimit}
	for i, s := range states {
		if m.State(i) != s {
			t.Errorf("axis %d state = %v, want %v", i, m.State(i), s)
		}
	}
}

func TestModel_Snapshot(t *testing.T) {
	m := NewModel()
	m.UpdateTarget(4, Decrease, 100)

	info := m.Snapshot(4)
	if info.Name != Wrist || info.Target != 700 || info.Current != 800 {
		t.Errorf("Snapshot(4) = %+v", info)
	}
	if info.Min != 0 || info.Max != 1023 {
		t.Errorf("range = [%d,%d], want [0,1023]", info.Min, info.Max)
	}
	if math.Abs(info.Angle-Angle(700)) > 1e-9 {
		t.Errorf("angle = %f, want computed from target", info.Angle)
	}
}

func TestTorque_Toggle(t *testing.T) {
	tq := AllTorqueOn()
	if got := tq.Toggle(3); got {
		t.Error("Toggle(3) = true, want false")
	}
	want := Torque{true, true, true, false, true, true}
	if tq != want {
		t.Errorf("flags = %v, want %v", tq, want)
	}
	if got := tq.Toggle(3); !got {
		t.Error("second Toggle(3) = false, want true")
	}
}
