package main

import (
	"strings"
	"time"

	"github.com/gwillem/manipulator/pkg/robot"
)

const (
	moveRepeat   = 50 * time.Millisecond
	toggleRepeat = 300 * time.Millisecond
)

type actionKind int

const (
	actionNone actionKind = iota
	actionMove
	actionTorque
	actionPreset
	actionPrompt
	actionTelemetry
	actionQuit
)

type action struct {
	kind   actionKind
	axis   int
	dir    robot.Direction
	preset int // zero-based insertion index
}

// Increase/decrease pairs for M1..M6.
var moveKeys = [robot.NumAxes][2]string{
	{"q", "a"},
	{"w", "s"},
	{"e", "d"},
	{"r", "f"},
	{"t", "g"},
	{"y", "h"},
}

const torqueKeys = "zxcvbn"

func actionFor(key string) action {
	switch key {
	case "esc", "ctrl+c":
		return action{kind: actionQuit}
	}
	if len(key) != 1 {
		return action{}
	}
	key = strings.ToLower(key)

	for i, pair := range moveKeys {
		switch key {
		case pair[0]:
			return action{kind: actionMove, axis: i, dir: robot.Increase}
		case pair[1]:
			return action{kind: actionMove, axis: i, dir: robot.Decrease}
		}
	}
	if i := strings.Index(torqueKeys, key); i >= 0 {
		return action{kind: actionTorque, axis: i}
	}
	if key[0] >= '1' && key[0] <= '9' {
		return action{kind: actionPreset, preset: int(key[0] - '1')}
	}
	switch key {
	case "p":
		return action{kind: actionPrompt}
	case "l":
		return action{kind: actionTelemetry}
	}
	return action{}
}

// repeatLimiter drops terminal auto-repeat faster than a per-key interval.
type repeatLimiter struct {
	last map[string]time.Time
}

func newRepeatLimiter() *repeatLimiter {
	return &repeatLimiter{last: make(map[string]time.Time)}
}

func (r *repeatLimiter) allow(key string, interval time.Duration, now time.Time) bool {
	if t, ok := r.last[key]; ok && now.Sub(t) < interval {
		return false
	}
	r.last[key] = now
	return true
}
