// Package control provides the controller that input and rendering layers
// use to drive the arm.
package control

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gwillem/manipulator/pkg/link"
	"github.com/gwillem/manipulator/pkg/robot"
	"github.com/gwillem/manipulator/pkg/telemetry"
)

// State is a snapshot of everything the rendering layer shows.
type State struct {
	Motors       [robot.NumAxes]robot.MotorInfo
	ActivePreset string
	Status       string
	Connected    bool
	Logging      bool
	Timestamp    time.Time
}

// Config holds configuration for the controller.
type Config struct {
	Link       link.Options
	PresetFile string
	Hz         int

	// Telemetry receives the current positions after every tick. A
	// *telemetry.Gate makes recording switchable at runtime.
	Telemetry telemetry.Sink

	// Logger mirrors controller log lines when set.
	Logger *log.Logger
}

// switchable is implemented by sinks that can be paused.
type switchable interface {
	SetEnabled(on bool)
	Enabled() bool
}

// Controller owns the position model, torque flags, presets and command
// channel. All methods are safe for concurrent use.
type Controller struct {
	ch        *link.Channel
	hz        int
	telemetry telemetry.Sink
	logger    *log.Logger

	mu          sync.Mutex
	model       *robot.Model
	torque      robot.Torque
	presets     *robot.Presets
	active      string
	status      string
	running     bool
	sinkFailing bool

	// sendMu serializes commands so they leave in the order their state
	// changes happened. It is always taken before mu, and mu is never held
	// while a command is on the wire.
	sendMu sync.Mutex

	stateCh chan State
	logCh   chan string
}

// New loads presets, makes the single connection attempt and returns a
// controller with every axis at its default. A device that cannot be opened
// is not an error; the controller runs in simulation mode.
func New(ctx context.Context, cfg Config) (*Controller, error) {
	if cfg.PresetFile == "" {
		cfg.PresetFile = robot.DefaultPresetFile
	}
	presets, err := robot.LoadPresets(cfg.PresetFile)
	if err != nil {
		return nil, fmt.Errorf("load presets: %w", err)
	}

	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}

	c := &Controller{
		hz:        cfg.Hz,
		telemetry: cfg.Telemetry,
		logger:    cfg.Logger,
		model:     robot.NewModel(),
		torque:    robot.AllTorqueOn(),
		presets:   presets,
		status:    "System Ready",
		stateCh:   make(chan State, 1),
		logCh:     make(chan string, 32),
	}

	opts := cfg.Link
	opts.Logf = c.log
	c.ch = link.Connect(ctx, opts)
	return c, nil
}

// Close releases the device and telemetry sink.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.running = false
	c.status = "System Shutdown"
	c.mu.Unlock()

	var errs []error
	if err := c.ch.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close channel: %w", err))
	}
	if c.telemetry != nil {
		if err := c.telemetry.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close telemetry: %w", err))
		}
	}
	return errors.Join(errs...)
}

// States returns a channel that receives state updates from Start.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the tick frequency.
func (c *Controller) Hz() int {
	return c.hz
}

// Connected reports whether commands reach a device.
func (c *Controller) Connected() bool {
	return c.ch.Connected()
}

func (c *Controller) log(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	if c.logger != nil {
		c.logger.Print(text)
	}
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), text)
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// UpdateTarget steps one axis and sends a position command if its target
// changed. It reports whether it did.
func (c *Controller) UpdateTarget(axis int, dir robot.Direction, step int) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.mu.Lock()
	if !c.model.UpdateTarget(axis, dir, step) {
		c.mu.Unlock()
		return false
	}
	a := robot.AxisAt(axis)
	c.active = ""
	c.status = fmt.Sprintf("Motor %d (%s): %s%d → %d", axis+1, a.Name, dir, step, c.model.Target(axis))
	status := c.status
	msg := link.EncodePosition(c.model.Targets())
	c.mu.Unlock()

	c.log("COMMAND: %s", status)
	c.send(msg)
	return true
}

// ToggleTorque flips the torque flag of one axis, sends a torque command and
// returns the new flag.
func (c *Controller) ToggleTorque(axis int) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.mu.Lock()
	on := c.torque.Toggle(axis)
	state := "off"
	if on {
		state = "on"
	}
	c.status = fmt.Sprintf("Torque M%d (%s) %s", axis+1, robot.AxisAt(axis).Name, state)
	status := c.status
	msg := link.EncodeTorque(c.torque)
	c.mu.Unlock()

	c.log("COMMAND: %s", status)
	c.send(msg)
	return on
}

// SavePreset stores the current targets under name and persists the store.
func (c *Controller) SavePreset(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.presets.Save(name, c.model.Targets()); err != nil {
		c.log("Preset save failed: %v", err)
		return err
	}
	c.status = fmt.Sprintf("Preset %s saved", name)
	c.log("%s", c.status)
	return nil
}

// LoadPreset assigns all six targets from the named preset and sends one
// position command. Unknown names change nothing and return false.
func (c *Controller) LoadPreset(name string) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.mu.Lock()
	v, ok := c.presets.Apply(name)
	if !ok {
		c.mu.Unlock()
		c.log("Unknown preset %q", name)
		return false
	}
	c.model.SetTargets(v)
	c.active = name
	c.status = fmt.Sprintf("Preset %s applied", name)
	status := c.status
	msg := link.EncodePosition(c.model.Targets())
	c.mu.Unlock()

	c.log("COMMAND: %s", status)
	c.send(msg)
	return true
}

func (c *Controller) send(msg link.Message) {
	reply, err := c.ch.Send(context.Background(), msg)
	switch {
	case errors.Is(err, link.ErrSimulated):
		c.log("SIM %s", msg)
	case err != nil:
		c.log("Write error: %v", err)
	default:
		c.log("Sent %s", msg)
		if reply != "" {
			c.log("Board response: %s", reply)
		}
	}
}

// Tick advances the smoothing model one step and hands the current positions
// to telemetry. It never sends a command.
func (c *Controller) Tick() {
	c.mu.Lock()
	c.model.Advance()
	sample := telemetry.Sample{Time: time.Now(), Positions: c.model.Currents()}
	c.mu.Unlock()

	if c.telemetry == nil {
		return
	}
	err := c.telemetry.Record(sample)

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case err != nil && !c.sinkFailing:
		c.sinkFailing = true
		c.log("Telemetry error: %v", err)
	case err == nil && c.sinkFailing:
		c.sinkFailing = false
		c.log("Telemetry recovered")
	}
}

// MotorInfo returns the snapshot of one axis.
func (c *Controller) MotorInfo(axis int) robot.MotorInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.motorInfo(axis)
}

func (c *Controller) motorInfo(axis int) robot.MotorInfo {
	info := c.model.Snapshot(axis)
	info.TorqueEnabled = c.torque[axis]
	return info
}

// Snapshot returns the full controller state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		ActivePreset: c.active,
		Status:       c.status,
		Connected:    c.ch.Connected(),
		Logging:      c.telemetryEnabled(),
		Timestamp:    time.Now(),
	}
	for i := range s.Motors {
		s.Motors[i] = c.motorInfo(i)
	}
	return s
}

// Targets returns the current target vector.
func (c *Controller) Targets() robot.Vector {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model.Targets()
}

// Torque returns the torque flags.
func (c *Controller) Torque() robot.Torque {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.torque
}

// Presets returns all presets in insertion order.
func (c *Controller) Presets() []robot.Preset {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.presets.All()
}

// ActivePreset returns the last applied preset, or "" after a manual change.
func (c *Controller) ActivePreset() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Status returns the last action description.
func (c *Controller) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// TelemetryEnabled reports whether samples are being recorded.
func (c *Controller) TelemetryEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.telemetryEnabled()
}

func (c *Controller) telemetryEnabled() bool {
	if c.telemetry == nil {
		return false
	}
	if s, ok := c.telemetry.(switchable); ok {
		return s.Enabled()
	}
	return true
}

// SetTelemetry pauses or resumes recording. It returns false when no
// switchable sink is configured.
func (c *Controller) SetTelemetry(on bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.telemetry.(switchable)
	if !ok {
		return false
	}
	s.SetEnabled(on)
	if on {
		c.status = "Telemetry recording"
	} else {
		c.status = "Telemetry paused"
	}
	c.log("%s", c.status)
	return true
}

// Start runs Tick at the configured rate until ctx is done, publishing a
// State after every tick.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()

	c.log("Control loop started at %d Hz", c.hz)

	ticker := time.NewTicker(time.Second / time.Duration(c.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-ticker.C:
			c.Tick()
			c.sendState(c.Snapshot())
		}
	}
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		select {
		case c.stateCh <- s:
		default:
		}
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	c.log("Control loop stopped")
}
