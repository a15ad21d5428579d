package link

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gwillem/manipulator/pkg/robot"
)

var (
	// ErrSimulated is returned by Send when no device was connected at
	// startup. The message was not transmitted.
	ErrSimulated = errors.New("simulation mode: not connected")

	// ErrTimeout marks a send that did not finish within the channel timeout.
	ErrTimeout = errors.New("send timed out")
)

// SendError reports a failed transmission while connected. The channel stays
// connected after it.
type SendError struct {
	Message Message
	Err     error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send %s: %v", e.Message, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Transport delivers framed messages to a device. Deliver may return a
// response the device happened to send back; it is never validated.
type Transport interface {
	Deliver(ctx context.Context, msg Message) (reply string, err error)
	Close() error
}

// Opener opens a transport for the given options.
type Opener func(ctx context.Context, opts Options) (Transport, error)

// Options configures Connect.
type Options struct {
	Port        string
	BaudRate    int
	Driver      string        // robot.DriverSerial or robot.DriverFeetech
	Timeout     time.Duration // bound on one send, 1s if unset
	SettleDelay time.Duration // wait after opening before first use
	Simulate    bool          // skip the device entirely

	// Servos maps axes to bus servos for the feetech driver. Nil means
	// robot.DefaultCalibration.
	Servos robot.Calibration

	// Open overrides the opener selected by Driver.
	Open Opener

	// Logf receives connection messages. Nil discards them.
	Logf func(format string, args ...any)
}

func (o Options) opener() (Opener, error) {
	if o.Open != nil {
		return o.Open, nil
	}
	switch o.Driver {
	case "", robot.DriverSerial:
		return OpenSerial, nil
	case robot.DriverFeetech:
		return OpenFeetech, nil
	default:
		return nil, fmt.Errorf("unknown driver %q", o.Driver)
	}
}

// Channel sends commands to the board. It is connected or not for its whole
// lifetime; a failed open is never retried.
type Channel struct {
	transport Transport
	connected bool
	port      string
	timeout   time.Duration
	openErr   error

	// one slot: held from the start of a write until the transport returns
	inflight chan struct{}

	closeOnce sync.Once
}

// Connect makes the single connection attempt for this process. Any failure
// leaves the returned channel in simulation mode; see OpenErr.
func Connect(ctx context.Context, opts Options) *Channel {
	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	c := &Channel{
		port:     opts.Port,
		timeout:  opts.Timeout,
		inflight: make(chan struct{}, 1),
	}
	if c.timeout <= 0 {
		c.timeout = time.Second
	}

	if opts.Simulate {
		logf("Simulation mode: device disabled")
		return c
	}

	open, err := opts.opener()
	if err == nil {
		c.transport, err = open(ctx, opts)
	}
	if err != nil {
		c.openErr = err
		logf("Serial port connection error: %v (simulation mode)", err)
		return c
	}

	if opts.SettleDelay > 0 {
		t := time.NewTimer(opts.SettleDelay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			c.transport.Close()
			c.transport = nil
			c.openErr = ctx.Err()
			logf("Connection to %s abandoned: %v (simulation mode)", opts.Port, ctx.Err())
			return c
		}
	}

	c.connected = true
	logf("Connected to %s", opts.Port)
	return c
}

// Connected reports whether a device was opened at startup.
func (c *Channel) Connected() bool {
	return c.connected
}

// Port returns the configured device path.
func (c *Channel) Port() string {
	return c.port
}

// OpenErr returns why the device could not be opened, if it was not.
func (c *Channel) OpenErr() error {
	return c.openErr
}

type delivery struct {
	reply string
	err   error
}

// Send transmits msg. It returns ErrSimulated when not connected, or a
// *SendError when the write fails or exceeds the channel timeout. Only one
// write is outstanding at a time; a send that times out keeps the slot until
// the transport returns, so later sends wait for it (bounded by their own
// timeout).
func (c *Channel) Send(ctx context.Context, msg Message) (string, error) {
	if !c.connected {
		return "", ErrSimulated
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	select {
	case c.inflight <- struct{}{}:
	case <-ctx.Done():
		return "", &SendError{Message: msg, Err: fmt.Errorf("%w: previous write still pending", ErrTimeout)}
	}

	done := make(chan delivery, 1)
	go func() {
		defer func() { <-c.inflight }()
		reply, err := c.transport.Deliver(ctx, msg)
		done <- delivery{reply: reply, err: err}
	}()

	select {
	case d := <-done:
		if d.err != nil {
			return "", &SendError{Message: msg, Err: d.err}
		}
		return d.reply, nil
	case <-ctx.Done():
		return "", &SendError{Message: msg, Err: fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())}
	}
}

// Close releases the device. It is safe to call more than once.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.transport != nil {
			err = c.transport.Close()
		}
	})
	return err
}
