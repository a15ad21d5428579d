package link

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// replyWait bounds the opportunistic read that follows each write.
const replyWait = 10 * time.Millisecond

// Port is the part of a serial port the transport needs. go.bug.st/serial
// ports satisfy it; tests use a fake.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// SerialTransport writes framed ASCII messages to a motor board.
type SerialTransport struct {
	mu   sync.Mutex
	port Port
	buf  []byte
}

// NewSerialTransport wraps an open port. The port's read timeout should
// already be short; see OpenSerial.
func NewSerialTransport(p Port) *SerialTransport {
	return &SerialTransport{port: p, buf: make([]byte, 256)}
}

// OpenSerial opens opts.Port as 8N1 at opts.BaudRate.
func OpenSerial(_ context.Context, opts Options) (Transport, error) {
	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(opts.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Port, err)
	}
	if err := port.SetReadTimeout(replyWait); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return NewSerialTransport(port), nil
}

// Deliver writes msg and returns whatever the board sent back within
// replyWait, trimmed. An empty reply is normal.
func (t *SerialTransport) Deliver(_ context.Context, msg Message) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.port.Write(msg.Bytes()); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}

	n, err := t.port.Read(t.buf)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read: %w", err)
	}
	return strings.TrimSpace(string(t.buf[:n])), nil
}

// Close closes the port.
func (t *SerialTransport) Close() error {
	return t.port.Close()
}

// ListPorts returns the serial ports on this machine, skipping macOS
// Bluetooth pseudo-ports.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list ports: %w", err)
	}

	out := ports[:0]
	for _, p := range ports {
		if strings.Contains(p, "Bluetooth") {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
