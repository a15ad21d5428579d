// Package link carries commands from the controller to the motor board.
//
// Two ASCII messages exist, both terminated by '*':
//
//	Control:512,512,512,980,800,430*
//	Torque:1,1,1,0,1,1*
//
// The board does not acknowledge either one.
package link

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gwillem/manipulator/pkg/robot"
)

const (
	positionPrefix = "Control:"
	torquePrefix   = "Torque:"
	terminator     = "*"
)

// Kind distinguishes the two outbound messages.
type Kind int

const (
	KindPosition Kind = iota
	KindTorque
)

func (k Kind) String() string {
	switch k {
	case KindPosition:
		return "position"
	case KindTorque:
		return "torque"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Message is one command for the board. Positions is set for KindPosition,
// Torque for KindTorque.
type Message struct {
	Kind      Kind
	Positions [robot.NumAxes]int
	Torque    [robot.NumAxes]bool
}

// EncodePosition builds a position command from six targets.
func EncodePosition(targets [robot.NumAxes]int) Message {
	return Message{Kind: KindPosition, Positions: targets}
}

// EncodeTorque builds a torque command from six enable flags.
func EncodeTorque(flags [robot.NumAxes]bool) Message {
	return Message{Kind: KindTorque, Torque: flags}
}

// String returns the framed wire text.
func (m Message) String() string {
	var sb strings.Builder
	if m.Kind == KindTorque {
		sb.WriteString(torquePrefix)
		for i, on := range m.Torque {
			if i > 0 {
				sb.WriteByte(',')
			}
			if on {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
	} else {
		sb.WriteString(positionPrefix)
		for i, v := range m.Positions {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Itoa(v))
		}
	}
	sb.WriteString(terminator)
	return sb.String()
}

// Bytes returns the framed wire bytes.
func (m Message) Bytes() []byte {
	return []byte(m.String())
}

// Parse decodes one framed message.
func Parse(s string) (Message, error) {
	body, ok := strings.CutSuffix(s, terminator)
	if !ok {
		return Message{}, fmt.Errorf("parse %q: missing terminator", s)
	}

	var m Message
	switch {
	case strings.HasPrefix(body, positionPrefix):
		m.Kind = KindPosition
		body = body[len(positionPrefix):]
	case strings.HasPrefix(body, torquePrefix):
		m.Kind = KindTorque
		body = body[len(torquePrefix):]
	default:
		return Message{}, fmt.Errorf("parse %q: unknown prefix", s)
	}

	fields := strings.Split(body, ",")
	if len(fields) != robot.NumAxes {
		return Message{}, fmt.Errorf("parse %q: expected %d values, got %d", s, robot.NumAxes, len(fields))
	}
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return Message{}, fmt.Errorf("parse %q: value %d: %w", s, i+1, err)
		}
		if m.Kind == KindTorque {
			if v != 0 && v != 1 {
				return Message{}, fmt.Errorf("parse %q: torque flag %d is %d", s, i+1, v)
			}
			m.Torque[i] = v == 1
		} else {
			m.Positions[i] = v
		}
	}
	return m, nil
}
