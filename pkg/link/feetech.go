package link

import (
	"context"
	"fmt"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/manipulator/pkg/robot"
)

// FeetechTransport drives a Feetech STS servo bus directly. Each axis is
// scaled onto its servo through a robot.MotorCalibration.
type FeetechTransport struct {
	bus    *feetech.Bus
	group  *feetech.ServoGroup
	cal    [robot.NumAxes]robot.MotorCalibration
	servos [robot.NumAxes]*feetech.Servo
}

// OpenFeetech opens a servo bus on opts.Port.
func OpenFeetech(_ context.Context, opts Options) (Transport, error) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     opts.Port,
		BaudRate: opts.BaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	cal, err := opts.Servos.WithDefaults()
	if err != nil {
		bus.Close()
		return nil, err
	}

	t := &FeetechTransport{bus: bus}
	for i, a := range robot.AllAxes() {
		t.cal[i] = cal[a.Name]
		t.servos[i] = feetech.NewServo(bus, t.cal[i].ID, nil)
	}
	t.group = feetech.NewServoGroupByIDs(bus, cal.MotorIDs()...)
	return t, nil
}

// servoPositions converts axis targets to servo ticks keyed by servo ID.
func servoPositions(cal [robot.NumAxes]robot.MotorCalibration, targets [robot.NumAxes]int) feetech.PositionMap {
	positions := make(feetech.PositionMap, robot.NumAxes)
	for i, v := range targets {
		positions[cal[i].ID] = cal[i].ToServo(robot.AxisAt(i), v)
	}
	return positions
}

// Deliver translates msg into bus writes. Position commands use one sync
// write; torque commands enable or disable each servo in turn.
func (t *FeetechTransport) Deliver(ctx context.Context, msg Message) (string, error) {
	switch msg.Kind {
	case KindPosition:
		if err := t.group.SetPositions(ctx, servoPositions(t.cal, msg.Positions)); err != nil {
			return "", fmt.Errorf("write positions: %w", err)
		}
	case KindTorque:
		for i, on := range msg.Torque {
			var err error
			if on {
				err = t.servos[i].Enable(ctx)
			} else {
				err = t.servos[i].Disable(ctx)
			}
			if err != nil {
				return "", fmt.Errorf("servo %d torque: %w", t.cal[i].ID, err)
			}
		}
	default:
		return "", fmt.Errorf("unsupported message kind %v", msg.Kind)
	}
	return "", nil
}

// Close closes the bus.
func (t *FeetechTransport) Close() error {
	return t.bus.Close()
}
