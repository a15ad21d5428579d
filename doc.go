// Package manipulator provides keyboard control for a six axis robot arm
// driven by a serial motor board.
//
// Each key press moves one axis target by a fixed step and sends the whole
// target vector to the board as a single text command. A smoothing model
// animates the displayed positions toward their targets. Named presets set
// all six targets at once and are kept in a JSON file.
//
// # Installation
//
//	go install github.com/gwillem/manipulator/cmd/manipulator@latest
//
// # Usage
//
// Pick the serial port and driver once:
//
//	manipulator setup
//
// Then drive the arm:
//
//	manipulator drive
//
// Without a reachable board the controller runs in simulation mode and logs
// every command instead of sending it.
//
// # Packages
//
//   - cmd/manipulator: CLI with setup, drive, presets, ports and send commands
//   - pkg/robot: Axis registry, position model, presets and configuration
//   - pkg/link: Wire protocol and command channel (serial or Feetech bus)
//   - pkg/control: Controller shared by input and rendering
//   - pkg/telemetry: Position recording to CSV and MQTT
package manipulator
