package robot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// DefaultConfigFile is the configuration read and written when --config is
// not given.
const DefaultConfigFile = "manipulator.json"

// Drivers understood by the command channel.
const (
	DriverSerial  = "serial"
	DriverFeetech = "feetech"
)

// Config holds the manipulator configuration
type Config struct {
	Port          string          `json:"port"`
	BaudRate      int             `json:"baud_rate"`
	Driver        string          `json:"driver"`
	Hz            int             `json:"hz"`
	Step          int             `json:"step"`
	PresetFile    string          `json:"preset_file"`
	SendTimeoutMs int             `json:"send_timeout_ms"`
	SettleDelayMs int             `json:"settle_delay_ms"`
	Telemetry     TelemetryConfig `json:"telemetry"`

	// Servos maps axes onto bus servos for the feetech driver.
	Servos Calibration `json:"servos,omitempty"`
}

// TelemetryConfig selects where current positions are recorded.
type TelemetryConfig struct {
	IntervalMs int    `json:"interval_ms"`
	CSV        string `json:"csv,omitempty"`
	MQTTBroker string `json:"mqtt_broker,omitempty"`
	MQTTTopic  string `json:"mqtt_topic,omitempty"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	cfg, _ := (&Config{}).Normalize()
	return cfg
}

// Normalize validates the config and fills defaults for unset values.
func (c *Config) Normalize() (*Config, error) {
	cfg := *c

	if cfg.Port == "" {
		cfg.Port = "/dev/ttyUSB0"
	}
	switch cfg.Driver {
	case "":
		cfg.Driver = DriverSerial
	case DriverSerial, DriverFeetech:
	default:
		return &cfg, fmt.Errorf("unsupported driver %q: expected %s or %s", cfg.Driver, DriverSerial, DriverFeetech)
	}
	if cfg.Driver == DriverFeetech {
		servos, err := cfg.Servos.WithDefaults()
		if err != nil {
			return &cfg, err
		}
		cfg.Servos = servos
	}
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = 115200
		if cfg.Driver == DriverFeetech {
			cfg.BaudRate = 1_000_000
		}
	}
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	if cfg.Step <= 0 {
		cfg.Step = 3
	}
	if cfg.PresetFile == "" {
		cfg.PresetFile = DefaultPresetFile
	}
	if cfg.SendTimeoutMs <= 0 {
		cfg.SendTimeoutMs = 1000
	}
	if cfg.SettleDelayMs < 0 {
		return &cfg, fmt.Errorf("invalid settle delay %dms", cfg.SettleDelayMs)
	}
	if cfg.SettleDelayMs == 0 {
		cfg.SettleDelayMs = 2000
	}
	if cfg.Telemetry.IntervalMs <= 0 {
		cfg.Telemetry.IntervalMs = 100
	}
	if cfg.Telemetry.MQTTBroker != "" && cfg.Telemetry.MQTTTopic == "" {
		cfg.Telemetry.MQTTTopic = "manipulator/positions"
	}
	return &cfg, nil
}

// SendTimeout returns the bound on a single serial write.
func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutMs) * time.Millisecond
}

// SettleDelay returns how long to wait after opening the port.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMs) * time.Millisecond
}

// TelemetryInterval returns the minimum gap between telemetry samples.
func (c *Config) TelemetryInterval() time.Duration {
	return time.Duration(c.Telemetry.IntervalMs) * time.Millisecond
}

// LoadConfigFrom loads configuration from a specific file. A missing file
// yields DefaultConfig.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg.Normalize()
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists reports whether a configuration file exists at path.
func ConfigExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
