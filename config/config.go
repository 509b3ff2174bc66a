// Package config defines the JSON configuration of the characterization robot and validates it
// before the first control period runs.
package config

import (
	"fmt"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/utils"

	"go.viam.com/sysid/units"
)

// Component types understood by the robot.
const (
	TypeMotor           = "motor"
	TypeEncoder         = "encoder"
	TypeGyro            = "gyro"
	TypePowerSensor     = "power_sensor"
	TypeInputController = "input_controller"
)

const (
	// DefaultPeriod is the scheduler period the data logger expects.
	DefaultPeriod = 10 * time.Millisecond
	// DefaultWheelDiameter is a 6 inch wheel.
	DefaultWheelDiameter = 6.0
	// DefaultEncoderEdgesPerRev matches a 512 CPR quadrature encoder.
	DefaultEncoderEdgesPerRev = 2048
	// DefaultBindAddress is where the command/telemetry channel listens by default.
	DefaultBindAddress = "localhost:5810"
	// DefaultMQTTClientID is used when an MQTT broker is configured without a client id.
	DefaultMQTTClientID = "sysid-robot"
	// DefaultLogFileMaxSizeMB is the size at which the log file is rotated.
	DefaultLogFileMaxSizeMB = 10
	// DefaultLogFileMaxBackups is how many rotated log files are kept.
	DefaultLogFileMaxBackups = 3
)

// A Config describes the configuration of a characterization robot.
type Config struct {
	Period             string            `json:"period,omitempty"`
	WheelDiameter      *float64          `json:"wheel_diameter,omitempty"`
	EncoderEdgesPerRev *float64          `json:"encoder_edges_per_rev,omitempty"`
	Drivetrain         DrivetrainConfig  `json:"drivetrain"`
	Sensors            SensorsConfig     `json:"sensors"`
	Joystick           string            `json:"joystick,omitempty"`
	Network            NetworkConfig     `json:"network"`
	Simulation         *SimulationConfig `json:"simulation,omitempty"`
	Components         []Component       `json:"components,omitempty"`
	LogFile            *LogFileConfig    `json:"log_file,omitempty"`

	Debug          bool   `json:"debug,omitempty"`
	ConfigFilePath string `json:"-"`

	period    time.Duration
	converter units.Converter
}

// DrivetrainConfig names the motors of each side. The first motor of a side is its leader.
type DrivetrainConfig struct {
	Left        []string `json:"left"`
	Right       []string `json:"right"`
	InvertLeft  bool     `json:"invert_left,omitempty"`
	InvertRight bool     `json:"invert_right,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *DrivetrainConfig) Validate(path string) error {
	if len(cfg.Left) == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "left")
	}
	if len(cfg.Right) == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "right")
	}
	if dups := lo.FindDuplicates(append(append([]string{}, cfg.Left...), cfg.Right...)); len(dups) > 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("motor %q is used more than once", dups[0]))
	}
	return nil
}

// SensorsConfig names the components the sensor facade samples.
type SensorsConfig struct {
	LeftEncoder      string `json:"left_encoder"`
	RightEncoder     string `json:"right_encoder"`
	InvertLeftPhase  bool   `json:"invert_left_phase,omitempty"`
	InvertRightPhase bool   `json:"invert_right_phase,omitempty"`
	Gyro             string `json:"gyro"`
	PowerSensor      string `json:"power_sensor"`
}

// Validate ensures all parts of the config are valid.
func (cfg *SensorsConfig) Validate(path string) error {
	for field, val := range map[string]string{
		"left_encoder":  cfg.LeftEncoder,
		"right_encoder": cfg.RightEncoder,
		"gyro":          cfg.Gyro,
		"power_sensor":  cfg.PowerSensor,
	} {
		if val == "" {
			return utils.NewConfigValidationFieldRequiredError(path, field)
		}
	}
	return nil
}

// NetworkConfig describes how the command/telemetry channel is exposed.
type NetworkConfig struct {
	Listen         string      `json:"listen,omitempty"`
	UpdateInterval string      `json:"update_interval,omitempty"`
	MQTT           *MQTTConfig `json:"mqtt,omitempty"`

	updateInterval time.Duration
}

// Validate ensures all parts of the config are valid. The update interval defaults to, and must
// equal, the scheduler period so every telemetry write is observable on its own.
func (nc *NetworkConfig) Validate(path string, period time.Duration) error {
	if nc.Listen == "" {
		nc.Listen = DefaultBindAddress
	}
	if _, _, err := net.SplitHostPort(nc.Listen); err != nil {
		return utils.NewConfigValidationError(path, errors.Wrap(err, "error validating listen"))
	}
	nc.updateInterval = period
	if nc.UpdateInterval != "" {
		interval, err := time.ParseDuration(nc.UpdateInterval)
		if err != nil {
			return utils.NewConfigValidationError(path, errors.Wrap(err, "error validating update_interval"))
		}
		if interval != period {
			return utils.NewConfigValidationError(path,
				errors.Errorf("update_interval %s must match the loop period %s", interval, period))
		}
		nc.updateInterval = interval
	}
	if nc.MQTT != nil {
		if err := nc.MQTT.Validate(fmt.Sprintf("%s.mqtt", path)); err != nil {
			return err
		}
	}
	return nil
}

// UpdateIntervalDuration returns the validated channel update interval.
func (nc *NetworkConfig) UpdateIntervalDuration() time.Duration {
	return nc.updateInterval
}

// MQTTConfig configures the optional MQTT bridge of the command/telemetry channel.
type MQTTConfig struct {
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id,omitempty"`
	TopicPrefix string `json:"topic_prefix,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *MQTTConfig) Validate(path string) error {
	if cfg.Broker == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "broker")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultMQTTClientID
	}
	return nil
}

// SimulationConfig turns on the simulated drivetrain. Speeds and widths are in the wheel
// diameter's distance unit.
type SimulationConfig struct {
	FreeSpeed       float64 `json:"free_speed"`
	TimeConstantSec float64 `json:"time_constant_sec,omitempty"`
	TrackWidth      float64 `json:"track_width"`
	StaticVolts     float64 `json:"static_volts,omitempty"`
	BatteryVolts    float64 `json:"battery_volts,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *SimulationConfig) Validate(path string) error {
	if cfg.FreeSpeed <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "free_speed")
	}
	if cfg.TrackWidth <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "track_width")
	}
	if cfg.TimeConstantSec < 0 || cfg.StaticVolts < 0 || cfg.BatteryVolts < 0 {
		return utils.NewConfigValidationError(path, errors.New("time_constant_sec, static_volts and battery_volts cannot be negative"))
	}
	if cfg.TimeConstantSec == 0 {
		cfg.TimeConstantSec = 0.1
	}
	if cfg.BatteryVolts == 0 {
		cfg.BatteryVolts = 12
	}
	return nil
}

// LogFileConfig additionally writes logs to a size-rotated file.
type LogFileConfig struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *LogFileConfig) Validate(path string) error {
	if cfg.Path == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "path")
	}
	if cfg.MaxSizeMB < 0 || cfg.MaxBackups < 0 {
		return utils.NewConfigValidationError(path, errors.New("max_size_mb and max_backups cannot be negative"))
	}
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = DefaultLogFileMaxSizeMB
	}
	if cfg.MaxBackups == 0 {
		cfg.MaxBackups = DefaultLogFileMaxBackups
	}
	return nil
}

// Ensure fills in defaults and ensures all parts of the config are valid. It must succeed before
// the robot runs a single period.
func (c *Config) Ensure() error {
	c.period = DefaultPeriod
	if c.Period != "" {
		period, err := time.ParseDuration(c.Period)
		if err != nil {
			return utils.NewConfigValidationError("period", err)
		}
		if period <= 0 {
			return utils.NewConfigValidationError("period", errors.Errorf("must be positive, got %s", period))
		}
		c.period = period
	}

	// only missing values take a default; an explicit zero is rejected by the converter
	if c.WheelDiameter == nil {
		diameter := DefaultWheelDiameter
		c.WheelDiameter = &diameter
	}
	if c.EncoderEdgesPerRev == nil {
		edges := float64(DefaultEncoderEdgesPerRev)
		c.EncoderEdgesPerRev = &edges
	}
	converter, err := units.NewConverter(*c.WheelDiameter, *c.EncoderEdgesPerRev)
	if err != nil {
		return utils.NewConfigValidationError("", err)
	}
	c.converter = converter

	types := make(map[string]string, len(c.Components))
	for idx := range c.Components {
		path := fmt.Sprintf("%s.%d", "components", idx)
		if err := c.Components[idx].convertAttributes(); err != nil {
			return utils.NewConfigValidationError(path, err)
		}
		if err := c.Components[idx].Validate(path); err != nil {
			return err
		}
		name := c.Components[idx].Name
		if _, ok := types[name]; ok {
			return utils.NewConfigValidationError(path, errors.Errorf("duplicate component name %q", name))
		}
		types[name] = c.Components[idx].Type
	}

	if err := c.Drivetrain.Validate("drivetrain"); err != nil {
		return err
	}
	if err := c.Sensors.Validate("sensors"); err != nil {
		return err
	}

	refs := []struct {
		path, name, typ string
	}{
		{"sensors.left_encoder", c.Sensors.LeftEncoder, TypeEncoder},
		{"sensors.right_encoder", c.Sensors.RightEncoder, TypeEncoder},
		{"sensors.gyro", c.Sensors.Gyro, TypeGyro},
		{"sensors.power_sensor", c.Sensors.PowerSensor, TypePowerSensor},
	}
	for i, name := range c.Drivetrain.Left {
		refs = append(refs, struct{ path, name, typ string }{fmt.Sprintf("drivetrain.left.%d", i), name, TypeMotor})
	}
	for i, name := range c.Drivetrain.Right {
		refs = append(refs, struct{ path, name, typ string }{fmt.Sprintf("drivetrain.right.%d", i), name, TypeMotor})
	}
	if c.Joystick != "" {
		refs = append(refs, struct{ path, name, typ string }{"joystick", c.Joystick, TypeInputController})
	}
	for _, ref := range refs {
		typ, ok := types[ref.name]
		if !ok {
			return utils.NewConfigValidationError(ref.path, errors.Errorf("unknown component %q", ref.name))
		}
		if typ != ref.typ {
			return utils.NewConfigValidationError(ref.path,
				errors.Errorf("component %q is a %s, expected a %s", ref.name, typ, ref.typ))
		}
	}

	if err := c.Network.Validate("network", c.period); err != nil {
		return err
	}
	if c.Simulation != nil {
		if err := c.Simulation.Validate("simulation"); err != nil {
			return err
		}
	}
	if c.LogFile != nil {
		if err := c.LogFile.Validate("log_file"); err != nil {
			return err
		}
	}
	return nil
}

// PeriodDuration returns the validated scheduler period.
func (c *Config) PeriodDuration() time.Duration {
	return c.period
}

// Converter returns the unit converter derived from the wheel diameter and encoder resolution.
func (c *Config) Converter() units.Converter {
	return c.converter
}

// FindComponent finds a particular component by name.
func (c *Config) FindComponent(name string) *Component {
	for idx := range c.Components {
		if c.Components[idx].Name == name {
			return &c.Components[idx]
		}
	}
	return nil
}
