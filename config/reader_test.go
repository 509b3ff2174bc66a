package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"
	"go.viam.com/utils"
)

const validConfig = `{
	"components": [
		{"name": "left-leader", "type": "motor", "model": "fake"},
		{"name": "left-follower", "type": "motor", "model": "fake"},
		{"name": "right-leader", "type": "motor", "model": "fake"},
		{"name": "left-enc", "type": "encoder", "model": "fake"},
		{"name": "right-enc", "type": "encoder", "model": "fake"},
		{"name": "navx", "type": "gyro", "model": "fake"},
		{"name": "pdp", "type": "power_sensor", "model": "fake"},
		{"name": "stick", "type": "input_controller", "model": "fake"}
	],
	"drivetrain": {"left": ["left-leader", "left-follower"], "right": ["right-leader"], "invert_right": true},
	"sensors": {
		"left_encoder": "left-enc",
		"right_encoder": "right-enc",
		"gyro": "navx",
		"power_sensor": "pdp"
	},
	"joystick": "stick"
}`

func TestFromReaderValidate(t *testing.T) {
	_, err := FromReader("somepath", strings.NewReader(""), EnvOverrides{})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "EOF")

	_, err = FromReader("somepath", strings.NewReader(`{"network": 1}`), EnvOverrides{})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unmarshal")

	_, err = FromReader("somepath", strings.NewReader(`{"components": [{}]}`), EnvOverrides{})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `components.0`)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"name" is required`)

	_, err = FromReader("somepath", strings.NewReader(`{}`), EnvOverrides{})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"left" is required`)

	conf, err := FromReader("somepath", strings.NewReader(validConfig), EnvOverrides{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.ConfigFilePath, test.ShouldEqual, "somepath")
	test.That(t, conf.PeriodDuration(), test.ShouldEqual, 10*time.Millisecond)
	test.That(t, conf.Network.UpdateIntervalDuration(), test.ShouldEqual, 10*time.Millisecond)
	test.That(t, conf.Network.Listen, test.ShouldEqual, DefaultBindAddress)
	test.That(t, *conf.WheelDiameter, test.ShouldEqual, 6.0)
	test.That(t, *conf.EncoderEdgesPerRev, test.ShouldEqual, 2048)
	test.That(t, conf.Converter().Constant(), test.ShouldAlmostEqual, 6*math.Pi/2048)
	test.That(t, conf.Drivetrain.InvertRight, test.ShouldBeTrue)
	test.That(t, conf.FindComponent("navx").Type, test.ShouldEqual, TypeGyro)
	test.That(t, conf.FindComponent("nope"), test.ShouldBeNil)
}

func TestConfigReferences(t *testing.T) {
	for _, tc := range []struct {
		name     string
		from, to string
		expected string
	}{
		{"unknown motor", `"right": ["right-leader"]`, `"right": ["ghost"]`, `unknown component "ghost"`},
		{"wrong type", `"gyro": "navx"`, `"gyro": "pdp"`, `expected a gyro`},
		{"duplicate", `{"name": "stick"`, `{"name": "navx"`, `duplicate component name "navx"`},
		{"bad period", `"joystick": "stick"`, `"joystick": "stick", "period": "-5ms"`, `must be positive`},
		{
			"interval mismatch",
			`"joystick": "stick"`,
			`"joystick": "stick", "network": {"update_interval": "20ms"}`,
			"must match the loop period",
		},
		{
			"bad wheel",
			`"joystick": "stick"`,
			`"joystick": "stick", "wheel_diameter": -1`,
			"wheel diameter must be positive",
		},
		{
			"zero wheel",
			`"joystick": "stick"`,
			`"joystick": "stick", "wheel_diameter": 0`,
			"wheel diameter must be positive, got 0",
		},
		{
			"zero encoder resolution",
			`"joystick": "stick"`,
			`"joystick": "stick", "encoder_edges_per_rev": 0`,
			"encoder edges per revolution must be positive, got 0",
		},
		{
			"mqtt without broker",
			`"joystick": "stick"`,
			`"joystick": "stick", "network": {"mqtt": {}}`,
			`"broker" is required`,
		},
		{
			"motor on both sides",
			`"right": ["right-leader"]`,
			`"right": ["left-follower"]`,
			`motor "left-follower" is used more than once`,
		},
		{
			"log file without path",
			`"joystick": "stick"`,
			`"joystick": "stick", "log_file": {"max_backups": 1}`,
			`"path" is required`,
		},
		{
			"simulation without speed",
			`"joystick": "stick"`,
			`"joystick": "stick", "simulation": {"track_width": 2}`,
			`"free_speed" is required`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			raw := strings.Replace(validConfig, tc.from, tc.to, 1)
			test.That(t, raw, test.ShouldNotEqual, validConfig)
			_, err := FromReader("somepath", strings.NewReader(raw), EnvOverrides{})
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.expected)
		})
	}
}

func TestConfigNetworkAndSimulation(t *testing.T) {
	raw := strings.Replace(validConfig, `"joystick": "stick"`, `"joystick": "stick",
		"period": "20ms",
		"network": {"listen": "0.0.0.0:9000", "update_interval": "20ms", "mqtt": {"broker": "tcp://localhost:1883"}},
		"simulation": {"free_speed": 12, "track_width": 2}`, 1)
	conf, err := FromReader("somepath", strings.NewReader(raw), EnvOverrides{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.PeriodDuration(), test.ShouldEqual, 20*time.Millisecond)
	test.That(t, conf.Network.Listen, test.ShouldEqual, "0.0.0.0:9000")
	test.That(t, conf.Network.MQTT.ClientID, test.ShouldEqual, DefaultMQTTClientID)
	test.That(t, conf.Simulation.BatteryVolts, test.ShouldEqual, 12.0)
	test.That(t, conf.Simulation.TimeConstantSec, test.ShouldEqual, 0.1)
	test.That(t, conf.LogFile, test.ShouldBeNil)
}

func TestConfigLogFile(t *testing.T) {
	raw := strings.Replace(validConfig, `"joystick": "stick"`, `"joystick": "stick",
		"log_file": {"path": "/tmp/sysid.log", "max_backups": 1}`, 1)
	conf, err := FromReader("somepath", strings.NewReader(raw), EnvOverrides{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.LogFile.Path, test.ShouldEqual, "/tmp/sysid.log")
	test.That(t, conf.LogFile.MaxSizeMB, test.ShouldEqual, DefaultLogFileMaxSizeMB)
	test.That(t, conf.LogFile.MaxBackups, test.ShouldEqual, 1)
}

func TestEnvOverrides(t *testing.T) {
	overrides, err := ReadEnvOverrides(map[string]string{
		"SYSID_DEBUG":       "true",
		"SYSID_LISTEN":      "127.0.0.1:7000",
		"SYSID_MQTT_BROKER": "tcp://broker:1883",
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, overrides.Debug, test.ShouldBeTrue)

	conf, err := FromReader("somepath", strings.NewReader(validConfig), overrides)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.Debug, test.ShouldBeTrue)
	test.That(t, conf.Network.Listen, test.ShouldEqual, "127.0.0.1:7000")
	test.That(t, conf.Network.MQTT.Broker, test.ShouldEqual, "tcp://broker:1883")

	_, err = ReadEnvOverrides(map[string]string{"SYSID_DEBUG": "maybe"})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRead(t *testing.T) {
	t.Setenv("SYSID_TEST_GYRO", "navx")
	dir := t.TempDir()
	path := filepath.Join(dir, "robot.json")
	raw := strings.Replace(validConfig, `"gyro": "navx"`, `"gyro": "${SYSID_TEST_GYRO}"`, 1)
	test.That(t, os.WriteFile(path, []byte(raw), 0o600), test.ShouldBeNil)

	conf, err := Read(path, EnvOverrides{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.Sensors.Gyro, test.ShouldEqual, "navx")

	_, err = Read(filepath.Join(dir, "missing.json"), EnvOverrides{})
	test.That(t, err, test.ShouldNotBeNil)
}

type widgetConfig struct {
	Ticks int `json:"ticks"`
}

func (cfg *widgetConfig) Validate(path string) error {
	if cfg.Ticks < 0 {
		return utils.NewConfigValidationError(path, errors.New("ticks cannot be negative"))
	}
	return nil
}

func TestAttributeConversion(t *testing.T) {
	RegisterComponentAttributeMapConverter("widget", "test", func(attributes AttributeMap) (interface{}, error) {
		return TransformAttributeMapToStruct(&widgetConfig{}, attributes)
	})

	comp := Component{Name: "w", Type: "widget", Model: "test", Attributes: AttributeMap{"ticks": 3}}
	test.That(t, comp.convertAttributes(), test.ShouldBeNil)
	test.That(t, comp.ConvertedAttributes, test.ShouldResemble, &widgetConfig{Ticks: 3})
	test.That(t, comp.Validate("components.0"), test.ShouldBeNil)
	test.That(t, comp.Attributes.Has("ticks"), test.ShouldBeTrue)

	comp.Attributes = AttributeMap{"ticks": -1}
	test.That(t, comp.convertAttributes(), test.ShouldBeNil)
	err := comp.Validate("components.0")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "ticks")

	comp.Attributes = AttributeMap{"tocks": 1}
	err = comp.convertAttributes()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "tocks")

	test.That(t, func() {
		RegisterComponentAttributeMapConverter("widget", "test", nil)
	}, test.ShouldPanic)
}
