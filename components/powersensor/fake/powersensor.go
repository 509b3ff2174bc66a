// Package fake is a fake PowerSensor for testing
package fake

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/sysid/components/powersensor"
	"go.viam.com/sysid/config"
	"go.viam.com/sysid/logging"
	"go.viam.com/sysid/registry"
)

// Model is the model name of the fake power sensor.
const Model = "fake"

// DefaultVolts is a freshly charged 12V battery at rest.
const DefaultVolts = 12.0

// Config is used for converting fake power sensor attributes.
type Config struct {
	Volts float64 `json:"volts,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.Volts < 0 {
		return errors.Errorf("%s: volts cannot be negative", path)
	}
	return nil
}

func init() {
	registry.RegisterComponent(powersensor.SubtypeName, Model, registry.Component{
		Constructor: newFakePowerSensor,
		AttributeMapConverter: func(attributes config.AttributeMap) (interface{}, error) {
			var conf Config
			return config.TransformAttributeMapToStruct(&conf, attributes)
		},
	})
}

func newFakePowerSensor(_ context.Context, _ registry.Dependencies, conf config.Component, logger logging.Logger,
) (interface{}, error) {
	volts := DefaultVolts
	if cfg, ok := conf.ConvertedAttributes.(*Config); ok && cfg.Volts != 0 {
		volts = cfg.Volts
	}
	return NewPowerSensor(volts), nil
}

var _ powersensor.PowerSensor = &PowerSensor{}

// PowerSensor implements a fake PowerSensor interface.
type PowerSensor struct {
	mu    sync.Mutex
	volts float64
}

// NewPowerSensor returns a fake power sensor reporting the given DC voltage.
func NewPowerSensor(volts float64) *PowerSensor {
	return &PowerSensor{volts: volts}
}

// Voltage gets the voltage and isAC of a fake powersensor.
func (f *PowerSensor) Voltage(ctx context.Context, extra map[string]interface{}) (float64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volts, false, nil
}

// SetVoltage changes the reported voltage.
func (f *PowerSensor) SetVoltage(volts float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volts = volts
}
