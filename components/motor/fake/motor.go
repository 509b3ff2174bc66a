// Package fake implements a fake motor.
package fake

import (
	"context"
	"sync"

	"go.viam.com/sysid/components/motor"
	"go.viam.com/sysid/config"
	"go.viam.com/sysid/logging"
	"go.viam.com/sysid/registry"
)

// Model is the model name of the fake motor.
const Model = "fake"

// Config describes the configuration of a motor.
type Config struct {
	DirectionFlip bool `json:"direction_flip"`
}

func init() {
	registry.RegisterComponent(motor.SubtypeName, Model, registry.Component{
		Constructor: func(
			ctx context.Context,
			deps registry.Dependencies,
			conf config.Component,
			logger logging.Logger,
		) (interface{}, error) {
			m := NewMotor(conf.Name, logger)
			if mcfg, ok := conf.ConvertedAttributes.(*Config); ok {
				m.DirFlip = mcfg.DirectionFlip
			}
			return m, nil
		},
		AttributeMapConverter: func(attributes config.AttributeMap) (interface{}, error) {
			var conf Config
			return config.TransformAttributeMapToStruct(&conf, attributes)
		},
	})
}

var _ motor.Motor = &Motor{}

// A Motor allows setting and reading a set power percentage.
type Motor struct {
	Name    string
	Logger  logging.Logger
	DirFlip bool

	mu       sync.Mutex
	powerPct float64
	calls    int
}

// NewMotor returns a stopped fake motor.
func NewMotor(name string, logger logging.Logger) *Motor {
	return &Motor{Name: name, Logger: logger}
}

// SetPower sets the given power percentage.
func (m *Motor) SetPower(ctx context.Context, powerPct float64, extra map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logger.Debugf("Motor SetPower %f", powerPct)
	m.powerPct = powerPct
	m.calls++
	return nil
}

// PowerPct returns the power applied to the shaft, accounting for a flipped direction.
func (m *Motor) PowerPct() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DirFlip {
		return -m.powerPct
	}
	return m.powerPct
}

// Direction returns the set direction.
func (m *Motor) Direction() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.powerPct > 0:
		return 1
	case m.powerPct < 0:
		return -1
	}
	return 0
}

// SetPowerCalls returns how many times power has been set, including stops.
func (m *Motor) SetPowerCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Stop has the motor pretend to be off.
func (m *Motor) Stop(ctx context.Context, extra map[string]interface{}) error {
	return m.SetPower(ctx, 0, extra)
}

// IsPowered returns if the motor is pretending to be on or not, and its power level.
func (m *Motor) IsPowered(ctx context.Context, extra map[string]interface{}) (bool, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.powerPct != 0, m.powerPct, nil
}
