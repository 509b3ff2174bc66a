package inject

import (
	"context"

	"go.viam.com/sysid/components/motor"
)

// Motor is an injected motor.
type Motor struct {
	motor.Motor
	SetPowerFunc  func(ctx context.Context, powerPct float64, extra map[string]interface{}) error
	IsPoweredFunc func(ctx context.Context, extra map[string]interface{}) (bool, float64, error)
	StopFunc      func(ctx context.Context, extra map[string]interface{}) error
}

// NewMotor returns a new injected motor.
func NewMotor() *Motor {
	return &Motor{}
}

// SetPower calls the injected SetPower or the real version.
func (m *Motor) SetPower(ctx context.Context, powerPct float64, extra map[string]interface{}) error {
	if m.SetPowerFunc == nil {
		return m.Motor.SetPower(ctx, powerPct, extra)
	}
	return m.SetPowerFunc(ctx, powerPct, extra)
}

// IsPowered calls the injected IsPowered or the real version.
func (m *Motor) IsPowered(ctx context.Context, extra map[string]interface{}) (bool, float64, error) {
	if m.IsPoweredFunc == nil {
		return m.Motor.IsPowered(ctx, extra)
	}
	return m.IsPoweredFunc(ctx, extra)
}

// Stop calls the injected Stop or the real version.
func (m *Motor) Stop(ctx context.Context, extra map[string]interface{}) error {
	if m.StopFunc == nil {
		return m.Motor.Stop(ctx, extra)
	}
	return m.StopFunc(ctx, extra)
}
