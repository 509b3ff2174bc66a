package inject

import (
	"context"

	"go.viam.com/sysid/components/powersensor"
)

// A PowerSensor reports information about voltage.
type PowerSensor struct {
	powersensor.PowerSensor
	VoltageFunc func(ctx context.Context, extra map[string]interface{}) (float64, bool, error)
}

// NewPowerSensor returns a new injected power sensor.
func NewPowerSensor() *PowerSensor {
	return &PowerSensor{}
}

// Voltage calls the injected Voltage or the real version.
func (i *PowerSensor) Voltage(ctx context.Context, extra map[string]interface{}) (float64, bool, error) {
	if i.VoltageFunc == nil {
		return i.PowerSensor.Voltage(ctx, extra)
	}
	return i.VoltageFunc(ctx, extra)
}
