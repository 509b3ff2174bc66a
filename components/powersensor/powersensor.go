// Package powersensor defines sensors that report the supply voltage of the robot.
package powersensor

import (
	"context"

	"go.viam.com/sysid/config"
	"go.viam.com/sysid/registry"
)

// SubtypeName identifies power sensors in a config.
const SubtypeName = config.TypePowerSensor

// A PowerSensor reports information about voltage.
type PowerSensor interface {
	// Voltage returns the voltage reading in volts and a bool returning true if the voltage is AC.
	Voltage(ctx context.Context, extra map[string]interface{}) (float64, bool, error)
}

// FromDependencies is a helper for getting the named power sensor from a collection of
// dependencies.
func FromDependencies(deps registry.Dependencies, name string) (PowerSensor, error) {
	return registry.FromDependencies[PowerSensor](deps, name)
}
