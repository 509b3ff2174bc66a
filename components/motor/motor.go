// Package motor defines machines that convert electricity into rotary motion.
package motor

import (
	"context"

	"go.viam.com/sysid/config"
	"go.viam.com/sysid/registry"
)

// SubtypeName identifies motors in a config.
const SubtypeName = config.TypeMotor

// A Motor represents a speed controller driving one gearbox motor.
type Motor interface {
	// SetPower sets the percentage of power the motor should employ between -1 and 1.
	// Negative power corresponds to a backward direction of rotation.
	SetPower(ctx context.Context, powerPct float64, extra map[string]interface{}) error

	// IsPowered returns whether or not the motor is currently on, and the percent power.
	IsPowered(ctx context.Context, extra map[string]interface{}) (bool, float64, error)

	// Stop turns the power to the motor off immediately, without any gradual step down.
	Stop(ctx context.Context, extra map[string]interface{}) error
}

// FromDependencies is a helper for getting the named motor from a collection of
// dependencies.
func FromDependencies(deps registry.Dependencies, name string) (Motor, error) {
	return registry.FromDependencies[Motor](deps, name)
}
