// Package gyro defines the yaw-rate gyroscopes used to track drivetrain heading.
package gyro

import (
	"context"

	"go.viam.com/sysid/config"
	"go.viam.com/sysid/registry"
)

// SubtypeName identifies gyros in a config.
const SubtypeName = config.TypeGyro

// A Gyro reports an accumulated heading.
type Gyro interface {
	// Angle returns the accumulated heading in degrees, clockwise positive.
	Angle(ctx context.Context, extra map[string]interface{}) (float64, error)

	// Reset sets the current heading to zero.
	Reset(ctx context.Context, extra map[string]interface{}) error
}

// FromDependencies is a helper for getting the named gyro from a collection of
// dependencies.
func FromDependencies(deps registry.Dependencies, name string) (Gyro, error) {
	return registry.FromDependencies[Gyro](deps, name)
}
