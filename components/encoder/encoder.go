// Package encoder defines the quadrature encoders that measure drive shaft travel.
package encoder

import (
	"context"

	"go.viam.com/sysid/config"
	"go.viam.com/sysid/registry"
)

// SubtypeName identifies encoders in a config.
const SubtypeName = config.TypeEncoder

// An Encoder counts edges of a quadrature signal.
type Encoder interface {
	// Position returns the signed number of edges counted since the last reset.
	Position(ctx context.Context, extra map[string]interface{}) (int64, error)

	// Velocity returns the signed edge rate in edges per 100 milliseconds.
	Velocity(ctx context.Context, extra map[string]interface{}) (float64, error)

	// ResetPosition sets the current position to zero.
	ResetPosition(ctx context.Context, extra map[string]interface{}) error
}

// FromDependencies is a helper for getting the named encoder from a collection of
// dependencies.
func FromDependencies(deps registry.Dependencies, name string) (Encoder, error) {
	return registry.FromDependencies[Encoder](deps, name)
}
