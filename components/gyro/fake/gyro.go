// Package fake implements a fake gyro.
package fake

import (
	"context"
	"sync"

	"go.viam.com/sysid/components/gyro"
	"go.viam.com/sysid/config"
	"go.viam.com/sysid/logging"
	"go.viam.com/sysid/registry"
)

// Model is the model name of the fake gyro.
const Model = "fake"

func init() {
	registry.RegisterComponent(gyro.SubtypeName, Model, registry.Component{
		Constructor: func(
			ctx context.Context,
			deps registry.Dependencies,
			conf config.Component,
			logger logging.Logger,
		) (interface{}, error) {
			return &Gyro{}, nil
		},
	})
}

var _ gyro.Gyro = &Gyro{}

// Gyro is a fake heading sensor that reports whatever it was last told.
type Gyro struct {
	mu    sync.Mutex
	angle float64
}

// Angle returns the heading in degrees, clockwise positive.
func (g *Gyro) Angle(ctx context.Context, extra map[string]interface{}) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.angle, nil
}

// Reset zeroes the heading.
func (g *Gyro) Reset(ctx context.Context, extra map[string]interface{}) error {
	g.SetAngle(0)
	return nil
}

// SetAngle sets the heading in degrees, clockwise positive.
func (g *Gyro) SetAngle(degrees float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.angle = degrees
}

// Rotate adds to the heading.
func (g *Gyro) Rotate(degrees float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.angle += degrees
}
