// Package fake implements a fake encoder.
package fake

import (
	"context"
	"math"
	"sync"
	"time"

	"go.viam.com/sysid/components/encoder"
	"go.viam.com/sysid/config"
	"go.viam.com/sysid/logging"
	"go.viam.com/sysid/registry"
)

// Model is the model name of the fake encoder.
const Model = "fake"

const velocityWindow = 100 * time.Millisecond

func init() {
	registry.RegisterComponent(encoder.SubtypeName, Model, registry.Component{
		Constructor: func(
			ctx context.Context,
			deps registry.Dependencies,
			conf config.Component,
			logger logging.Logger,
		) (interface{}, error) {
			return &Encoder{}, nil
		},
	})
}

var _ encoder.Encoder = &Encoder{}

// Encoder keeps track of a fake shaft position.
type Encoder struct {
	mu       sync.Mutex
	position float64
	velocity float64 // ticks per 100ms
}

// Position returns the current position in whole ticks.
func (e *Encoder) Position(ctx context.Context, extra map[string]interface{}) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int64(math.Round(e.position)), nil
}

// Velocity returns the last set velocity in ticks per 100ms.
func (e *Encoder) Velocity(ctx context.Context, extra map[string]interface{}) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.velocity, nil
}

// ResetPosition zeroes the position.
func (e *Encoder) ResetPosition(ctx context.Context, extra map[string]interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position = 0
	return nil
}

// SetPosition sets the position of the encoder.
func (e *Encoder) SetPosition(ctx context.Context, position int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position = float64(position)
	return nil
}

// SetVelocity sets the velocity, in ticks per 100ms, reported and integrated by Advance.
func (e *Encoder) SetVelocity(ctx context.Context, velocity float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.velocity = velocity
	return nil
}

// Advance moves the shaft at the current velocity for dt. Partial ticks are kept so that
// small steps still add up.
func (e *Encoder) Advance(dt time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position += e.velocity * float64(dt) / float64(velocityWindow)
}
