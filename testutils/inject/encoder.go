package inject

import (
	"context"

	"go.viam.com/sysid/components/encoder"
)

// Encoder is an injected encoder.
type Encoder struct {
	encoder.Encoder
	PositionFunc      func(ctx context.Context, extra map[string]interface{}) (int64, error)
	VelocityFunc      func(ctx context.Context, extra map[string]interface{}) (float64, error)
	ResetPositionFunc func(ctx context.Context, extra map[string]interface{}) error
}

// NewEncoder returns a new injected encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Position calls the injected Position or the real version.
func (e *Encoder) Position(ctx context.Context, extra map[string]interface{}) (int64, error) {
	if e.PositionFunc == nil {
		return e.Encoder.Position(ctx, extra)
	}
	return e.PositionFunc(ctx, extra)
}

// Velocity calls the injected Velocity or the real version.
func (e *Encoder) Velocity(ctx context.Context, extra map[string]interface{}) (float64, error) {
	if e.VelocityFunc == nil {
		return e.Encoder.Velocity(ctx, extra)
	}
	return e.VelocityFunc(ctx, extra)
}

// ResetPosition calls the injected ResetPosition or the real version.
func (e *Encoder) ResetPosition(ctx context.Context, extra map[string]interface{}) error {
	if e.ResetPositionFunc == nil {
		return e.Encoder.ResetPosition(ctx, extra)
	}
	return e.ResetPositionFunc(ctx, extra)
}
