package inject

import (
	"context"

	"go.viam.com/sysid/components/gyro"
)

// Gyro is an injected gyro.
type Gyro struct {
	gyro.Gyro
	AngleFunc func(ctx context.Context, extra map[string]interface{}) (float64, error)
	ResetFunc func(ctx context.Context, extra map[string]interface{}) error
}

// NewGyro returns a new injected gyro.
func NewGyro() *Gyro {
	return &Gyro{}
}

// Angle calls the injected Angle or the real version.
func (g *Gyro) Angle(ctx context.Context, extra map[string]interface{}) (float64, error) {
	if g.AngleFunc == nil {
		return g.Gyro.Angle(ctx, extra)
	}
	return g.AngleFunc(ctx, extra)
}

// Reset calls the injected Reset or the real version.
func (g *Gyro) Reset(ctx context.Context, extra map[string]interface{}) error {
	if g.ResetFunc == nil {
		return g.Gyro.Reset(ctx, extra)
	}
	return g.ResetFunc(ctx, extra)
}
