// Package drivetrain implements the differential drivetrain that applies open-loop output to the
// left and right motor groups.
package drivetrain

import (
	"context"
	"math"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/sysid/components/motor"
	"go.viam.com/sysid/logging"
	"go.viam.com/sysid/utils"
)

// An Actuator sets the normalized output of both drive sides.
type Actuator interface {
	// Drive commands left and right output in [-1, 1]. Out of range values are clamped.
	Drive(ctx context.Context, left, right float64) error
}

// Options fixes which sides are logically inverted. There is no deadband: any nonzero output,
// however small, reaches the motors.
type Options struct {
	InvertLeft  bool
	InvertRight bool
}

var _ Actuator = &Drivetrain{}

// Drivetrain drives a leader and any number of followers on each side with identical power.
type Drivetrain struct {
	left   []motor.Motor
	right  []motor.Motor
	opts   Options
	logger logging.Logger

	mu        sync.Mutex
	lastLeft  float64
	lastRight float64
}

// New returns a drivetrain over the given motor groups. Each side needs at least one motor.
func New(left, right []motor.Motor, opts Options, logger logging.Logger) (*Drivetrain, error) {
	if len(left) == 0 {
		return nil, errors.New("drivetrain needs at least one left motor")
	}
	if len(right) == 0 {
		return nil, errors.New("drivetrain needs at least one right motor")
	}
	return &Drivetrain{
		left:   left,
		right:  right,
		opts:   opts,
		logger: logger,
	}, nil
}

// normalize clamps to [-1, 1]. NaN becomes zero so a bad command stops the side.
func normalize(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return utils.Clamp(v, -1, 1)
}

// Drive sets every motor of a side to that side's output. On any motor error, all motors are
// stopped and the combined error is returned.
func (dt *Drivetrain) Drive(ctx context.Context, left, right float64) error {
	left = normalize(left)
	right = normalize(right)

	dt.mu.Lock()
	dt.lastLeft, dt.lastRight = left, right
	dt.mu.Unlock()

	lPower, rPower := left, right
	if dt.opts.InvertLeft {
		lPower = -lPower
	}
	if dt.opts.InvertRight {
		rPower = -rPower
	}

	var err error
	for _, m := range dt.left {
		err = multierr.Combine(err, m.SetPower(ctx, lPower, nil))
	}
	for _, m := range dt.right {
		err = multierr.Combine(err, m.SetPower(ctx, rPower, nil))
	}
	if err != nil {
		dt.logger.Warnw("drivetrain output failed, stopping", "left", left, "right", right, "error", err)
		return multierr.Combine(err, dt.stopMotors(ctx))
	}
	return nil
}

// Stop commands zero output on both sides.
func (dt *Drivetrain) Stop(ctx context.Context) error {
	return dt.Drive(ctx, 0, 0)
}

func (dt *Drivetrain) stopMotors(ctx context.Context) error {
	var err error
	for _, m := range dt.left {
		err = multierr.Combine(err, m.Stop(ctx, nil))
	}
	for _, m := range dt.right {
		err = multierr.Combine(err, m.Stop(ctx, nil))
	}
	return err
}

// LastCommand returns the most recent clamped output, before inversion.
func (dt *Drivetrain) LastCommand() (left, right float64) {
	dt.mu.Lock()
	defer dt.mu.Unlock()
	return dt.lastLeft, dt.lastRight
}

// IsMoving reports whether any motor is powered.
func (dt *Drivetrain) IsMoving(ctx context.Context) (bool, error) {
	for _, group := range [][]motor.Motor{dt.left, dt.right} {
		for _, m := range group {
			isMoving, _, err := m.IsPowered(ctx, nil)
			if err != nil {
				return false, err
			}
			if isMoving {
				return true, nil
			}
		}
	}
	return false, nil
}
