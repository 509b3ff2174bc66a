// Package sensors samples the drivetrain encoders and gyro and converts their readings to
// physical units.
package sensors

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/sysid/components/encoder"
	"go.viam.com/sysid/components/gyro"
	"go.viam.com/sysid/units"
	"go.viam.com/sysid/utils"
)

// ErrSensorUnavailable is returned when a sensor could not produce a valid reading.
var ErrSensorUnavailable = errors.New("sensor unavailable")

// A Facade exposes the physical state of the drivetrain. Every call samples the hardware.
type Facade interface {
	// LeftPosition returns the distance travelled by the left side.
	LeftPosition(ctx context.Context) (float64, error)
	// LeftRate returns the speed of the left side in distance per second.
	LeftRate(ctx context.Context) (float64, error)
	// RightPosition returns the distance travelled by the right side.
	RightPosition(ctx context.Context) (float64, error)
	// RightRate returns the speed of the right side in distance per second.
	RightRate(ctx context.Context) (float64, error)
	// GyroAngleRadians returns the heading, counter-clockwise positive.
	GyroAngleRadians(ctx context.Context) (float64, error)
}

// Options sets the sensor phase of each side.
type Options struct {
	InvertLeftPhase  bool
	InvertRightPhase bool
}

type side struct {
	name  string
	enc   encoder.Encoder
	phase float64
}

type facade struct {
	left, right side
	gyro        gyro.Gyro
	conv        units.Converter
}

// New returns a Facade over two encoders and a gyro.
func New(left, right encoder.Encoder, g gyro.Gyro, conv units.Converter, opts Options) Facade {
	phase := func(invert bool) float64 {
		if invert {
			return -1
		}
		return 1
	}
	return &facade{
		left:  side{name: "left", enc: left, phase: phase(opts.InvertLeftPhase)},
		right: side{name: "right", enc: right, phase: phase(opts.InvertRightPhase)},
		gyro:  g,
		conv:  conv,
	}
}

func unavailable(err error, reading string) error {
	return errors.Wrapf(ErrSensorUnavailable, "%s: %v", reading, err)
}

func checked(v float64, reading string) (float64, error) {
	if !utils.IsFinite(v) {
		return 0, errors.Wrapf(ErrSensorUnavailable, "%s: invalid reading %v", reading, v)
	}
	return v, nil
}

func (f *facade) position(ctx context.Context, s side) (float64, error) {
	reading := s.name + " position"
	ticks, err := s.enc.Position(ctx, nil)
	if err != nil {
		return 0, unavailable(err, reading)
	}
	return checked(s.phase*f.conv.ToDistance(ticks), reading)
}

func (f *facade) rate(ctx context.Context, s side) (float64, error) {
	reading := s.name + " rate"
	vel, err := s.enc.Velocity(ctx, nil)
	if err != nil {
		return 0, unavailable(err, reading)
	}
	return checked(s.phase*f.conv.ToRate(vel), reading)
}

func (f *facade) LeftPosition(ctx context.Context) (float64, error) {
	return f.position(ctx, f.left)
}

func (f *facade) LeftRate(ctx context.Context) (float64, error) {
	return f.rate(ctx, f.left)
}

func (f *facade) RightPosition(ctx context.Context) (float64, error) {
	return f.position(ctx, f.right)
}

func (f *facade) RightRate(ctx context.Context) (float64, error) {
	return f.rate(ctx, f.right)
}

func (f *facade) GyroAngleRadians(ctx context.Context) (float64, error) {
	deg, err := f.gyro.Angle(ctx, nil)
	if err != nil {
		return 0, unavailable(err, "gyro angle")
	}
	return checked(-utils.DegToRad(deg), "gyro angle")
}
