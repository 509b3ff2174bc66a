// Package characterization runs the open-loop drivetrain test: once per period it samples the
// drivetrain, applies the externally supplied speed command and publishes one telemetry record.
package characterization

import (
	"context"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/sysid/components/drivetrain"
	"go.viam.com/sysid/components/powersensor"
	"go.viam.com/sysid/logging"
	"go.viam.com/sysid/nettable"
	"go.viam.com/sysid/sensors"
	"go.viam.com/sysid/utils"
)

// ErrChannelUnavailable is returned when the telemetry record could not be written.
var ErrChannelUnavailable = nettable.ErrChannelUnavailable

// logEvery throttles repeated degraded-period warnings to about one per second at 10ms.
const logEvery = 100

// Config holds the collaborators of a Loop.
type Config struct {
	Sensors  sensors.Facade
	Actuator drivetrain.Actuator
	Power    powersensor.PowerSensor
	Channel  nettable.Table
	// Clock defaults to the wall clock.
	Clock  clock.Clock
	Logger logging.Logger
}

// Validate ensures all collaborators are present.
func (cfg *Config) Validate() error {
	switch {
	case cfg.Sensors == nil:
		return errors.New("characterization loop needs sensors")
	case cfg.Actuator == nil:
		return errors.New("characterization loop needs an actuator")
	case cfg.Power == nil:
		return errors.New("characterization loop needs a power sensor")
	case cfg.Channel == nil:
		return errors.New("characterization loop needs a channel")
	case cfg.Logger == nil:
		return errors.New("characterization loop needs a logger")
	}
	return nil
}

// Stats counts what happened over the life of a Loop.
type Stats struct {
	Periods          uint64
	SkippedTelemetry uint64
	DroppedTelemetry uint64
	CommandDefaults  uint64
	ActuatorErrors   uint64
}

// A Loop owns the state carried between characterization periods. It is not safe for
// concurrent use; the scheduler is its only caller.
type Loop struct {
	cfg   Config
	start time.Time

	priorAutospeed float64
	stats          Stats

	commandThrottle *utils.Throttle
}

// NewLoop returns a loop whose timestamps count from now.
func NewLoop(cfg Config) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Loop{
		cfg:             cfg,
		start:           cfg.Clock.Now(),
		commandThrottle: utils.NewThrottle(logEvery),
	}, nil
}

// PriorAutospeed returns the command applied during the last period.
func (l *Loop) PriorAutospeed() float64 {
	return l.priorAutospeed
}

// Stats returns the counters so far.
func (l *Loop) Stats() Stats {
	return l.stats
}

// Period runs one characterization period and returns the record it built. When a reading
// fails the drivetrain is still commanded, the record is not written and the error wraps
// sensors.ErrSensorUnavailable.
func (l *Loop) Period(ctx context.Context) (Record, error) {
	l.stats.Periods++
	var rec Record
	var sensorErr error

	read := func(f func(context.Context) (float64, error)) float64 {
		v, err := f(ctx)
		if err != nil {
			sensorErr = multierr.Append(sensorErr, err)
			return 0
		}
		return v
	}

	now := l.cfg.Clock.Now().Sub(l.start).Seconds()

	leftPosition := read(l.cfg.Sensors.LeftPosition)
	leftRate := read(l.cfg.Sensors.LeftRate)
	rightPosition := read(l.cfg.Sensors.RightPosition)
	rightRate := read(l.cfg.Sensors.RightRate)

	battery := read(l.batteryVoltage)

	// the prior command is the one whose effect is being sampled now
	motorVolts := battery * math.Abs(l.priorAutospeed)

	autospeed, rotate := l.readCommand()

	l.priorAutospeed = autospeed

	left := autospeed
	if rotate {
		left = -autospeed
	}
	var actuatorErr error
	if err := l.cfg.Actuator.Drive(ctx, left, autospeed); err != nil {
		l.stats.ActuatorErrors++
		actuatorErr = errors.Wrap(err, "drivetrain command failed")
	}

	gyroAngle := read(l.cfg.Sensors.GyroAngleRadians)

	rec[FieldTimestamp] = now
	rec[FieldBatteryVoltage] = battery
	rec[FieldAutospeed] = autospeed
	rec[FieldLeftMotorVolts] = motorVolts
	rec[FieldRightMotorVolts] = motorVolts
	rec[FieldLeftPosition] = leftPosition
	rec[FieldRightPosition] = rightPosition
	rec[FieldLeftRate] = leftRate
	rec[FieldRightRate] = rightRate
	rec[FieldGyroAngle] = gyroAngle

	if sensorErr != nil {
		l.stats.SkippedTelemetry++
		return rec, multierr.Combine(errors.Wrap(sensorErr, "telemetry skipped"), actuatorErr)
	}

	if err := l.cfg.Channel.SetNumberArray(nettable.KeyTelemetry, rec.Slice()); err != nil {
		l.stats.DroppedTelemetry++
		return rec, multierr.Combine(errors.Wrapf(ErrChannelUnavailable, "telemetry dropped: %v", err), actuatorErr)
	}
	return rec, actuatorErr
}

func (l *Loop) batteryVoltage(ctx context.Context) (float64, error) {
	volts, _, err := l.cfg.Power.Voltage(ctx, nil)
	if err != nil {
		return 0, errors.Wrapf(sensors.ErrSensorUnavailable, "battery voltage: %v", err)
	}
	if !utils.IsFinite(volts) {
		return 0, errors.Wrapf(sensors.ErrSensorUnavailable, "battery voltage: invalid reading %v", volts)
	}
	return volts, nil
}

// readCommand reads this period's command. An unreadable entry falls back to stopped and
// straight.
func (l *Loop) readCommand() (float64, bool) {
	var err error
	autospeed, readErr := l.cfg.Channel.Number(nettable.KeyAutospeed, 0)
	if readErr != nil {
		autospeed = 0
		err = multierr.Append(err, readErr)
	}
	rotate, readErr := l.cfg.Channel.Boolean(nettable.KeyRotate, false)
	if readErr != nil {
		rotate = false
		err = multierr.Append(err, readErr)
	}
	if err != nil {
		l.stats.CommandDefaults++
		if ok, suppressed := l.commandThrottle.Allow(); ok {
			l.cfg.Logger.Warnw("command unavailable, using defaults",
				"error", err, "autospeed", autospeed, "rotate", rotate, "suppressed", suppressed)
		}
	}
	return autospeed, rotate
}
