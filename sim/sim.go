// Package sim simulates a drivetrain on top of fake components, so the robot runs without
// hardware. Each side is a first order system from motor voltage to wheel speed.
package sim

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	encoderfake "go.viam.com/sysid/components/encoder/fake"
	gyrofake "go.viam.com/sysid/components/gyro/fake"
	motorfake "go.viam.com/sysid/components/motor/fake"
	powerfake "go.viam.com/sysid/components/powersensor/fake"
	"go.viam.com/sysid/config"
	"go.viam.com/sysid/logging"
	"go.viam.com/sysid/units"
	"go.viam.com/sysid/utils"
)

// A Side is one side of the simulated drivetrain.
type Side struct {
	Motors  []*motorfake.Motor
	Encoder *encoderfake.Encoder
	// Inverted is set when positive motor power turns the wheel backward.
	Inverted bool
}

func (s Side) power() float64 {
	var sum float64
	for _, m := range s.Motors {
		sum += m.PowerPct()
	}
	p := utils.Clamp(sum/float64(len(s.Motors)), -1, 1)
	if s.Inverted {
		return -p
	}
	return p
}

// Config wires a simulated drivetrain.
type Config struct {
	Plant     config.SimulationConfig
	Left      Side
	Right     Side
	Gyro      *gyrofake.Gyro
	Power     *powerfake.PowerSensor
	Converter units.Converter
}

// A Drivetrain integrates wheel speeds into fake encoder ticks and a fake gyro heading.
type Drivetrain struct {
	cfg    Config
	logger logging.Logger

	mu                    sync.Mutex
	leftSpeed, rightSpeed float64
}

// New returns a stopped simulated drivetrain.
func New(cfg Config, logger logging.Logger) (*Drivetrain, error) {
	if len(cfg.Left.Motors) == 0 || len(cfg.Right.Motors) == 0 {
		return nil, errors.New("simulation needs motors on both sides")
	}
	if cfg.Left.Encoder == nil || cfg.Right.Encoder == nil {
		return nil, errors.New("simulation needs an encoder on both sides")
	}
	if cfg.Gyro == nil {
		return nil, errors.New("simulation needs a gyro")
	}
	p := cfg.Plant
	if p.FreeSpeed <= 0 || p.TrackWidth <= 0 || p.TimeConstantSec <= 0 {
		return nil, errors.New("simulation free speed, track width and time constant must be positive")
	}
	if p.BatteryVolts <= p.StaticVolts {
		return nil, errors.Errorf("battery voltage %v must exceed static voltage %v", p.BatteryVolts, p.StaticVolts)
	}
	if cfg.Power != nil {
		cfg.Power.SetVoltage(p.BatteryVolts)
	}
	return &Drivetrain{cfg: cfg, logger: logger}, nil
}

// SteadyStateSpeed is the speed a side settles at with the given power.
func (d *Drivetrain) SteadyStateSpeed(power float64) float64 {
	p := d.cfg.Plant
	volts := math.Abs(power) * p.BatteryVolts
	effective := math.Max(volts-p.StaticVolts, 0)
	return math.Copysign(p.FreeSpeed*effective/(p.BatteryVolts-p.StaticVolts), power)
}

func (d *Drivetrain) approach(speed, power float64, dt time.Duration) float64 {
	alpha := 1 - math.Exp(-dt.Seconds()/d.cfg.Plant.TimeConstantSec)
	return speed + (d.SteadyStateSpeed(power)-speed)*alpha
}

// Step advances the simulation by dt.
func (d *Drivetrain) Step(ctx context.Context, dt time.Duration) error {
	if dt <= 0 {
		return nil
	}
	d.mu.Lock()
	d.leftSpeed = d.approach(d.leftSpeed, d.cfg.Left.power(), dt)
	d.rightSpeed = d.approach(d.rightSpeed, d.cfg.Right.power(), dt)
	left, right := d.leftSpeed, d.rightSpeed
	d.mu.Unlock()

	for _, s := range []struct {
		side  Side
		speed float64
	}{{d.cfg.Left, left}, {d.cfg.Right, right}} {
		if err := s.side.Encoder.SetVelocity(ctx, d.cfg.Converter.ToTicksPerDecisecond(s.speed)); err != nil {
			return err
		}
		s.side.Encoder.Advance(dt)
	}
	// a faster left side turns clockwise
	d.cfg.Gyro.Rotate(utils.RadToDeg((left - right) / d.cfg.Plant.TrackWidth * dt.Seconds()))
	return nil
}

// Speeds returns the current wheel speeds.
func (d *Drivetrain) Speeds() (left, right float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.leftSpeed, d.rightSpeed
}

// Worker returns a background worker that steps the simulation every interval of clk.
func (d *Drivetrain) Worker(clk clock.Clock, interval time.Duration) func(context.Context) {
	last := clk.Now()
	return utils.TickerWorker(clk, interval, func(ctx context.Context, now time.Time) {
		dt := now.Sub(last)
		last = now
		if err := d.Step(ctx, dt); err != nil {
			d.logger.Warnw("simulation step failed", "error", err)
		}
	})
}
