// Package robot dispatches each control period to the handler of the active mode.
package robot

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/sysid/logging"
	"go.viam.com/sysid/sensors"
	"go.viam.com/sysid/utils"
)

// DefaultDiagnosticEvery is how many periods pass between diagnostic log lines.
const DefaultDiagnosticEvery = 50

// Config configures a Robot.
type Config struct {
	// Handlers must have an entry for every mode.
	Handlers map[Mode]ModeHandler
	// Diagnostics is optional.
	Diagnostics     sensors.Facade
	DiagnosticEvery uint64
	Logger          logging.Logger
}

// A Robot is driven by a single caller, once per period.
type Robot struct {
	cfg Config

	mode    Mode
	started bool
	periods uint64

	sourceThrottle *utils.Throttle
	modeThrottle   *utils.Throttle
}

// New returns a robot that starts disabled.
func New(cfg Config) (*Robot, error) {
	if cfg.Logger == nil {
		return nil, errors.New("robot needs a logger")
	}
	for m := range modeNames {
		if cfg.Handlers[m] == nil {
			return nil, errors.Errorf("no handler for mode %s", m)
		}
	}
	if cfg.DiagnosticEvery == 0 {
		cfg.DiagnosticEvery = DefaultDiagnosticEvery
	}
	return &Robot{
		cfg:            cfg,
		sourceThrottle: utils.NewThrottle(logEvery),
		modeThrottle:   utils.NewThrottle(logEvery),
	}, nil
}

// Mode returns the mode of the last step.
func (r *Robot) Mode() Mode {
	return r.mode
}

// Step runs one period in the given mode. Entering a mode runs its Init before its Periodic.
func (r *Robot) Step(ctx context.Context, active Mode) {
	h, ok := r.cfg.Handlers[active]
	if !ok {
		if ok, suppressed := r.modeThrottle.Allow(); ok {
			r.cfg.Logger.Warnw("unknown mode, disabling", "mode", int(active), "suppressed", suppressed)
		}
		active = Disabled
		h = r.cfg.Handlers[Disabled]
	}
	if !r.started || active != r.mode {
		r.cfg.Logger.Debugw("mode change", "from", r.mode, "to", active)
		r.started = true
		r.mode = active
		h.Init(ctx)
	}
	h.Periodic(ctx)
	r.robotPeriodic(ctx)
}

// StepFrom runs one period in the mode reported by src. An error from src disables the robot.
func (r *Robot) StepFrom(ctx context.Context, src ModeSource) {
	m, err := src.Mode(ctx)
	if err != nil {
		if ok, suppressed := r.sourceThrottle.Allow(); ok {
			r.cfg.Logger.Warnw("mode unavailable, disabling", "error", err, "suppressed", suppressed)
		}
		m = Disabled
	}
	r.Step(ctx, m)
}

func (r *Robot) robotPeriodic(ctx context.Context) {
	r.periods++
	if r.cfg.Diagnostics == nil || r.periods%r.cfg.DiagnosticEvery != 0 {
		return
	}
	d := r.cfg.Diagnostics
	readings := []interface{}{"mode", r.mode}
	for _, reading := range []struct {
		name string
		f    func(context.Context) (float64, error)
	}{
		{"left_position", d.LeftPosition},
		{"right_position", d.RightPosition},
		{"left_rate", d.LeftRate},
		{"right_rate", d.RightRate},
		{"gyro_degrees", d.GyroAngleRadians},
	} {
		v, err := reading.f(ctx)
		if err != nil {
			readings = append(readings, reading.name, err.Error())
			continue
		}
		if reading.name == "gyro_degrees" {
			v = utils.RadToDeg(v)
		}
		readings = append(readings, reading.name, v)
	}
	r.cfg.Logger.Debugw("diagnostics", readings...)
}
