package server

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/sysid/characterization"
	"go.viam.com/sysid/components/drivetrain"
	"go.viam.com/sysid/components/encoder"
	encoderfake "go.viam.com/sysid/components/encoder/fake"
	"go.viam.com/sysid/components/gyro"
	gyrofake "go.viam.com/sysid/components/gyro/fake"
	"go.viam.com/sysid/components/input"
	"go.viam.com/sysid/components/motor"
	motorfake "go.viam.com/sysid/components/motor/fake"
	"go.viam.com/sysid/components/powersensor"
	powerfake "go.viam.com/sysid/components/powersensor/fake"
	"go.viam.com/sysid/config"
	"go.viam.com/sysid/logging"
	"go.viam.com/sysid/nettable"
	"go.viam.com/sysid/registry"
	"go.viam.com/sysid/robot"
	"go.viam.com/sysid/sensors"
	"go.viam.com/sysid/sim"
)

// A Robot is every part of a configured characterization robot.
type Robot struct {
	Store      *nettable.Store
	Drivetrain *drivetrain.Drivetrain
	Sensors    sensors.Facade
	Loop       *characterization.Loop
	Robot      *robot.Robot
	// Sim is set when the config enables simulation.
	Sim *sim.Drivetrain
}

// NewRobot builds the components named in cfg and wires them into a robot that starts
// disabled.
func NewRobot(ctx context.Context, cfg *config.Config, clk clock.Clock, logger logging.Logger) (*Robot, error) {
	deps, err := registry.Build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	left, err := motors(deps, cfg.Drivetrain.Left)
	if err != nil {
		return nil, err
	}
	right, err := motors(deps, cfg.Drivetrain.Right)
	if err != nil {
		return nil, err
	}
	dt, err := drivetrain.New(left, right, drivetrain.Options{
		InvertLeft:  cfg.Drivetrain.InvertLeft,
		InvertRight: cfg.Drivetrain.InvertRight,
	}, logger.Sublogger("drivetrain"))
	if err != nil {
		return nil, err
	}

	leftEncoder, err := encoder.FromDependencies(deps, cfg.Sensors.LeftEncoder)
	if err != nil {
		return nil, err
	}
	rightEncoder, err := encoder.FromDependencies(deps, cfg.Sensors.RightEncoder)
	if err != nil {
		return nil, err
	}
	g, err := gyro.FromDependencies(deps, cfg.Sensors.Gyro)
	if err != nil {
		return nil, err
	}
	power, err := powersensor.FromDependencies(deps, cfg.Sensors.PowerSensor)
	if err != nil {
		return nil, err
	}
	var joystick input.Controller
	if cfg.Joystick != "" {
		if joystick, err = input.FromDependencies(deps, cfg.Joystick); err != nil {
			return nil, err
		}
	}

	facade := sensors.New(leftEncoder, rightEncoder, g, cfg.Converter(), sensors.Options{
		InvertLeftPhase:  cfg.Sensors.InvertLeftPhase,
		InvertRightPhase: cfg.Sensors.InvertRightPhase,
	})
	store := nettable.NewStore(logger.Sublogger("nettable"))
	loop, err := characterization.NewLoop(characterization.Config{
		Sensors:  facade,
		Actuator: dt,
		Power:    power,
		Channel:  store,
		Clock:    clk,
		Logger:   logger.Sublogger("characterization"),
	})
	if err != nil {
		return nil, err
	}

	robotLogger := logger.Sublogger("robot")
	r, err := robot.New(robot.Config{
		Handlers: map[robot.Mode]robot.ModeHandler{
			robot.Disabled:   &robot.DisabledHandler{Actuator: dt, Logger: robotLogger},
			robot.Teleop:     robot.NewTeleopHandler(dt, joystick, robotLogger),
			robot.Autonomous: robot.NewAutonomousHandler(loop, robotLogger),
		},
		Diagnostics: facade,
		Logger:      robotLogger,
	})
	if err != nil {
		return nil, err
	}

	out := &Robot{Store: store, Drivetrain: dt, Sensors: facade, Loop: loop, Robot: r}
	if cfg.Simulation != nil {
		if out.Sim, err = newSim(cfg, deps, logger.Sublogger("sim")); err != nil {
			return nil, errors.Wrap(err, "simulation needs fake components")
		}
	}
	return out, nil
}

// Step runs one period in the mode requested on the channel.
func (r *Robot) Step(ctx context.Context) {
	r.Robot.StepFrom(ctx, robot.TableModeSource{Table: r.Store})
}

// Close stops the drivetrain and closes the channel.
func (r *Robot) Close(ctx context.Context) error {
	return multierr.Combine(r.Drivetrain.Stop(ctx), r.Store.Close())
}

func motors(deps registry.Dependencies, names []string) ([]motor.Motor, error) {
	out := make([]motor.Motor, 0, len(names))
	for _, name := range names {
		m, err := motor.FromDependencies(deps, name)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func fakeMotors(deps registry.Dependencies, names []string) ([]*motorfake.Motor, error) {
	out := make([]*motorfake.Motor, 0, len(names))
	for _, name := range names {
		m, err := registry.FromDependencies[*motorfake.Motor](deps, name)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func newSim(cfg *config.Config, deps registry.Dependencies, logger logging.Logger) (*sim.Drivetrain, error) {
	left, err := fakeMotors(deps, cfg.Drivetrain.Left)
	if err != nil {
		return nil, err
	}
	right, err := fakeMotors(deps, cfg.Drivetrain.Right)
	if err != nil {
		return nil, err
	}
	leftEncoder, err := registry.FromDependencies[*encoderfake.Encoder](deps, cfg.Sensors.LeftEncoder)
	if err != nil {
		return nil, err
	}
	rightEncoder, err := registry.FromDependencies[*encoderfake.Encoder](deps, cfg.Sensors.RightEncoder)
	if err != nil {
		return nil, err
	}
	g, err := registry.FromDependencies[*gyrofake.Gyro](deps, cfg.Sensors.Gyro)
	if err != nil {
		return nil, err
	}
	// a real power sensor may stay in place
	power, _ := registry.FromDependencies[*powerfake.PowerSensor](deps, cfg.Sensors.PowerSensor)

	return sim.New(sim.Config{
		Plant: *cfg.Simulation,
		Left: sim.Side{
			Motors:   left,
			Encoder:  leftEncoder,
			Inverted: cfg.Drivetrain.InvertLeft,
		},
		Right: sim.Side{
			Motors:   right,
			Encoder:  rightEncoder,
			Inverted: cfg.Drivetrain.InvertRight,
		},
		Gyro:      g,
		Power:     power,
		Converter: cfg.Converter(),
	}, logger)
}
