package robot

import (
	"context"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/sysid/characterization"
	"go.viam.com/sysid/components/drivetrain"
	encoderfake "go.viam.com/sysid/components/encoder/fake"
	gyrofake "go.viam.com/sysid/components/gyro/fake"
	"go.viam.com/sysid/components/input"
	inputfake "go.viam.com/sysid/components/input/fake"
	"go.viam.com/sysid/components/motor"
	motorfake "go.viam.com/sysid/components/motor/fake"
	powerfake "go.viam.com/sysid/components/powersensor/fake"
	"go.viam.com/sysid/logging"
	"go.viam.com/sysid/nettable"
	"go.viam.com/sysid/sensors"
	"go.viam.com/sysid/testutils/inject"
	"go.viam.com/sysid/units"
)

type countingHandler struct {
	inits, periodics int
}

func (h *countingHandler) Init(ctx context.Context)     { h.inits++ }
func (h *countingHandler) Periodic(ctx context.Context) { h.periodics++ }

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{Disabled, Teleop, Autonomous} {
		parsed, err := ParseMode(m.String())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, parsed, test.ShouldEqual, m)
	}
	m, err := ParseMode("test")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, m, test.ShouldEqual, Disabled)
	test.That(t, Mode(9).String(), test.ShouldEqual, "unknown")
}

func TestTableModeSource(t *testing.T) {
	ctx := context.Background()
	store := nettable.NewStore(logging.NewTestLogger(t))
	src := TableModeSource{Table: store}

	m, err := src.Mode(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m, test.ShouldEqual, Disabled)

	test.That(t, store.SetString(nettable.KeyMode, "autonomous"), test.ShouldBeNil)
	m, err = src.Mode(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m, test.ShouldEqual, Autonomous)

	test.That(t, store.SetString(nettable.KeyMode, "sideways"), test.ShouldBeNil)
	m, err = src.Mode(ctx)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, m, test.ShouldEqual, Disabled)

	test.That(t, store.Close(), test.ShouldBeNil)
	m, err = src.Mode(ctx)
	test.That(t, errors.Is(err, nettable.ErrChannelUnavailable), test.ShouldBeTrue)
	test.That(t, m, test.ShouldEqual, Disabled)
}

func TestNew(t *testing.T) {
	logger := logging.NewTestLogger(t)
	_, err := New(Config{Logger: logger, Handlers: map[Mode]ModeHandler{Disabled: &countingHandler{}}})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no handler")

	_, err = New(Config{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestStepDispatch(t *testing.T) {
	ctx := context.Background()
	handlers := map[Mode]*countingHandler{Disabled: {}, Teleop: {}, Autonomous: {}}
	logger, logs := logging.NewObservedTestLogger(t)
	r, err := New(Config{
		Handlers: map[Mode]ModeHandler{
			Disabled:   handlers[Disabled],
			Teleop:     handlers[Teleop],
			Autonomous: handlers[Autonomous],
		},
		Logger: logger,
	})
	test.That(t, err, test.ShouldBeNil)

	r.Step(ctx, Disabled)
	test.That(t, handlers[Disabled].inits, test.ShouldEqual, 1)
	test.That(t, handlers[Disabled].periodics, test.ShouldEqual, 1)

	for i := 0; i < 3; i++ {
		r.Step(ctx, Autonomous)
	}
	test.That(t, r.Mode(), test.ShouldEqual, Autonomous)
	test.That(t, handlers[Autonomous].inits, test.ShouldEqual, 1)
	test.That(t, handlers[Autonomous].periodics, test.ShouldEqual, 3)

	r.Step(ctx, Teleop)
	r.Step(ctx, Autonomous)
	test.That(t, handlers[Teleop].inits, test.ShouldEqual, 1)
	test.That(t, handlers[Autonomous].inits, test.ShouldEqual, 2)
	test.That(t, handlers[Disabled].inits, test.ShouldEqual, 1)

	for i := 0; i < 5; i++ {
		r.Step(ctx, Mode(42))
	}
	test.That(t, r.Mode(), test.ShouldEqual, Disabled)
	test.That(t, handlers[Disabled].inits, test.ShouldEqual, 2)
	test.That(t, handlers[Disabled].periodics, test.ShouldEqual, 6)
	test.That(t, logs.FilterMessage("unknown mode, disabling").Len(), test.ShouldEqual, 1)

	r.StepFrom(ctx, StaticModeSource(Teleop))
	test.That(t, r.Mode(), test.ShouldEqual, Teleop)
}

type testRobot struct {
	robot       *Robot
	store       *nettable.Store
	dt          *drivetrain.Drivetrain
	left, right *motorfake.Motor
	joystick    *inputfake.InputController
	loop        *characterization.Loop
}

func newTestRobot(t *testing.T, logger logging.Logger) *testRobot {
	t.Helper()
	conv, err := units.NewConverter(6, 2048)
	test.That(t, err, test.ShouldBeNil)

	tr := &testRobot{
		store:    nettable.NewStore(logger),
		left:     motorfake.NewMotor("left", logger),
		right:    motorfake.NewMotor("right", logger),
		joystick: inputfake.NewInputController(),
	}
	tr.dt, err = drivetrain.New([]motor.Motor{tr.left}, []motor.Motor{tr.right}, drivetrain.Options{}, logger)
	test.That(t, err, test.ShouldBeNil)

	facade := sensors.New(&encoderfake.Encoder{}, &encoderfake.Encoder{}, &gyrofake.Gyro{}, conv, sensors.Options{})
	tr.loop, err = characterization.NewLoop(characterization.Config{
		Sensors:  facade,
		Actuator: tr.dt,
		Power:    powerfake.NewPowerSensor(12),
		Channel:  tr.store,
		Clock:    clock.NewMock(),
		Logger:   logger,
	})
	test.That(t, err, test.ShouldBeNil)

	tr.robot, err = New(Config{
		Handlers: map[Mode]ModeHandler{
			Disabled:   &DisabledHandler{Actuator: tr.dt, Logger: logger},
			Teleop:     NewTeleopHandler(tr.dt, tr.joystick, logger),
			Autonomous: NewAutonomousHandler(tr.loop, logger),
		},
		Diagnostics:     facade,
		DiagnosticEvery: 2,
		Logger:          logger,
	})
	test.That(t, err, test.ShouldBeNil)
	return tr
}

func (tr *testRobot) powers() (float64, float64) {
	return tr.left.PowerPct(), tr.right.PowerPct()
}

func TestDisabledNeverDrives(t *testing.T) {
	ctx := context.Background()
	logger, logs := logging.NewObservedTestLogger(t)
	tr := newTestRobot(t, logger)
	src := TableModeSource{Table: tr.store}

	test.That(t, tr.store.SetNumber(nettable.KeyAutospeed, 0.7), test.ShouldBeNil)
	test.That(t, tr.joystick.SetAxis(ctx, input.AbsoluteY, -1), test.ShouldBeNil)
	// only entering disabled touches the motors
	tr.robot.StepFrom(ctx, src)
	leftCalls, rightCalls := tr.left.SetPowerCalls(), tr.right.SetPowerCalls()
	test.That(t, leftCalls, test.ShouldEqual, 1)
	test.That(t, rightCalls, test.ShouldEqual, 1)
	for i := 0; i < 4; i++ {
		tr.robot.StepFrom(ctx, src)
		l, r := tr.powers()
		test.That(t, l, test.ShouldEqual, 0)
		test.That(t, r, test.ShouldEqual, 0)
	}
	test.That(t, tr.left.SetPowerCalls(), test.ShouldEqual, leftCalls)
	test.That(t, tr.right.SetPowerCalls(), test.ShouldEqual, rightCalls)
	test.That(t, logs.FilterMessage("Robot disabled").Len(), test.ShouldEqual, 1)

	test.That(t, tr.store.SetString(nettable.KeyMode, "autonomous"), test.ShouldBeNil)
	tr.robot.StepFrom(ctx, src)
	l, r := tr.powers()
	test.That(t, l, test.ShouldEqual, 0.7)
	test.That(t, r, test.ShouldEqual, 0.7)
	test.That(t, logs.FilterMessage("Robot in autonomous mode").Len(), test.ShouldEqual, 1)

	// leaving autonomous stops immediately even though the command is still set
	test.That(t, tr.store.SetString(nettable.KeyMode, "disabled"), test.ShouldBeNil)
	tr.robot.StepFrom(ctx, src)
	l, r = tr.powers()
	test.That(t, l, test.ShouldEqual, 0)
	test.That(t, r, test.ShouldEqual, 0)

	// a broken mode entry also disables
	test.That(t, tr.store.SetString(nettable.KeyMode, "autonomous"), test.ShouldBeNil)
	tr.robot.StepFrom(ctx, src)
	test.That(t, tr.store.SetString(nettable.KeyMode, "bogus"), test.ShouldBeNil)
	tr.robot.StepFrom(ctx, src)
	test.That(t, tr.robot.Mode(), test.ShouldEqual, Disabled)
	l, r = tr.powers()
	test.That(t, l, test.ShouldEqual, 0)
	test.That(t, r, test.ShouldEqual, 0)
	test.That(t, logs.FilterMessage("mode unavailable, disabling").Len(), test.ShouldEqual, 1)

	leftCalls, rightCalls = tr.left.SetPowerCalls(), tr.right.SetPowerCalls()
	for i := 0; i < 3; i++ {
		tr.robot.StepFrom(ctx, src)
	}
	test.That(t, tr.left.SetPowerCalls(), test.ShouldEqual, leftCalls)
	test.That(t, tr.right.SetPowerCalls(), test.ShouldEqual, rightCalls)
}

func TestAutonomousKeepsPriorAcrossReentry(t *testing.T) {
	ctx := context.Background()
	tr := newTestRobot(t, logging.NewTestLogger(t))
	test.That(t, tr.store.SetNumber(nettable.KeyAutospeed, 0.4), test.ShouldBeNil)
	tr.robot.Step(ctx, Autonomous)
	tr.robot.Step(ctx, Disabled)
	test.That(t, tr.loop.PriorAutospeed(), test.ShouldEqual, 0.4)

	tr.robot.Step(ctx, Autonomous)
	telemetry, err := tr.store.NumberArray(nettable.KeyTelemetry, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, telemetry[characterization.FieldLeftMotorVolts], test.ShouldAlmostEqual, 12*0.4)
}

func TestTeleop(t *testing.T) {
	ctx := context.Background()
	logger, logs := logging.NewObservedTestLogger(t)
	tr := newTestRobot(t, logger)

	// pushing the stick forward reads as negative Y
	test.That(t, tr.joystick.SetAxis(ctx, input.AbsoluteY, -0.5), test.ShouldBeNil)
	tr.robot.Step(ctx, Teleop)
	l, r := tr.powers()
	test.That(t, l, test.ShouldAlmostEqual, 0.25)
	test.That(t, r, test.ShouldAlmostEqual, 0.25)
	test.That(t, logs.FilterMessage("Robot in operator control mode").Len(), test.ShouldEqual, 1)

	test.That(t, tr.joystick.SetAxis(ctx, input.AbsoluteY, 0), test.ShouldBeNil)
	test.That(t, tr.joystick.SetAxis(ctx, input.AbsoluteX, 1), test.ShouldBeNil)
	tr.robot.Step(ctx, Teleop)
	l, r = tr.powers()
	test.That(t, l, test.ShouldAlmostEqual, 1)
	test.That(t, r, test.ShouldAlmostEqual, -1)

	t.Run("joystick failure stops", func(t *testing.T) {
		broken := &inject.InputController{Controller: tr.joystick}
		broken.EventsFunc = func(ctx context.Context, extra map[string]interface{}) (map[input.Control]input.Event, error) {
			return nil, errors.New("unplugged")
		}
		h := NewTeleopHandler(tr.dt, broken, logger)
		h.Init(ctx)
		h.Periodic(ctx)
		h.Periodic(ctx)
		l, r := tr.powers()
		test.That(t, l, test.ShouldEqual, 0)
		test.That(t, r, test.ShouldEqual, 0)
		test.That(t, logs.FilterMessage("teleop drive failed, stopping").Len(), test.ShouldEqual, 1)
	})

	t.Run("no joystick stops", func(t *testing.T) {
		test.That(t, tr.dt.Drive(ctx, 0.5, 0.5), test.ShouldBeNil)
		h := NewTeleopHandler(tr.dt, nil, logger)
		h.Periodic(ctx)
		l, r := tr.powers()
		test.That(t, l, test.ShouldEqual, 0)
		test.That(t, r, test.ShouldEqual, 0)
	})
}

func TestDiagnostics(t *testing.T) {
	ctx := context.Background()
	logger, logs := logging.NewObservedTestLogger(t)
	tr := newTestRobot(t, logger)
	for i := 0; i < 4; i++ {
		tr.robot.Step(ctx, Disabled)
	}
	test.That(t, logs.FilterMessage("diagnostics").Len(), test.ShouldEqual, 2)
	fields := logs.FilterMessage("diagnostics").All()[0].ContextMap()
	_, ok := fields["gyro_degrees"]
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, fields["mode"], test.ShouldEqual, "disabled")
}
