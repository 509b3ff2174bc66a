package robot

import (
	"context"

	"go.viam.com/sysid/characterization"
	"go.viam.com/sysid/components/drivetrain"
	"go.viam.com/sysid/components/input"
	"go.viam.com/sysid/logging"
	"go.viam.com/sysid/utils"
)

// logEvery throttles handler warnings that repeat every period.
const logEvery = 100

// A ModeHandler runs a mode. Init is called on entry to the mode and Periodic once per period
// while it stays active.
type ModeHandler interface {
	Init(ctx context.Context)
	Periodic(ctx context.Context)
}

// DisabledHandler stops the drivetrain on entry and then does nothing.
type DisabledHandler struct {
	Actuator drivetrain.Actuator
	Logger   logging.Logger
}

// Init stops the drivetrain.
func (h *DisabledHandler) Init(ctx context.Context) {
	h.Logger.Info("Robot disabled")
	if err := h.Actuator.Drive(ctx, 0, 0); err != nil {
		h.Logger.Warnw("failed to stop drivetrain", "error", err)
	}
}

// Periodic does nothing.
func (h *DisabledHandler) Periodic(ctx context.Context) {}

// An ArcadeDriver is a drivetrain that can mix a forward speed and a rotation.
type ArcadeDriver interface {
	ArcadeDrive(ctx context.Context, xSpeed, zRotation float64, squareInputs bool) error
	Stop(ctx context.Context) error
}

// TeleopHandler drives the robot from a joystick.
type TeleopHandler struct {
	drive    ArcadeDriver
	joystick input.Controller
	logger   logging.Logger
	throttle *utils.Throttle
}

// NewTeleopHandler returns a handler for operator control. A nil joystick keeps the
// drivetrain stopped.
func NewTeleopHandler(drive ArcadeDriver, joystick input.Controller, logger logging.Logger) *TeleopHandler {
	return &TeleopHandler{
		drive:    drive,
		joystick: joystick,
		logger:   logger,
		throttle: utils.NewThrottle(logEvery),
	}
}

// Init logs the mode change.
func (h *TeleopHandler) Init(ctx context.Context) {
	h.logger.Info("Robot in operator control mode")
	h.throttle.Reset()
}

// Periodic drives forward on the inverted Y axis and turns on the X axis.
func (h *TeleopHandler) Periodic(ctx context.Context) {
	if h.joystick == nil {
		h.stop(ctx)
		return
	}
	y, err := input.Axis(ctx, h.joystick, input.AbsoluteY)
	if err == nil {
		var x float64
		x, err = input.Axis(ctx, h.joystick, input.AbsoluteX)
		if err == nil {
			err = h.drive.ArcadeDrive(ctx, -y, x, true)
		}
	}
	if err != nil {
		if ok, suppressed := h.throttle.Allow(); ok {
			h.logger.Warnw("teleop drive failed, stopping", "error", err, "suppressed", suppressed)
		}
		h.stop(ctx)
	}
}

func (h *TeleopHandler) stop(ctx context.Context) {
	if err := h.drive.Stop(ctx); err != nil {
		h.logger.Debugw("failed to stop drivetrain", "error", err)
	}
}

// AutonomousHandler runs one characterization period per robot period.
type AutonomousHandler struct {
	loop     *characterization.Loop
	logger   logging.Logger
	throttle *utils.Throttle
}

// NewAutonomousHandler returns a handler that runs the characterization loop.
func NewAutonomousHandler(loop *characterization.Loop, logger logging.Logger) *AutonomousHandler {
	return &AutonomousHandler{
		loop:     loop,
		logger:   logger,
		throttle: utils.NewThrottle(logEvery),
	}
}

// Init logs the mode change. The loop keeps its prior command across re-entries.
func (h *AutonomousHandler) Init(ctx context.Context) {
	h.logger.Info("Robot in autonomous mode")
	h.throttle.Reset()
}

// Periodic runs a characterization period. Errors are logged and the next period proceeds.
func (h *AutonomousHandler) Periodic(ctx context.Context) {
	if _, err := h.loop.Period(ctx); err != nil {
		if ok, suppressed := h.throttle.Allow(); ok {
			h.logger.Warnw("characterization period degraded", "error", err, "suppressed", suppressed)
		}
	}
}
