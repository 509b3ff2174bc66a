// Package input provides human input, such as the joystick used to drive in operator control mode.
package input

import (
	"context"
	"time"

	"go.viam.com/sysid/config"
	"go.viam.com/sysid/registry"
)

// SubtypeName identifies input controllers in a config.
const SubtypeName = config.TypeInputController

// Controller is a logical "container" more than an actual device.
type Controller interface {
	// Controls returns a list of Controls provided by the Controller.
	Controls(ctx context.Context, extra map[string]interface{}) ([]Control, error)

	// Events returns most recent Event for each input (which should be the current state).
	Events(ctx context.Context, extra map[string]interface{}) (map[Control]Event, error)
}

// EventType represents the type of input event.
type EventType string

// EventType list.
const (
	// Sent at controller initialization, and on reconnects.
	Connect EventType = "Connect"
	// Absolute position is reported via Value, a la joysticks.
	PositionChangeAbs EventType = "PositionChangeAbs"
)

// Control identifies an axis of a controller.
type Control string

// Controls.
const (
	AbsoluteX Control = "AbsoluteX"
	AbsoluteY Control = "AbsoluteY"
)

// Event is returned by Events.
type Event struct {
	Time    time.Time
	Event   EventType
	Control Control
	Value   float64 // -1.0 to +1.0
}

// Axis returns the latest value of an axis. An axis that has not reported yet is centered.
func Axis(ctx context.Context, c Controller, control Control) (float64, error) {
	events, err := c.Events(ctx, nil)
	if err != nil {
		return 0, err
	}
	return events[control].Value, nil
}

// FromDependencies is a helper for getting the named input controller from a collection of
// dependencies.
func FromDependencies(deps registry.Dependencies, name string) (Controller, error) {
	return registry.FromDependencies[Controller](deps, name)
}
