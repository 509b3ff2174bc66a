// Package fake implements a fake input controller.
package fake

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/sysid/components/input"
	"go.viam.com/sysid/config"
	"go.viam.com/sysid/logging"
	"go.viam.com/sysid/registry"
)

// Model is the model name of the fake controller.
const Model = "fake"

var controls = []input.Control{input.AbsoluteX, input.AbsoluteY}

func init() {
	registry.RegisterComponent(input.SubtypeName, Model, registry.Component{
		Constructor: func(
			ctx context.Context,
			deps registry.Dependencies,
			conf config.Component,
			logger logging.Logger,
		) (interface{}, error) {
			return NewInputController(), nil
		},
	})
}

var _ input.Controller = &InputController{}

// An InputController fakes a joystick with two axes.
type InputController struct {
	mu     sync.Mutex
	events map[input.Control]input.Event
}

// NewInputController returns a connected fake controller with centered axes.
func NewInputController() *InputController {
	now := time.Now()
	events := map[input.Control]input.Event{}
	for _, control := range controls {
		events[control] = input.Event{Time: now, Event: input.Connect, Control: control}
	}
	return &InputController{events: events}
}

// Controls lists the inputs.
func (c *InputController) Controls(ctx context.Context, extra map[string]interface{}) ([]input.Control, error) {
	return append([]input.Control{}, controls...), nil
}

// Events returns the latest event for each control.
func (c *InputController) Events(ctx context.Context, extra map[string]interface{}) (map[input.Control]input.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[input.Control]input.Event, len(c.events))
	for control, ev := range c.events {
		out[control] = ev
	}
	return out, nil
}

// TriggerEvent records an event for a known control.
func (c *InputController) TriggerEvent(ctx context.Context, event input.Event, extra map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.events[event.Control]; !ok {
		return errors.Errorf("unknown control %q", event.Control)
	}
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	c.events[event.Control] = event
	return nil
}

// SetAxis moves an axis to an absolute position.
func (c *InputController) SetAxis(ctx context.Context, control input.Control, value float64) error {
	return c.TriggerEvent(ctx, input.Event{Event: input.PositionChangeAbs, Control: control, Value: value}, nil)
}
