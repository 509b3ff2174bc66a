package inject

import (
	"context"

	"go.viam.com/sysid/components/input"
)

// InputController is an injected InputController.
type InputController struct {
	input.Controller
	ControlsFunc func(ctx context.Context, extra map[string]interface{}) ([]input.Control, error)
	EventsFunc   func(ctx context.Context, extra map[string]interface{}) (map[input.Control]input.Event, error)
}

// Controls calls the injected function or the real version.
func (s *InputController) Controls(ctx context.Context, extra map[string]interface{}) ([]input.Control, error) {
	if s.ControlsFunc == nil {
		return s.Controller.Controls(ctx, extra)
	}
	return s.ControlsFunc(ctx, extra)
}

// Events calls the injected function or the real version.
func (s *InputController) Events(ctx context.Context, extra map[string]interface{}) (map[input.Control]input.Event, error) {
	if s.EventsFunc == nil {
		return s.Controller.Events(ctx, extra)
	}
	return s.EventsFunc(ctx, extra)
}
