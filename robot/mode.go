package robot

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/sysid/nettable"
)

// Mode is the operating mode the robot is in.
type Mode int

// The robot's modes. Disabled is the zero value.
const (
	Disabled Mode = iota
	Teleop
	Autonomous
)

var modeNames = map[Mode]string{
	Disabled:   "disabled",
	Teleop:     "teleop",
	Autonomous: "autonomous",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// ParseMode parses the name of a mode.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return Disabled, errors.Errorf("unknown mode %q", s)
}

// A ModeSource reports which mode should be active. Implementations return Disabled along
// with any error.
type ModeSource interface {
	Mode(ctx context.Context) (Mode, error)
}

// TableModeSource reads the active mode from the robot/mode table entry. A missing entry is
// Disabled.
type TableModeSource struct {
	Table nettable.Table
}

// Mode returns the mode named in the table.
func (s TableModeSource) Mode(ctx context.Context) (Mode, error) {
	name, err := s.Table.String(nettable.KeyMode, Disabled.String())
	if err != nil {
		return Disabled, err
	}
	return ParseMode(name)
}

// StaticModeSource always reports the same mode.
type StaticModeSource Mode

// Mode returns the fixed mode.
func (s StaticModeSource) Mode(ctx context.Context) (Mode, error) {
	return Mode(s), nil
}
