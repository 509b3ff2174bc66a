// Package units converts raw drive encoder readings into physical distance and rate.
package units

import (
	"math"

	"github.com/pkg/errors"

	"go.viam.com/sysid/utils"
)

// ErrConfigurationInvalid is returned when the wheel diameter or the encoder resolution cannot
// produce a positive distance per tick.
var ErrConfigurationInvalid = errors.New("invalid drivetrain configuration")

// decisecondsPerSecond scales a per-100ms encoder velocity to per-second.
const decisecondsPerSecond = 10.0

// A Converter maps encoder ticks to distance using a fixed distance-per-tick constant. The
// distance unit is whatever unit the wheel diameter was given in.
type Converter struct {
	k float64
}

// NewConverter derives the distance-per-tick constant
// k = (1 / edgesPerRevolution) * wheelDiameter * π.
func NewConverter(wheelDiameter, edgesPerRevolution float64) (Converter, error) {
	if !utils.IsFinite(wheelDiameter) || wheelDiameter <= 0 {
		return Converter{}, errors.Wrapf(ErrConfigurationInvalid, "wheel diameter must be positive, got %v", wheelDiameter)
	}
	if !utils.IsFinite(edgesPerRevolution) || edgesPerRevolution <= 0 {
		return Converter{}, errors.Wrapf(ErrConfigurationInvalid,
			"encoder edges per revolution must be positive, got %v", edgesPerRevolution)
	}
	return Converter{k: (1 / edgesPerRevolution) * wheelDiameter * math.Pi}, nil
}

// Constant returns the distance travelled per encoder tick.
func (c Converter) Constant() float64 {
	return c.k
}

// ToDistance converts an accumulated tick count to distance.
func (c Converter) ToDistance(ticks int64) float64 {
	return float64(ticks) * c.k
}

// ToRate converts an encoder velocity in ticks per 100ms to distance per second.
func (c Converter) ToRate(ticksPerDecisecond float64) float64 {
	return ticksPerDecisecond * decisecondsPerSecond * c.k
}

// ToTicks is the inverse of ToDistance without rounding.
func (c Converter) ToTicks(distance float64) float64 {
	return distance / c.k
}

// ToTicksPerDecisecond is the inverse of ToRate.
func (c Converter) ToTicksPerDecisecond(rate float64) float64 {
	return rate / decisecondsPerSecond / c.k
}
