package drivetrain

import (
	"context"
	"math"

	"go.viam.com/sysid/utils"
)

// ArcadeDrive drives from a forward speed and a clockwise-positive rotation, both in [-1, 1].
// With squareInputs, small stick deflections give finer control.
func (dt *Drivetrain) ArcadeDrive(ctx context.Context, xSpeed, zRotation float64, squareInputs bool) error {
	left, right := arcadeMix(xSpeed, zRotation, squareInputs)
	return dt.Drive(ctx, left, right)
}

// arcadeMix converts forward and rotation inputs into left and right outputs.
func arcadeMix(xSpeed, zRotation float64, squareInputs bool) (float64, float64) {
	xSpeed = normalize(xSpeed)
	zRotation = normalize(zRotation)

	if squareInputs {
		xSpeed = math.Copysign(xSpeed*xSpeed, xSpeed)
		zRotation = math.Copysign(zRotation*zRotation, zRotation)
	}

	// a negated centred stick is -0, which must mix like +0
	if xSpeed == 0 {
		xSpeed = 0
	}
	if zRotation == 0 {
		zRotation = 0
	}

	maxInput := math.Copysign(math.Max(math.Abs(xSpeed), math.Abs(zRotation)), xSpeed)

	var left, right float64
	if xSpeed >= 0 {
		if zRotation >= 0 {
			left, right = maxInput, xSpeed-zRotation
		} else {
			left, right = xSpeed+zRotation, maxInput
		}
	} else {
		if zRotation >= 0 {
			left, right = xSpeed+zRotation, maxInput
		} else {
			left, right = maxInput, xSpeed-zRotation
		}
	}
	return utils.Clamp(left, -1, 1), utils.Clamp(right, -1, 1)
}
