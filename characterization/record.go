package characterization

import "go.viam.com/sysid/nettable"

// Fields of a Record, in the order the data logger expects them.
const (
	FieldTimestamp = iota
	FieldBatteryVoltage
	FieldAutospeed
	FieldLeftMotorVolts
	FieldRightMotorVolts
	FieldLeftPosition
	FieldRightPosition
	FieldLeftRate
	FieldRightRate
	FieldGyroAngle
)

// A Record is one period of telemetry.
type Record [nettable.TelemetryFields]float64

// Slice returns the record as a slice.
func (r Record) Slice() []float64 {
	out := make([]float64, len(r))
	copy(out, r[:])
	return out
}
