package nettable

// Keys of the characterization channel.
const (
	// KeyAutospeed is the externally written open-loop speed command.
	KeyAutospeed = "robot/autospeed"
	// KeyRotate selects the rotation test.
	KeyRotate = "robot/rotate"
	// KeyTelemetry holds the latest telemetry record.
	KeyTelemetry = "robot/telemetry"
	// KeyMode selects the active mode.
	KeyMode = "robot/mode"
)

// TelemetryFields is the length of every telemetry record.
const TelemetryFields = 10

// CommandKeys are written by operators and read by the robot.
var CommandKeys = []string{KeyAutospeed, KeyRotate, KeyMode}

// IsReadOnly reports whether remote clients are barred from writing key.
func IsReadOnly(key string) bool {
	return key == KeyTelemetry
}
