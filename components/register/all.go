// Package register registers all components
package register

import (
	// register components.
	_ "go.viam.com/sysid/components/encoder/fake"
	_ "go.viam.com/sysid/components/gyro/fake"
	_ "go.viam.com/sysid/components/input/fake"
	_ "go.viam.com/sysid/components/motor/fake"
	_ "go.viam.com/sysid/components/powersensor/fake"
)
