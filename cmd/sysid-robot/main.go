// Package main runs a drivetrain characterization robot.
package main

import (
	"go.viam.com/utils"

	// registers all components.
	_ "go.viam.com/sysid/components/register"
	"go.viam.com/sysid/logging"
	"go.viam.com/sysid/web/server"
)

var logger = logging.NewLogger("sysid-robot")

func main() {
	utils.ContextualMain(server.RunServer, logger)
}
