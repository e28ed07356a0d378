// drivectl - command-line client for a folder/image drive server
package main

import (
	"os"

	"github.com/drivemanager/drivectl/internal/cli"
	"github.com/drivemanager/drivectl/internal/version"
)

// Version information, set via -ldflags at build time
var (
	Version   = "v0.3.0"
	BuildTime = "unknown"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
