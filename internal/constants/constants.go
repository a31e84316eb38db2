// Package constants defines application-wide constants and version information.
package constants

import "runtime"

// Version holds the application version information
const Version = "0.4-" + runtime.GOOS + "/" + runtime.GOARCH
