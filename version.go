package antrian

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

const modulePath = "github.com/ambiyansyah-risyal/antrian"

// Version is the library release used when the build carries no module
// version, e.g. when built from a checkout.
const Version = "v0.3.0"

// GetVersion returns the library version and the Go toolchain that built it.
func GetVersion() string {
	return fmt.Sprintf("antrian %s (%s)", moduleVersion(), runtime.Version())
}

// GetVersionInfo returns the labels of the antrian_build_info metric.
func GetVersionInfo() map[string]string {
	return map[string]string{
		"version":    moduleVersion(),
		"go_version": runtime.Version(),
	}
}

func moduleVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Version
	}
	for _, dep := range info.Deps {
		if dep.Path == modulePath && dep.Version != "" && dep.Version != "(devel)" {
			return dep.Version
		}
	}
	return Version
}
