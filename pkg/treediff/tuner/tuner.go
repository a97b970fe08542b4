// Package tuner detects the resources available to treediff and derives the
// worker counts used by the tree walker and the diff engine.
package tuner

import "runtime"

// SystemResources contains detected system resources.
type SystemResources struct {
	// CPUCores is the number of logical CPU cores available to the process.
	CPUCores int
}

// Detect returns the resources available to this process.
// GOMAXPROCS is used rather than NumCPU so container CPU limits are honoured.
func Detect() SystemResources {
	return SystemResources{
		CPUCores: max(runtime.GOMAXPROCS(0), 1),
	}
}
