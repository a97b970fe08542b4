package tuner

// Worker configuration limits.
const (
	// maxWorkers caps every pool.
	maxWorkers = 64

	// minWalkWorkers is the floor for directory walking. Walking is
	// metadata-bound, so it benefits from parallelism even on one core.
	minWalkWorkers = 4

	// minDiffWorkers is the floor for the membership phase.
	minDiffWorkers = 1
)

// OptimalConfig is the worker configuration derived from SystemResources.
type OptimalConfig struct {
	// WalkWorkers is the number of fastwalk workers per tree walk.
	WalkWorkers int

	// DiffWorkers is the size of the diff engine's worker pool. It is also
	// the P in chunk_size = |source| / P.
	DiffWorkers int
}

// Calculate returns the worker configuration for the given resources.
//
//   - WalkWorkers: max(CPUCores, 4), capped at 64
//   - DiffWorkers: CPUCores, at least 1, capped at 64
func Calculate(resources SystemResources) OptimalConfig {
	return OptimalConfig{
		WalkWorkers: clamp(resources.CPUCores, minWalkWorkers, maxWorkers),
		DiffWorkers: clamp(resources.CPUCores, minDiffWorkers, maxWorkers),
	}
}

// CalculateWithOverrides applies user overrides to the calculated config.
// Overrides of 0 or less keep the calculated value; positive overrides are
// still capped at 64.
func CalculateWithOverrides(resources SystemResources, walkOverride, diffOverride int) OptimalConfig {
	cfg := Calculate(resources)

	if walkOverride > 0 {
		cfg.WalkWorkers = min(walkOverride, maxWorkers)
	}
	if diffOverride > 0 {
		cfg.DiffWorkers = min(diffOverride, maxWorkers)
	}

	return cfg
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
