package tuner

import "github.com/jamesainslie/dupe/pkg/dupe/workpool"

// Worker configuration limits.
const (
	// minDirWorkers is the minimum number of directory workers.
	// Listing is metadata-bound and benefits from some parallelism even on
	// small systems.
	minDirWorkers = 4

	// minHashWorkers is the minimum number of hashing workers.
	minHashWorkers = 2

	// minInFlight and maxInFlight bound the per-stage task limit.
	minInFlight = 64
	maxInFlight = 8192
)

// Memory-based sizing constants.
const (
	// bytesPerTask estimates memory per queued or in-flight task: a path
	// string plus the record handed back to the merger.
	bytesPerTask = 512

	// inFlightMemoryFraction is the fraction of available RAM given to
	// queued tasks.
	inFlightMemoryFraction = 0.01
)

// OptimalConfig contains tuned worker configuration for the detected
// system resources.
type OptimalConfig struct {
	// DirWorkers is the number of directory listing workers.
	DirWorkers int

	// HashWorkers is the number of hashing workers.
	HashWorkers int

	// MaxInFlight bounds dispatched but unmerged tasks per stage.
	MaxInFlight int
}

// Calculate returns the configuration for resources.
//
//   - DirWorkers: max(NumCPU, 4), since listing waits on metadata I/O
//   - HashWorkers: NumCPU * 2, since hashing alternates reads and digest work
//   - both are clamped to the worker pool limits
//   - MaxInFlight grows with available RAM and is at least 4 tasks per worker
func Calculate(resources SystemResources) OptimalConfig {
	dirWorkers := workpool.ClampWorkers(max(resources.CPUCores, minDirWorkers))
	hashWorkers := workpool.ClampWorkers(max(resources.CPUCores*2, minHashWorkers))

	inFlight := calculateInFlight(resources.AvailableRAM)
	inFlight = max(inFlight, 4*max(dirWorkers, hashWorkers))

	return OptimalConfig{
		DirWorkers:  dirWorkers,
		HashWorkers: hashWorkers,
		MaxInFlight: inFlight,
	}
}

// CalculateWithOverrides applies user overrides to the calculated config.
// A positive override replaces the corresponding worker count, still
// clamped to the worker pool limits.
func CalculateWithOverrides(resources SystemResources, dirWorkers, hashWorkers int) OptimalConfig {
	config := Calculate(resources)

	if dirWorkers > 0 {
		config.DirWorkers = workpool.ClampWorkers(dirWorkers)
	}
	if hashWorkers > 0 {
		config.HashWorkers = workpool.ClampWorkers(hashWorkers)
	}
	config.MaxInFlight = max(config.MaxInFlight, 4*max(config.DirWorkers, config.HashWorkers))

	return config
}

// calculateInFlight sizes the task limit from available memory.
func calculateInFlight(availableRAM int64) int {
	budget := float64(availableRAM) * inFlightMemoryFraction
	entries := int(budget / bytesPerTask)

	// Two stages share the budget.
	entries /= 2

	entries = max(entries, minInFlight)
	entries = min(entries, maxInFlight)
	return entries
}
