// Package config provides configuration management for the dupe duplicate finder.
package config

// Default configuration values for dupe.
const (
	// DefaultMinSize is the minimum file size to consider. Zero keeps all files.
	DefaultMinSize = "0"

	// DefaultPath is the default path to scan when none is specified.
	DefaultPath = "."

	// DefaultRecursive controls whether subdirectories are scanned.
	DefaultRecursive = true

	// DefaultFollowSymlinks controls whether symbolic links are resolved.
	DefaultFollowSymlinks = true

	// AutoTune as a worker or in-flight setting asks the CLI to size it from
	// the detected CPU count and memory.
	AutoTune = 0

	// DefaultDirWorkers is the number of directory listing workers used when
	// nothing else picks one.
	DefaultDirWorkers = 4

	// DefaultHashWorkers is the fallback number of hashing workers.
	DefaultHashWorkers = 8

	// DefaultMaxInFlight is the fallback bound on outstanding tasks per stage.
	DefaultMaxInFlight = 128

	// DefaultAlgorithm is the default content digest.
	DefaultAlgorithm = "sha1"

	// DefaultChunkSize is the read size used while hashing.
	DefaultChunkSize = "1MiB"

	// DefaultIdleTimeout disables the inactivity watchdog.
	DefaultIdleTimeout = "0s"

	// DefaultOutput is the default result format.
	DefaultOutput = "pretty"

	// DefaultLogLevel is the default file log level.
	DefaultLogLevel = "info"
)

// DefaultExclusions contains paths that should be excluded from scanning by default.
var DefaultExclusions = []string{
	"/proc",
	"/sys",
	"/dev",
}
