//go:build linux

package tuner

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Detect detects available system resources (CPU and RAM).
// On linux it uses runtime.NumCPU() for CPU cores and sysinfo(2) for memory.
func Detect() (SystemResources, error) {
	resources := SystemResources{
		CPUCores: runtime.NumCPU(),
	}

	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return resources, fmt.Errorf("sysinfo: %w", err)
	}

	unit := int64(max(info.Unit, 1))
	resources.TotalRAM = int64(info.Totalram) * unit //nolint:gosec // RAM fits in int64
	// Buffers are reclaimable, so count them as available.
	resources.AvailableRAM = (int64(info.Freeram) + int64(info.Bufferram)) * unit //nolint:gosec // RAM fits in int64
	resources.AvailableRAM = min(resources.AvailableRAM, resources.TotalRAM)

	return resources, nil
}
