package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/dupe/pkg/dupe/types"
)

// renderAppHeader renders the title line shared by every screen.
// Parameters:
//   - groups: duplicate groups found so far
//   - wasted: bytes reclaimable across those groups
//   - paused: whether the run is currently paused
func renderAppHeader(groups int, wasted int64, paused bool) string {
	appName := titleStyle.Render("DUPE")

	stats := mutedTextStyle.Render(fmt.Sprintf("  %s groups  •  %s reclaimable",
		humanize.Comma(int64(groups)), types.FormatSize(wasted)))

	header := " " + appName + stats
	if paused {
		header += warningTextStyle.Render("  ❚❚ PAUSED")
	}
	return header
}

// renderScanMetrics renders directory and file counts with elapsed time.
// It returns an empty string when there is nothing to show.
func renderScanMetrics(dirsScanned int64, filesFound int, elapsed time.Duration) string {
	var parts []string

	if dirsScanned > 0 || filesFound > 0 {
		parts = append(parts, fmt.Sprintf("Scanned: %s dirs, %s files",
			humanize.Comma(dirsScanned),
			humanize.Comma(int64(filesFound))))
	}
	if elapsed > 0 {
		parts = append(parts, fmt.Sprintf("Time: %v", elapsed.Round(time.Millisecond)))
	}

	if len(parts) == 0 {
		return ""
	}
	return mutedTextStyle.Render("  " + strings.Join(parts, "  |  "))
}
