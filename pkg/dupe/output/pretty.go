package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
// It produces a visually appealing output suitable for terminal display.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")

	w.WriteString(f.formatGroups(r))
	w.WriteString(f.formatFooter(r))

	if len(r.Warnings) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatWarnings(r.Warnings))
	}

	return nil
}

// formatHeader builds the header box with run metadata.
func (f *PrettyFormatter) formatHeader(r *Result) string {
	var lines []string

	rootsLabel := LabelStyle.Render("Roots:")
	rootsValue := ValueStyle.Render(strings.Join(r.Roots, ", "))
	lines = append(lines, fmt.Sprintf("%s %s", rootsLabel, rootsValue))

	scannedLabel := LabelStyle.Render("Scanned:")
	scannedValue := ValueStyle.Render(fmt.Sprintf("%s files in %s dirs, hashed %s in %s",
		humanize.Comma(int64(r.Stats.FilesScanned)),
		humanize.Comma(r.Stats.DirsScanned),
		humanize.IBytes(uint64(max(r.Stats.BytesHashed, 0))),
		formatDuration(r.Stats.Duration)))
	algoLabel := LabelStyle.Render("Digest:")
	algoValue := MutedStyle.Render(r.Algorithm)
	lines = append(lines, fmt.Sprintf("%s %s  %s %s", scannedLabel, scannedValue, algoLabel, algoValue))

	if r.Interrupted {
		interruptedStyle := WarningStyle.Bold(true)
		lines = append(lines, interruptedStyle.Render("Run interrupted, results are partial"))
	}

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

// formatGroups renders each group as a heading followed by its members.
func (f *PrettyFormatter) formatGroups(r *Result) string {
	if len(r.Groups) == 0 {
		return MutedStyle.Render("  No duplicate files found") + "\n"
	}

	var sb strings.Builder
	for _, row := range Rows(r) {
		switch row := row.(type) {
		case GroupRow:
			if row.Index > 1 {
				sb.WriteString("\n")
			}
			heading := fmt.Sprintf("%s %s  %s  %s",
				GroupStyle.Render(fmt.Sprintf("#%d", row.Index)),
				SizeStyle.Render(row.Group.SizeHuman),
				MutedStyle.Render(fmt.Sprintf("x%d", len(row.Group.Files))),
				DigestStyle.Render(shortDigest(row.Group.Digest)),
			)
			sb.WriteString("  " + heading + "\n")
		case FileRow:
			marker := MutedStyle.Render("  ")
			if row.First {
				marker = SuccessStyle.Render("* ")
			}
			sb.WriteString("    " + marker + PathStyle.Render(row.File.Path) + "\n")
		}
	}
	return sb.String()
}

// formatFooter builds the footer box with summary information.
func (f *PrettyFormatter) formatFooter(r *Result) string {
	var parts []string

	groupsLabel := LabelStyle.Render("Groups:")
	groupsValue := ValueStyle.Render(humanize.Comma(int64(len(r.Groups))))
	parts = append(parts, fmt.Sprintf("%s %s", groupsLabel, groupsValue))

	filesLabel := LabelStyle.Render("Files:")
	filesValue := ValueStyle.Render(humanize.Comma(int64(r.TotalFiles())))
	parts = append(parts, fmt.Sprintf("%s %s", filesLabel, filesValue))

	wastedLabel := LabelStyle.Render("Reclaimable:")
	wastedValue := SizeStyle.Render(humanize.IBytes(uint64(max(r.TotalWasted(), 0))))
	parts = append(parts, fmt.Sprintf("%s %s", wastedLabel, wastedValue))

	hint := MutedStyle.Render("Use -o paths for fdupes-style output")
	parts = append(parts, hint)

	return FooterBox.Render(strings.Join(parts, "  "))
}

// formatWarnings builds a warning block.
func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder

	titleStyle := WarningStyle.Bold(true)
	sb.WriteString(titleStyle.Render(fmt.Sprintf("Skipped %d paths:", len(warnings))))
	sb.WriteString("\n")

	for _, warning := range warnings {
		sb.WriteString(WarningStyle.Render("  " + warning))
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := minutes / 60
	minutes %= 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
