package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/dupe/pkg/dupe/engine"
	"github.com/jamesainslie/dupe/pkg/dupe/types"
)

// ScanModel renders a run in progress: the enumeration counters first, then
// the hashing percentage and the groups found so far.
type ScanModel struct {
	scan      types.ScanProgress
	files     int
	percent   int
	groups    int
	wasted    int64
	errors    int
	hashing   bool
	done      bool
	paused    bool
	aborting  bool
	spinner   spinner.Model
	bar       progress.Model
	startTime time.Time
	width     int
	height    int
	roots     []string
}

// NewScanModel creates a scan model for roots.
func NewScanModel(roots []string) ScanModel {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return ScanModel{
		spinner:   s,
		bar:       progress.New(progress.WithDefaultGradient()),
		startTime: time.Now(),
		width:     80,
		height:    24,
		roots:     roots,
	}
}

// Init starts the spinner.
func (m ScanModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Apply folds an engine event into the model.
func (m *ScanModel) Apply(ev engine.Event) {
	switch ev := ev.(type) {
	case engine.ScanProgress:
		m.scan = ev.ScanProgress
	case engine.EnumerationFinished:
		m.hashing = true
		m.files = len(ev.Files)
		m.errors += len(ev.Errors)
		m.scan.CurrentPath = ""
	case engine.Progress:
		m.percent = ev.Percent
	case engine.DuplicateFound:
		m.groups++
		m.wasted += ev.Group.Wasted()
	case engine.HashingFinished:
		m.done = true
		m.errors += len(ev.Failed)
	}
}

// View renders the scan model.
func (m ScanModel) View() string {
	var b strings.Builder

	contentWidth := max(m.width-4, 40)

	b.WriteString("\n")
	b.WriteString(m.renderHeader(contentWidth))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n\n")

	b.WriteString(m.renderStatus(contentWidth))
	b.WriteString("\n\n")

	if m.hashing {
		b.WriteString(m.renderPercent(contentWidth))
	} else {
		b.WriteString(m.renderPulse(contentWidth))
	}
	b.WriteString("\n\n")

	b.WriteString(m.renderStats(contentWidth))
	b.WriteString("\n")

	content := b.String()
	contentLines := strings.Count(content, "\n") + 1

	availableLines := m.height - 2
	if availableLines > contentLines {
		content += strings.Repeat("\n", availableLines-contentLines)
	}

	return outerBoxStyle.Width(m.width - 2).Height(m.height - 2).Render(content)
}

func (m ScanModel) renderHeader(width int) string {
	title := renderAppHeader(m.groups, m.wasted, m.paused)
	hint := renderKeyHints([2]string{"p", "Pause"}, [2]string{"a", "Abort"}, [2]string{"q", "Quit"})

	spacing := max(width-lipgloss.Width(title)-lipgloss.Width(hint), 1)
	return title + strings.Repeat(" ", spacing) + hint
}

func (m ScanModel) renderStatus(width int) string {
	switch {
	case m.aborting:
		return warningTextStyle.Render("  Aborting...")
	case m.paused:
		return warningTextStyle.Render("  Paused")
	case m.hashing:
		return fmt.Sprintf("  %s Hashing %s files", m.spinner.View(), humanize.Comma(int64(m.files)))
	default:
		path := m.scan.CurrentPath
		if path == "" && len(m.roots) > 0 {
			path = strings.Join(m.roots, ", ")
		}
		return fmt.Sprintf("  %s Scanning: %s", m.spinner.View(), truncatePath(path, width-20))
	}
}

// renderPercent renders the hashing progress bar.
func (m ScanModel) renderPercent(width int) string {
	bar := m.bar
	bar.Width = max(width-4, 10)
	return "  " + bar.ViewAs(float64(m.percent)/100)
}

// renderPulse renders an indeterminate bar while the total is unknown.
func (m ScanModel) renderPulse(width int) string {
	barWidth := max(width-4, 10)

	elapsed := time.Since(m.startTime)
	position := int(elapsed.Seconds()*2) % (barWidth * 2)
	if position > barWidth {
		position = barWidth*2 - position
	}
	pulseWidth := max(barWidth/5, 3)

	var bar strings.Builder
	bar.WriteString("  ")
	for i := range barWidth {
		dist := i - position
		if dist < 0 {
			dist = -dist
		}
		if dist < pulseWidth {
			bar.WriteString(progressFillStyle.Render("█"))
		} else {
			bar.WriteString(progressEmptyStyle.Render("░"))
		}
	}
	return bar.String()
}

func (m ScanModel) renderStats(totalWidth int) string {
	boxWidth := max((totalWidth-12)/5, 10)

	filesVal := humanize.Comma(m.scan.FilesFound)
	if m.hashing {
		filesVal = humanize.Comma(int64(m.files))
	}

	boxes := []string{
		m.renderStatBox("Dirs", humanize.Comma(m.scan.DirsScanned), boxWidth),
		m.renderStatBox("Files", filesVal, boxWidth),
		m.renderStatBox("Bytes", types.FormatSize(m.scan.BytesFound), boxWidth),
		m.renderStatBox("Skipped", humanize.Comma(int64(m.errors)), boxWidth),
		m.renderStatBox("Time", formatDuration(time.Since(m.startTime)), boxWidth),
	}

	parts := []string{"  "}
	for i, box := range boxes {
		if i > 0 {
			parts = append(parts, " ")
		}
		parts = append(parts, box)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m ScanModel) renderStatBox(label, value string, width int) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		center(statsLabelStyle.Render(label), width-4),
		center(statsValueStyle.Render(value), width-4))

	return statsBoxStyle.Width(width).Render(content)
}

// formatDuration formats a duration as M:SS.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d", m, s)
}

// SetPaused records the pause state shown in the header.
func (m *ScanModel) SetPaused(paused bool) {
	m.paused = paused
}

// SetAborting marks the run as stopping.
func (m *ScanModel) SetAborting() {
	m.aborting = true
}

// Hashing reports whether enumeration has finished.
func (m ScanModel) Hashing() bool {
	return m.hashing
}

// IsDone reports whether HashingFinished was seen.
func (m ScanModel) IsDone() bool {
	return m.done
}

// Percent returns the last hashing percentage.
func (m ScanModel) Percent() int {
	return m.percent
}
