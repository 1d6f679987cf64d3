package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/dupe/pkg/dupe/output"
)

// ResultModel is a scrollable list of duplicate groups and their members.
type ResultModel struct {
	result *output.Result
	rows   []output.Row
	cursor int
	offset int
	width  int
	height int
}

// NewResultModel creates a result model for r.
func NewResultModel(r *output.Result) ResultModel {
	if r == nil {
		r = &output.Result{}
	}
	return ResultModel{
		result: r,
		rows:   output.Rows(r),
		width:  80,
		height: 24,
	}
}

// Init initializes the result model.
func (m ResultModel) Init() tea.Cmd {
	return nil
}

// HandleKey moves the cursor.
func (m *ResultModel) HandleKey(key string) {
	last := len(m.rows) - 1

	switch key {
	case "up", "k":
		m.cursor = max(m.cursor-1, 0)
	case "down", "j":
		m.cursor = max(min(m.cursor+1, last), 0)
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = max(last, 0)
	case "pgup":
		m.cursor = max(m.cursor-m.visibleRows(), 0)
	case "pgdown":
		m.cursor = max(min(m.cursor+m.visibleRows(), last), 0)
	case "n", "tab":
		m.jumpGroup(1)
	case "N", "shift+tab":
		m.jumpGroup(-1)
	default:
		return
	}
	m.ensureVisible()
}

// jumpGroup moves the cursor to the next (dir > 0) or previous group header.
func (m *ResultModel) jumpGroup(dir int) {
	for i := m.cursor + dir; i >= 0 && i < len(m.rows); i += dir {
		if _, ok := m.rows[i].(output.GroupRow); ok {
			m.cursor = i
			return
		}
	}
}

// View renders the result model.
func (m ResultModel) View() string {
	contentWidth := max(m.width-4, 60)

	var b strings.Builder
	b.WriteString(renderAppHeader(len(m.result.Groups), m.result.TotalWasted(), false))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")

	if len(m.rows) == 0 {
		b.WriteString("\n")
		b.WriteString(center(mutedTextStyle.Render("No duplicate files found."), contentWidth))
		b.WriteString("\n\n")
		b.WriteString(center(renderKeyHints([2]string{"q", "Quit"}), contentWidth))
		b.WriteString("\n")
		return outerBoxStyle.Width(m.width - 2).Render(b.String())
	}

	b.WriteString("  " + renderKeyHints(
		[2]string{"↑↓", "Move"},
		[2]string{"n/N", "Next/prev group"},
		[2]string{"q", "Quit"},
	))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")

	b.WriteString(m.renderRows(contentWidth))

	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")
	b.WriteString(m.renderFooter(contentWidth))

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

func (m ResultModel) renderRows(width int) string {
	var b strings.Builder

	visible := m.visibleRows()
	end := min(m.offset+visible, len(m.rows))
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(m.rows[i], i == m.cursor, width))
		b.WriteString("\n")
	}
	for range visible - (end - m.offset) {
		b.WriteString("\n")
	}
	return b.String()
}

func (m ResultModel) renderRow(row output.Row, isCursor bool, width int) string {
	marker := " "
	if isCursor {
		marker = cursorStyle.Render(">")
	}

	var line string
	switch row := row.(type) {
	case output.GroupRow:
		g := row.Group
		line = groupHeaderStyle.Render(fmt.Sprintf("#%d  %s × %d  %s",
			row.Index, padLeft(g.SizeHuman, 9), len(g.Files), shortDigest(g.Digest)))
	case output.FileRow:
		path := truncatePath(row.File.Path, width-10)
		if row.First {
			line = "    " + keptFileStyle.Render(path)
		} else {
			line = "    " + path
		}
	}

	line = " " + marker + " " + line
	if isCursor {
		return selectedItemStyle.Width(width).Render(line)
	}
	return normalItemStyle.Render(line)
}

func (m ResultModel) renderFooter(width int) string {
	stats := m.result.Stats
	left := renderScanMetrics(stats.DirsScanned, stats.FilesScanned, stats.Duration)
	if n := len(m.result.Warnings); n > 0 {
		left += warningTextStyle.Render(fmt.Sprintf("  |  %d skipped", n))
	}

	right := mutedTextStyle.Render(fmt.Sprintf("%d/%d", m.cursor+1, len(m.rows)))
	spacing := max(width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return left + strings.Repeat(" ", spacing) + right
}

// visibleRows returns the number of list rows that fit on screen.
func (m ResultModel) visibleRows() int {
	return max(m.height-10, 5)
}

// ensureVisible adjusts offset to keep the cursor on screen.
func (m *ResultModel) ensureVisible() {
	visible := m.visibleRows()

	if m.cursor < m.offset {
		m.offset = m.cursor
	} else if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	m.offset = max(m.offset, 0)
}

// Current returns the row under the cursor, or nil if the list is empty.
func (m ResultModel) Current() output.Row {
	if len(m.rows) == 0 {
		return nil
	}
	return m.rows[m.cursor]
}

// Cursor returns the current cursor position.
func (m ResultModel) Cursor() int {
	return m.cursor
}

// Len returns the number of rows.
func (m ResultModel) Len() int {
	return len(m.rows)
}

// SetDimensions updates the width and height.
func (m *ResultModel) SetDimensions(width, height int) {
	m.width = width
	m.height = height
	m.ensureVisible()
}

// shortDigest abbreviates a hex digest for display.
func shortDigest(digest string) string {
	if len(digest) <= 12 {
		return digest
	}
	return digest[:12]
}
