package output

import "github.com/charmbracelet/lipgloss"

// Color constants using ANSI 256-color palette.
const (
	// ColorPrimary is used for headings and sizes (bright blue).
	ColorPrimary = lipgloss.Color("39")

	// ColorSuccess marks the first member of a group (green).
	ColorSuccess = lipgloss.Color("42")

	// ColorWarning is used for skipped paths and interruptions (orange).
	ColorWarning = lipgloss.Color("214")

	// ColorAccent is used for group numbers (magenta).
	ColorAccent = lipgloss.Color("170")

	// ColorMuted is used for secondary text (gray).
	ColorMuted = lipgloss.Color("245")
)

// Box styles.
var (
	// HeaderBox holds the run summary above the groups.
	HeaderBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1).
			MarginBottom(1)

	// FooterBox holds the totals below the groups.
	FooterBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1).
			MarginTop(1)
)

// Text styles.
var (
	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	PathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	SizeStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	GroupStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	DigestStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Italic(true)
)
