package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jamesainslie/dupe/pkg/dupe/control"
	"github.com/jamesainslie/dupe/pkg/dupe/engine"
	"github.com/jamesainslie/dupe/pkg/dupe/output"
)

// AppState represents the current screen.
type AppState int

const (
	StateScanning AppState = iota
	StateHashing
	StateResults
	StateStopped
)

// Controls is the part of the engine the interface drives.
type Controls interface {
	SetPause(paused bool)
	Paused() bool
	SetAbort()
}

// Options configures the TUI application.
type Options struct {
	Roots    []string
	Controls Controls
}

// EventMsg carries an engine event into the program.
type EventMsg struct {
	Event engine.Event
}

// DoneMsg is sent once the run has returned.
type DoneMsg struct {
	Result *output.Result
	Err    error
}

// Model is the main Bubble Tea model for the dupe TUI.
type Model struct {
	state       AppState
	scanModel   ScanModel
	resultModel ResultModel
	controls    Controls

	aborting bool
	quitting bool
	result   *output.Result
	err      error

	width  int
	height int
}

// NewModel creates a new TUI model with the given options.
func NewModel(opts Options) Model {
	return Model{
		state:     StateScanning,
		scanModel: NewScanModel(opts.Roots),
		controls:  opts.Controls,
		width:     80,
		height:    24,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.scanModel.Init(), m.tickUI())
}

// tickUIMsg triggers a UI refresh.
type tickUIMsg struct{}

// tickUI keeps the elapsed time and the enumeration pulse moving.
func (m Model) tickUI() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return tickUIMsg{}
	})
}

func (m Model) running() bool {
	return m.state == StateScanning || m.state == StateHashing
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.scanModel.width = msg.Width
		m.scanModel.height = msg.Height
		m.resultModel.SetDimensions(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickUIMsg:
		if m.running() {
			return m, m.tickUI()
		}
		return m, nil

	case EventMsg:
		m.scanModel.Apply(msg.Event)
		if m.scanModel.Hashing() && m.state == StateScanning {
			m.state = StateHashing
		}
		return m, nil

	case DoneMsg:
		return m.finish(msg)

	case spinner.TickMsg:
		if !m.running() {
			return m, nil
		}
		var cmd tea.Cmd
		m.scanModel.spinner, cmd = m.scanModel.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) finish(msg DoneMsg) (tea.Model, tea.Cmd) {
	m.result = msg.Result
	m.err = msg.Err

	if m.quitting {
		return m, tea.Quit
	}
	if msg.Err != nil {
		m.state = StateStopped
		return m, nil
	}

	m.state = StateResults
	m.resultModel = NewResultModel(msg.Result)
	m.resultModel.SetDimensions(m.width, m.height)
	return m, nil
}

// handleKey handles keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if !m.running() {
		switch key {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
		if m.state == StateResults {
			m.resultModel.HandleKey(key)
		}
		return m, nil
	}

	switch key {
	case "ctrl+c":
		if m.quitting {
			return m, tea.Quit
		}
		m.quitting = true
		m.abort()
	case "q", "esc":
		m.quitting = true
		m.abort()
	case "a":
		m.abort()
	case "p", " ":
		if m.controls != nil && !m.aborting {
			paused := !m.controls.Paused()
			m.controls.SetPause(paused)
			m.scanModel.SetPaused(paused)
		}
	}
	return m, nil
}

func (m *Model) abort() {
	if m.aborting {
		return
	}
	m.aborting = true
	m.scanModel.SetAborting()
	if m.controls != nil {
		m.controls.SetAbort()
	}
}

// View renders the current screen.
func (m Model) View() string {
	switch m.state {
	case StateResults:
		return m.resultModel.View()
	case StateStopped:
		return m.renderStopped()
	default:
		return m.scanModel.View()
	}
}

func (m Model) renderStopped() string {
	contentWidth := max(m.width-4, 40)

	var b strings.Builder
	b.WriteString(renderAppHeader(m.scanModel.groups, m.scanModel.wasted, false))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n\n")

	if errors.Is(m.err, control.ErrAborted) {
		b.WriteString(warningTextStyle.Render(fmt.Sprintf("  Run aborted at %d%%. No results were kept.", m.scanModel.Percent())))
	} else {
		b.WriteString(errorTextStyle.Render(fmt.Sprintf("  Error: %v", m.err)))
	}
	b.WriteString("\n\n")
	b.WriteString("  " + renderKeyHints([2]string{"q", "Quit"}))
	b.WriteString("\n")

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

// State returns the current screen.
func (m Model) State() AppState {
	return m.state
}

// Result returns the result of a completed run.
func (m Model) Result() *output.Result {
	return m.result
}

// Err returns the error the run finished with.
func (m Model) Err() error {
	return m.err
}

// Program runs the model and forwards engine events into it.
type Program struct {
	prog *tea.Program
}

// New creates a program for opts. Cancelling ctx stops it.
func New(ctx context.Context, opts Options) *Program {
	return &Program{
		prog: tea.NewProgram(NewModel(opts),
			tea.WithAltScreen(),
			tea.WithContext(ctx),
		),
	}
}

// Send delivers an engine event. It blocks until the program accepts the
// message or has exited.
func (p *Program) Send(ev engine.Event) {
	p.prog.Send(EventMsg{Event: ev})
}

// Finish reports the end of the run.
func (p *Program) Finish(result *output.Result, err error) {
	p.prog.Send(DoneMsg{Result: result, Err: err})
}

// Run blocks until the user quits. A program stopped by its context
// returns nil.
func (p *Program) Run() error {
	_, err := p.prog.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
