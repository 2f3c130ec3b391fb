// Package ui renders live cleanup progress on interactive terminals.
package ui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/GriffinCanCode/clearmodel/internal/clean"
	"github.com/GriffinCanCode/clearmodel/internal/core"
)

var (
	styleCount  = lipgloss.NewStyle().Bold(true)
	styleMuted  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#9ca3af"})
	styleFailed = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#dc2626", Dark: "#f87171"})
)

// ─── Messages ────────────────────────────────────────────────────────────────

type outcomeMsg clean.Outcome

type doneMsg struct{}

// ─── Model ───────────────────────────────────────────────────────────────────

// ProgressModel is the bubbletea Model shown while the executor runs. It
// only aggregates outcomes for display; the engine does the real work.
type ProgressModel struct {
	spinner spinner.Model
	cancel  func()

	dryRun     bool
	files      int
	dirs       int
	failed     int
	bytes      int64
	done       bool
	cancelling bool
}

// NewProgressModel builds the progress display. cancel is invoked when the
// user interrupts; the run then winds down cooperatively.
func NewProgressModel(dryRun bool, cancel func()) ProgressModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return ProgressModel{spinner: sp, dryRun: dryRun, cancel: cancel}
}

func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			m.cancelling = true
		}
		return m, nil

	case outcomeMsg:
		switch msg.Status {
		case clean.StatusDeleted, clean.StatusSimulated:
			if msg.IsDir {
				m.dirs++
			} else {
				m.files++
			}
			m.bytes += msg.Bytes
		case clean.StatusFailed:
			m.failed++
		}
		return m, nil

	case doneMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m ProgressModel) View() string {
	if m.done {
		return ""
	}

	verb := "Deleting"
	if m.dryRun {
		verb = "Simulating"
	}
	if m.cancelling {
		verb = "Cancelling"
	}

	line := "  " + m.spinner.View() + verb + "… " +
		styleCount.Render(core.FormatSize(m.bytes)) +
		styleMuted.Render(" reclaimed")
	if m.files > 0 || m.dirs > 0 {
		line += styleMuted.Render(" · ") + styleCount.Render(strconv.Itoa(m.files)) + styleMuted.Render(" files")
	}
	if m.failed > 0 {
		line += styleMuted.Render(" · ") + styleFailed.Render(strconv.Itoa(m.failed)+" failed")
	}
	return line + "\n"
}

// ─── Runner ──────────────────────────────────────────────────────────────────

// RunProgress shows the live display while run executes. The callback handed
// to run forwards each outcome to the UI; run's error is returned after the
// display stops.
func RunProgress(dryRun bool, cancel func(), run func(onOutcome func(clean.Outcome)) error) error {
	p := tea.NewProgram(NewProgressModel(dryRun, cancel))

	errCh := make(chan error, 1)
	go func() {
		err := run(func(o clean.Outcome) {
			p.Send(outcomeMsg(o))
		})
		p.Send(doneMsg{})
		errCh <- err
	}()

	if _, err := p.Run(); err != nil {
		// Display failure must not mask the run's own result.
		<-errCh
		return err
	}
	return <-errCh
}
