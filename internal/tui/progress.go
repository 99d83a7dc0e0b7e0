// Package tui implements a bubbletea progress view for a run in
// progress: a polling Model (Elm architecture — Init/Update/View) that
// periodically snapshots a LiveRun's Blackboard/InferenceRepo and
// renders completed/total counts until the run finishes.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"normcode.dev/core/internal/httpapi"
	"normcode.dev/core/internal/model"
)

const refreshInterval = 200 * time.Millisecond

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2ECC71"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E74C3C"))
)

type tickMsg time.Time

type doneMsg struct{ err error }

// Model renders a run's live progress until its done channel fires.
type Model struct {
	runID string
	live  *httpapi.LiveRun
	done  <-chan error

	completed int
	total     int
	failed    int
	finished  bool
	err       error
	width     int
}

// NewModel builds a Model that polls live until done delivers the run's
// final error (nil on success).
func NewModel(runID string, live *httpapi.LiveRun, done <-chan error) *Model {
	return &Model{runID: runID, live: live, done: done, width: 60}
}

// Err returns the run's final error after the model has finished, or
// nil if the run is still in progress or succeeded.
func (m *Model) Err() error {
	return m.err
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.snapshot(), m.waitForDone())
}

func (m *Model) snapshot() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) waitForDone() tea.Cmd {
	done := m.done
	return func() tea.Msg {
		return doneMsg{err: <-done}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil

	case tickMsg:
		m.refresh()
		if m.finished {
			return m, nil
		}
		return m, m.snapshot()

	case doneMsg:
		m.refresh()
		m.finished = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) refresh() {
	entries := m.live.Inferences.IterateSorted()
	m.total = len(entries)
	m.completed, m.failed = 0, 0
	for _, e := range entries {
		switch m.live.Board.Status(string(e.FlowIndex)) {
		case model.StatusCompleted, model.StatusCompletedSkipped:
			m.completed++
		case model.StatusFailed:
			m.failed++
		}
	}
}

func (m *Model) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", titleStyle.Render("normcode run "+m.runID))
	fmt.Fprintf(&b, "%s\n", barStyle.Render(progressBar(m.completed, m.total, m.width-2)))
	fmt.Fprintf(&b, "%d/%d inferences settled", m.completed, m.total)
	if m.failed > 0 {
		fmt.Fprintf(&b, ", %s", errStyle.Render(fmt.Sprintf("%d failed", m.failed)))
	}
	b.WriteString("\n")
	if m.finished {
		if m.err != nil {
			fmt.Fprintf(&b, "\n%s\n", errStyle.Render("run failed: "+m.err.Error()))
		} else {
			fmt.Fprintf(&b, "\n%s\n", barStyle.Render("run complete"))
		}
	}
	return b.String()
}

func progressBar(done, total, width int) string {
	if width < 10 {
		width = 10
	}
	if total == 0 {
		return "[" + strings.Repeat(" ", width-2) + "]"
	}
	filled := (done * (width - 2)) / total
	if filled > width-2 {
		filled = width - 2
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-2-filled) + "]"
}
