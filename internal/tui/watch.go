// Package tui contains the bubbletea models for kestrel's terminal views.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kestrelhq/kestrel/internal/dispatch"
	"github.com/kestrelhq/kestrel/pkg/models"
)

// EventMsg wraps a dispatched task event for the watch view.
type EventMsg struct {
	Event dispatch.TaskEvent
}

// maxWatchLines caps the scrollback kept by the watch view.
const maxWatchLines = 500

// WatchModel is a live event viewer for one running task.
type WatchModel struct {
	taskID  string
	status  models.TaskStatus
	lines   []string
	cost    models.Cost
	done    bool
	width   int
	height  int
	started time.Time

	headerStyle lipgloss.Style
	statusStyle lipgloss.Style
	failStyle   lipgloss.Style
	okStyle     lipgloss.Style
	timeStyle   lipgloss.Style
	lineStyle   lipgloss.Style
	footerStyle lipgloss.Style
}

// NewWatchModel creates a watch view for the given task.
func NewWatchModel(taskID string) WatchModel {
	return WatchModel{
		taskID:  taskID,
		status:  models.TaskStatusSubmitted,
		started: time.Now(),

		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1),

		statusStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")), // Orange

		okStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")), // Green

		failStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")), // Red

		timeStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		lineStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),

		footerStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(0, 1),
	}
}

// Init implements tea.Model.
func (m WatchModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		return m, nil

	case EventMsg:
		m.apply(msg.Event)
		if m.done {
			// Leave the final state on screen until the user quits.
			return m, nil
		}
		return m, nil
	}
	return m, nil
}

func (m *WatchModel) apply(ev dispatch.TaskEvent) {
	ts := ev.Timestamp.Format("15:04:05")
	switch ev.Type {
	case dispatch.EventStatus:
		m.status = ev.Status
		m.addLine(fmt.Sprintf("%s status → %s", ts, ev.Status))
	case dispatch.EventProgress:
		m.addLine(fmt.Sprintf("%s %s", ts, ev.Text))
	case dispatch.EventArtifact:
		if ev.Artifact != nil {
			m.addLine(fmt.Sprintf("%s artifact %s: %s", ts, ev.Artifact.Name, truncateLine(ev.Artifact.Content, 80)))
		}
	case dispatch.EventCost:
		if ev.Cost != nil {
			m.cost = *ev.Cost
			m.addLine(fmt.Sprintf("%s cost %d tokens ($%.4f)", ts, ev.Cost.Tokens, ev.Cost.USD))
		}
	case dispatch.EventMessage:
		m.addLine(fmt.Sprintf("%s %s", ts, truncateLine(ev.Text, 100)))
	case dispatch.EventError:
		m.addLine(fmt.Sprintf("%s error: %s", ts, truncateLine(ev.Text, 100)))
	case dispatch.EventDone:
		m.done = true
		m.addLine(fmt.Sprintf("%s done", ts))
	}
}

func (m *WatchModel) addLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxWatchLines {
		m.lines = m.lines[len(m.lines)-maxWatchLines:]
	}
}

// View implements tea.Model.
func (m WatchModel) View() string {
	var b strings.Builder

	statusStyled := m.statusStyle.Render(string(m.status))
	switch m.status {
	case models.TaskStatusCompleted:
		statusStyled = m.okStyle.Render(string(m.status))
	case models.TaskStatusFailed, models.TaskStatusCanceled:
		statusStyled = m.failStyle.Render(string(m.status))
	}

	b.WriteString(m.headerStyle.Render(fmt.Sprintf("task %s", m.taskID)))
	b.WriteString("  ")
	b.WriteString(statusStyled)
	b.WriteString("\n\n")

	visible := m.lines
	if m.height > 6 && len(visible) > m.height-6 {
		visible = visible[len(visible)-(m.height-6):]
	}
	for _, line := range visible {
		b.WriteString(m.lineStyle.Render(line))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	footer := fmt.Sprintf("%d tokens ($%.4f) · elapsed %s · q to quit",
		m.cost.Tokens, m.cost.USD, time.Since(m.started).Round(time.Second))
	b.WriteString(m.footerStyle.Render(footer))
	return b.String()
}

// Done reports whether the task reached its final event.
func (m WatchModel) Done() bool {
	return m.done
}

func truncateLine(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
