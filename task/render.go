package task

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/flanksource/commons/text"
)

func (m *Manager) style(s Status) lipgloss.Style {
	switch s {
	case StatusSuccess:
		return m.styles.success
	case StatusFailed:
		return m.styles.failed
	case StatusWarning:
		return m.styles.warning
	case StatusRunning:
		return m.styles.running
	case StatusCancelled:
		return m.styles.cancelled
	}
	return m.styles.pending
}

// Line is the one-line summary of t: icon, name, message and duration.
func (m *Manager) Line(t *Task) string {
	status := t.Status()
	line := m.style(status).Render(status.Icon()) + " " + t.Name()
	if msg := t.Message(); msg != "" {
		line += " " + m.styles.info.Render(msg)
	}
	if status.Done() && t.Duration() > 0 {
		line += " " + m.styles.info.Render("("+text.HumanizeDuration(t.Duration())+")")
	}
	return line
}

// report prints the final line of t when the output is not redrawn.
func (m *Manager) report(t *Task) {
	if m.interactive {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintln(m.out, m.Line(t))
}

func (m *Manager) draw() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lines > 0 {
		m.output.ClearLines(m.lines)
	}
	for _, t := range m.tasks {
		fmt.Fprintln(m.out, m.Line(t))
	}
	m.lines = len(m.tasks)
}

func (m *Manager) render() {
	defer close(m.renderDone)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopRender:
			m.draw()
			return
		case <-ticker.C:
			m.draw()
		}
	}
}
