package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// PhaseStartMsg is sent when the crawler enters a phase
type PhaseStartMsg struct {
	Name string
}

// RateLimitMsg is sent when the governor suspends a phase
type RateLimitMsg struct {
	Endpoint string
	Wait     time.Duration
}

// FinishedMsg is sent once the run has returned
type FinishedMsg struct {
	Err error
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to refresh counters
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		if m.stats != nil {
			m.downloads = m.stats()
		}
		return m, tickCmd()

	case PhaseStartMsg:
		m.startPhase(msg.Name)
		return m, nil

	case RateLimitMsg:
		m.rateLimited(msg.Endpoint, msg.Wait)
		return m, nil

	case FinishedMsg:
		if m.stats != nil {
			m.downloads = m.stats()
		}
		m.finish(msg.Err)
		return m, nil

	case LogMsg:
		m.addLog(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logMessages = nil
		return m, nil
	}

	return m, nil
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
